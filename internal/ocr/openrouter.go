package ocr

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	openai "github.com/sashabaranov/go-openai"
)

// OpenRouterScanner transcribes images through OpenRouter's OpenAI-compatible
// API using a vision-capable model.
type OpenRouterScanner struct {
	logger      *log.Logger
	client      *openai.Client
	model       string
	maxAttempts int
}

// NewOpenRouterScanner creates an OCR scanner backed by OpenRouter.
// model is the vision model name (e.g. "google/gemini-2.5-flash-preview").
func NewOpenRouterScanner(logger *log.Logger, apiKey, model string, maxAttempts int) *OpenRouterScanner {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = "https://openrouter.ai/api/v1"
	return &OpenRouterScanner{
		logger:      logger,
		client:      openai.NewClientWithConfig(cfg),
		model:       model,
		maxAttempts: maxAttempts,
	}
}

// ScanImage transcribes the image and returns the raw text
func (s *OpenRouterScanner) ScanImage(ctx context.Context, image []byte, contentType string) (string, error) {
	dataURL := fmt.Sprintf("data:%s;base64,%s", contentType, base64.StdEncoding.EncodeToString(image))

	messages := []openai.ChatCompletionMessage{
		{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{
					Type: openai.ChatMessagePartTypeText,
					Text: transcriptionPrompt,
				},
				{
					Type:     openai.ChatMessagePartTypeImageURL,
					ImageURL: &openai.ChatMessageImageURL{URL: dataURL},
				},
			},
		},
	}

	var lastError error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		s.logger.Debug("Requesting transcription", "attempt", attempt, "model", s.model)

		resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:    s.model,
			Messages: messages,
		})
		if err != nil {
			lastError = err
			continue
		}
		if len(resp.Choices) == 0 {
			lastError = fmt.Errorf("no choices in response")
			continue
		}

		text := strings.TrimSpace(resp.Choices[0].Message.Content)
		if text == "" {
			lastError = fmt.Errorf("empty transcription in response")
			continue
		}
		return text, nil
	}

	return "", fmt.Errorf("failed to transcribe image after %d attempts: %w", s.maxAttempts, lastError)
}

// Ensure OpenRouterScanner implements the Scanner interface
var _ Scanner = (*OpenRouterScanner)(nil)
