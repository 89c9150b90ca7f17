package ocr

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/charmbracelet/log"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiConfig holds configuration for the Gemini OCR scanner
type GeminiConfig struct {
	APIKey        string
	ModelName     string
	RetryAttempts uint
	Logger        *log.Logger
}

func NewGeminiConfig() GeminiConfig {
	return GeminiConfig{
		ModelName:     "gemini-2.0-flash",
		RetryAttempts: 3,
	}
}

func (c GeminiConfig) WithAPIKey(apiKey string) GeminiConfig {
	c.APIKey = apiKey
	return c
}

func (c GeminiConfig) WithModelName(modelName string) GeminiConfig {
	c.ModelName = modelName
	return c
}

func (c GeminiConfig) WithLogger(logger *log.Logger) GeminiConfig {
	c.Logger = logger
	return c
}

func (c GeminiConfig) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("gemini api key is required")
	}
	if c.ModelName == "" {
		return fmt.Errorf("model name is required")
	}
	if c.RetryAttempts == 0 {
		return fmt.Errorf("retry attempts must be greater than 0")
	}
	if c.Logger == nil {
		return fmt.Errorf("logger is required")
	}
	return nil
}

// GeminiScanner transcribes images using Google Gemini
type GeminiScanner struct {
	config GeminiConfig
	client *genai.Client
	model  *genai.GenerativeModel
	logger *log.Logger
}

// NewGeminiScanner creates a new Gemini-backed OCR scanner
func NewGeminiScanner(ctx context.Context, config GeminiConfig) (*GeminiScanner, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(config.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiScanner{
		config: config,
		client: client,
		model:  client.GenerativeModel(config.ModelName),
		logger: config.Logger,
	}, nil
}

// ScanImage transcribes the image and returns the raw text
func (s *GeminiScanner) ScanImage(ctx context.Context, image []byte, contentType string) (string, error) {
	var text string
	start := time.Now()
	err := retry.Do(
		func() error {
			resp, err := s.model.GenerateContent(ctx,
				genai.ImageData(imageFormat(contentType), image),
				genai.Text(transcriptionPrompt),
			)
			if err != nil {
				return fmt.Errorf("failed to generate content: %w", err)
			}
			if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
				return fmt.Errorf("no response from Gemini API")
			}
			var b strings.Builder
			for _, part := range resp.Candidates[0].Content.Parts {
				if t, ok := part.(genai.Text); ok {
					b.WriteString(string(t))
				}
			}
			text = strings.TrimSpace(b.String())
			if text == "" {
				return fmt.Errorf("empty transcription from Gemini API")
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(s.config.RetryAttempts),
		retry.DelayType(retry.BackOffDelay),
		retry.OnRetry(func(n uint, err error) {
			s.logger.Warn("Retrying Gemini OCR request", "attempt", n+1, "max_attempts", s.config.RetryAttempts, "error", err)
		}),
	)
	if err != nil {
		return "", fmt.Errorf("failed to transcribe image: %w", err)
	}
	s.logger.Debug("Transcribed image", "image_bytes", len(image), "text_length", len(text), "model", s.config.ModelName, "duration", time.Since(start))
	return text, nil
}

func (s *GeminiScanner) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// imageFormat converts a MIME type like "image/png" into the bare format
// suffix genai.ImageData expects.
func imageFormat(contentType string) string {
	if strings.HasPrefix(contentType, "image/") {
		return strings.TrimPrefix(contentType, "image/")
	}
	if contentType == "" {
		return "png"
	}
	return contentType
}

// Ensure GeminiScanner implements the Scanner interface
var _ Scanner = (*GeminiScanner)(nil)
