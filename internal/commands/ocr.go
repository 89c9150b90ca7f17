package commands

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/mzalendo/chama-ledger/internal/ocr"
)

// SetupScanner initializes and returns an OCR scanner based on the config
func SetupScanner(ctx context.Context, config OCRConfig, logger *log.Logger) (ocr.Scanner, error) {
	switch config.OCRProvider {
	case "gemini":
		geminiConfig := ocr.NewGeminiConfig().
			WithAPIKey(config.GeminiAPIKey).
			WithLogger(logger)
		if config.OCRModel != "" {
			geminiConfig = geminiConfig.WithModelName(config.OCRModel)
		}
		scanner, err := ocr.NewGeminiScanner(ctx, geminiConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to create Gemini scanner: %w", err)
		}
		return scanner, nil
	case "openrouter":
		if config.OpenRouterKey == "" {
			return nil, fmt.Errorf("openrouter api key is required")
		}
		model := config.OCRModel
		if model == "" {
			model = "google/gemini-2.5-flash-preview"
		}
		return ocr.NewOpenRouterScanner(logger, config.OpenRouterKey, model, 3), nil
	default:
		return nil, fmt.Errorf("unknown OCR provider: %s", config.OCRProvider)
	}
}
