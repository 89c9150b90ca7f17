package commands

// CommonConfig contains configuration common to all commands
type CommonConfig struct {
	// DataDir is the path to the data directory
	DataDir string `help:"Path to data directory" default:"./data"`
	// Timezone is the timezone to use for contribution dates
	Timezone string `help:"Timezone to use for contribution dates" required:"" default:"Africa/Nairobi"`
	// LogLevel is the logging level to use
	LogLevel string `help:"Log level (debug, info, warn, error)" default:"warn" enum:"debug,info,warn,error"`
}

// OCRConfig contains common flag definitions for OCR scanner configuration
type OCRConfig struct {
	// OCRProvider is the OCR backend to use
	OCRProvider string `help:"OCR provider to use" default:"gemini" enum:"gemini,openrouter" env:"OCR_PROVIDER"`
	// GeminiAPIKey is the API key for Gemini
	GeminiAPIKey string `help:"Google Gemini API key" env:"GEMINI_API_KEY"`
	// OpenRouterKey is the API key for OpenRouter
	OpenRouterKey string `help:"OpenRouter API key" env:"OPENROUTER_API_KEY"`
	// OCRModel overrides the provider's default vision model
	OCRModel string `help:"Model to use for OCR" env:"OCR_MODEL"`
}
