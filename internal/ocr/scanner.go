package ocr

import "context"

// transcriptionPrompt asks the model for a verbatim transcription only; all
// interpretation of the text happens in the receipt extractor.
const transcriptionPrompt = `Transcribe every piece of text visible in this image, exactly as written.
Preserve line breaks. Do not summarize, translate, interpret or reformat anything.
Return only the transcribed text with no commentary.`

// Scanner transcribes an image of a receipt or record book page into raw
// text. Implementations return the engine's output verbatim; extraction of
// amounts, dates and names is the caller's concern.
type Scanner interface {
	ScanImage(ctx context.Context, image []byte, contentType string) (string, error)
}
