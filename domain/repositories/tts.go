package repositories

import "context"

// TextToSpeech synthesizes a spoken reply. The returned channel yields raw
// PCM16 chunks as they arrive and is closed when synthesis completes.
type TextToSpeech interface {
	ConvertTextToSpeech(ctx context.Context, text string) (<-chan []byte, error)
}
