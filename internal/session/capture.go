package session

import (
	"context"

	"github.com/neutralbridge/concierge/domain/entities"
	"github.com/neutralbridge/concierge/internal/audio"
)

// CaptureDevice abstracts the microphone. Start acquires the device and
// begins delivering fixed-size frames of float samples at the capture rate
// to onFrame; it returns a PermissionError when the platform denies access.
// Stop releases the device and is safe to call more than once.
type CaptureDevice interface {
	Start(onFrame func(samples []float64)) error
	Stop() error
}

// ChunkRequest is one encoded frame handed to the transport. SessionID and
// Seq let the server and the response guard identify stale deliveries.
type ChunkRequest struct {
	SessionID string
	Seq       uint64
	Chunk     audio.EncodedChunk
}

// Transport forwards encoded chunks to the proxy and returns the decoded
// model response. Implementations make exactly one attempt per call.
type Transport interface {
	ForwardAudioChunk(ctx context.Context, req ChunkRequest) (*entities.ModelResponse, error)
}
