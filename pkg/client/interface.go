package client

import (
	"context"
	"errors"

	"github.com/lumina-photos/face-detect/pkg/types"
)

// FaceClient is the contract every detector backend implements. A backend
// is loaded once per process, prepared once, then queried per image.
type FaceClient interface {
	// Load makes the named model pack current. An empty model name asks
	// the collaborator for its own default pack.
	Load(ctx context.Context, model string, providers []string) error

	// Prepare binds the loaded pack to a device context and detection
	// size. ctxID -1 means CPU only.
	Prepare(ctx context.Context, ctxID int, detSize types.Size) error

	// DetectFaces runs inference on one JPEG-encoded image and returns
	// the normalized face records, possibly empty and never nil.
	DetectFaces(ctx context.Context, imgJPEG []byte) ([]types.Face, error)
}

// ErrUnavailable marks a backend that cannot be reached at all, the
// moral equivalent of the collaborator library failing to import.
var ErrUnavailable = errors.New("face backend unavailable")

// ErrModelUnavailable marks a Load failure caused by the requested model
// pack not being present; callers may retry with the default pack.
var ErrModelUnavailable = errors.New("model pack unavailable")
