// Package detector owns the face-analysis collaborator's lifecycle: one
// instance per process, loaded and prepared once, queried per image.
package detector

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"

	"github.com/lumina-photos/face-detect/internal/config"
	"github.com/lumina-photos/face-detect/internal/stdio"
	"github.com/lumina-photos/face-detect/pkg/client"
	"github.com/lumina-photos/face-detect/pkg/dlib"
	"github.com/lumina-photos/face-detect/pkg/imageio"
	"github.com/lumina-photos/face-detect/pkg/insight"
	"github.com/lumina-photos/face-detect/pkg/script"
	"github.com/lumina-photos/face-detect/pkg/types"
)

// Detector wraps a prepared FaceClient.
type Detector struct {
	client client.FaceClient
}

// New constructs the process's single detector: it builds the configured
// backend, loads the model pack, and prepares it. If the requested pack is
// unavailable, it retries with the collaborator's own default pack instead
// of aborting. Load and prepare run under the stdout capture so whatever
// the collaborator stack prints lands on stderr, not in the JSON output.
func New(ctx context.Context, cfg *config.Config) (*Detector, error) {
	cl, err := newBackend(cfg)
	if err != nil {
		return nil, err
	}

	if err := initClient(ctx, cl, cfg); err != nil {
		return nil, err
	}
	return &Detector{client: cl}, nil
}

// initClient loads the model pack and prepares the backend under the
// stdout capture.
func initClient(ctx context.Context, cl client.FaceClient, cfg *config.Config) error {
	return stdio.CaptureStdout(func() error {
		if err := cl.Load(ctx, cfg.Model, cfg.Providers); err != nil {
			if !errors.Is(err, client.ErrModelUnavailable) {
				return err
			}
			log.Printf("model pack %q unavailable, falling back to default: %v", cfg.Model, err)
			if err := cl.Load(ctx, "", cfg.Providers); err != nil {
				return err
			}
		}
		return cl.Prepare(ctx, cfg.CtxID, cfg.DetSize)
	})
}

// NewWithClient wraps an already constructed backend; used by tests.
func NewWithClient(cl client.FaceClient) *Detector {
	return &Detector{client: cl}
}

func newBackend(cfg *config.Config) (client.FaceClient, error) {
	switch cfg.Backend {
	case "server":
		return insight.NewClient(cfg.ServerURL)
	case "script":
		return script.NewClient(cfg.ScriptCmd)
	case "dlib":
		return dlib.NewClient(cfg.ModelsDir)
	default:
		return nil, fmt.Errorf("unknown backend %q (use server, script or dlib)", cfg.Backend)
	}
}

// DetectFile loads one image from disk and runs inference on it. The face
// slice is empty, never nil, when nothing is detected.
func (d *Detector) DetectFile(ctx context.Context, path string) ([]types.Face, error) {
	img, err := imageio.Load(path)
	if err != nil {
		return nil, err
	}
	return d.Detect(ctx, img)
}

// Detect runs inference on an already decoded image.
func (d *Detector) Detect(ctx context.Context, img image.Image) ([]types.Face, error) {
	data, err := imageio.EncodeJPEG(img)
	if err != nil {
		return nil, err
	}

	faces, err := d.client.DetectFaces(ctx, data)
	if err != nil {
		return nil, err
	}
	if faces == nil {
		faces = []types.Face{}
	}
	return faces, nil
}
