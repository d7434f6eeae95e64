// Package dlib runs face detection in process through go-face, for setups
// with the dlib models on disk and no InsightFace daemon around.
package dlib

import (
	"context"
	"fmt"
	"os"

	goface "github.com/Kagami/go-face"

	"github.com/lumina-photos/face-detect/pkg/client"
	"github.com/lumina-photos/face-detect/pkg/types"
)

// Client is an in-process FaceClient backed by dlib.
type Client struct {
	modelsDir string
	rec       *goface.Recognizer
}

// NewClient creates an unloaded client. defaultModelsDir is used when Load
// is asked for the default pack.
func NewClient(defaultModelsDir string) (*Client, error) {
	return &Client{modelsDir: defaultModelsDir}, nil
}

// Load opens the dlib model files. The model name doubles as the models
// directory here; an empty name selects the configured default directory.
func (c *Client) Load(ctx context.Context, model string, providers []string) error {
	dir := model
	if dir == "" {
		dir = c.modelsDir
	}
	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("%w: %v", client.ErrModelUnavailable, err)
	}

	rec, err := goface.NewRecognizer(dir)
	if err != nil {
		return fmt.Errorf("%w: %v", client.ErrModelUnavailable, err)
	}
	if c.rec != nil {
		c.rec.Close()
	}
	c.rec = rec
	return nil
}

// Prepare is a no-op: dlib has no device context or detection size knobs.
func (c *Client) Prepare(ctx context.Context, ctxID int, detSize types.Size) error {
	if c.rec == nil {
		return fmt.Errorf("no model loaded")
	}
	return nil
}

// DetectFaces runs dlib detection and recognition on one JPEG image. dlib
// reports no confidence, so Score stays at its zero default; the 128-float
// descriptor is the embedding.
func (c *Client) DetectFaces(ctx context.Context, imgJPEG []byte) ([]types.Face, error) {
	if c.rec == nil {
		return nil, fmt.Errorf("no model loaded")
	}

	found, err := c.rec.Recognize(imgJPEG)
	if err != nil {
		return nil, fmt.Errorf("dlib recognize: %w", err)
	}

	faces := make([]types.Face, 0, len(found))
	for _, f := range found {
		emb := make([]float64, len(f.Descriptor))
		for i, v := range f.Descriptor {
			emb[i] = float64(v)
		}
		faces = append(faces, types.Face{
			Box: [4]float64{
				float64(f.Rectangle.Min.X),
				float64(f.Rectangle.Min.Y),
				float64(f.Rectangle.Max.X),
				float64(f.Rectangle.Max.Y),
			},
			Embedding: emb,
		})
	}
	return faces, nil
}

// Close releases the dlib recognizer.
func (c *Client) Close() {
	if c.rec != nil {
		c.rec.Close()
		c.rec = nil
	}
}
