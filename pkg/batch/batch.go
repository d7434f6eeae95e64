// Package batch processes a working directory of images listed in a
// batch.json manifest.
package batch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lumina-photos/face-detect/pkg/imageio"
	"github.com/lumina-photos/face-detect/pkg/types"
)

// ManifestName is the manifest file expected inside the batch directory.
const ManifestName = "batch.json"

// Manifest-level precondition failures. These abort the whole batch; the
// messages are part of the CLI contract.
var (
	ErrDirNotFound      = errors.New("temp directory not found")
	ErrManifestNotFound = errors.New("batch.json not found")
	ErrNoFilesKey       = errors.New("batch.json missing 'files' array")
)

// FaceFinder is the one detector operation batch processing needs.
type FaceFinder interface {
	DetectFile(ctx context.Context, path string) ([]types.Face, error)
}

// LoadManifest validates the batch directory and parses its manifest. The
// checks run in a fixed order: directory, manifest presence, manifest JSON,
// "files" key.
func LoadManifest(dir string) (*types.Manifest, error) {
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return nil, ErrDirNotFound
	}

	path := filepath.Join(dir, ManifestName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, ErrManifestNotFound
	}

	var manifest types.Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("batch.json is not valid JSON: %v", err)
	}
	if manifest.Files == nil {
		return nil, ErrNoFilesKey
	}
	return &manifest, nil
}

// Run processes every manifest entry independently and in order. A failing
// entry is recorded in its own result and never affects its siblings, so
// the returned slice always has exactly one result per entry.
func Run(ctx context.Context, finder FaceFinder, dir string, manifest *types.Manifest) []types.BatchResult {
	results := make([]types.BatchResult, 0, len(manifest.Files))
	for _, entry := range manifest.Files {
		results = append(results, processEntry(ctx, finder, filepath.Join(dir, entry.Filename), entry.PhotoID))
	}
	return results
}

func processEntry(ctx context.Context, finder FaceFinder, path, photoID string) types.BatchResult {
	result := types.BatchResult{
		PhotoID: photoID,
		Faces:   []types.Face{},
	}

	if _, err := os.Stat(path); err != nil {
		result.Error = strPtr("image not found")
		return result
	}

	faces, err := detectGuarded(ctx, finder, path)
	if err != nil {
		switch {
		case errors.Is(err, imageio.ErrUnreadable):
			result.Error = strPtr("could not read image")
		default:
			result.Error = strPtr(fmt.Sprintf("processing error: %v", err))
		}
		return result
	}

	result.Faces = faces
	return result
}

// detectGuarded contains a panicking detector call to its own entry.
func detectGuarded(ctx context.Context, finder FaceFinder, path string) (faces []types.Face, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	faces, err = finder.DetectFile(ctx, path)
	if err != nil {
		return nil, err
	}
	if faces == nil {
		faces = []types.Face{}
	}
	return faces, nil
}

func strPtr(s string) *string { return &s }
