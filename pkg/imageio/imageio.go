// Package imageio loads images from disk and encodes them for the detector
// wire format.
package imageio

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"os"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// ErrUnreadable marks a file that exists but does not decode as an image.
var ErrUnreadable = errors.New("could not read image")

// JPEGQuality used when re-encoding images for the detector. Detection is
// tolerant of compression; 90 keeps payloads small without hurting boxes.
const JPEGQuality = 90

// Load reads and decodes an image file. imaging.Open covers the registered
// decoders (jpeg, png, gif, tiff, bmp, webp via x/image); the chai2010
// decoder is a fallback for webp variants x/image rejects.
func Load(path string) (image.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err == nil {
		return img, nil
	}

	if strings.HasSuffix(strings.ToLower(path), ".webp") {
		f, ferr := os.Open(path)
		if ferr == nil {
			defer f.Close()
			if img, werr := webp.Decode(f); werr == nil {
				return img, nil
			}
		}
	}

	if errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	return nil, fmt.Errorf("%w: %s: %v", ErrUnreadable, path, err)
}

// EncodeJPEG renders an image into the JPEG bytes the detector transports
// expect.
func EncodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(JPEGQuality)); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
