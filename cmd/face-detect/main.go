// face-detect runs face detection and recognition on a single image and
// prints the result as one JSON object on stdout.
//
// Usage:
//
//	face-detect <image_path>
//
// Configuration comes from LUMINA_INSIGHTFACE_* environment variables (see
// internal/config); every value has a safe default. Exit codes: 0 success,
// 1 bad input or runtime failure, 2 detector collaborator unavailable.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"

	"github.com/lumina-photos/face-detect/internal/cli"
	"github.com/lumina-photos/face-detect/internal/config"
	"github.com/lumina-photos/face-detect/pkg/detector"
	"github.com/lumina-photos/face-detect/pkg/imageio"
	"github.com/lumina-photos/face-detect/pkg/types"
)

func main() {
	// A .env file is optional.
	_ = godotenv.Load()
	os.Exit(run(os.Args[1:]))
}

func run(args []string) (code int) {
	defer func() {
		if r := recover(); r != nil {
			code = cli.Fail(fmt.Sprintf("internal error: %v", r), cli.CodeFailure)
		}
	}()

	if len(args) < 1 {
		return cli.Fail("missing image path", cli.CodeFailure)
	}
	imgPath := args[0]

	if _, err := os.Stat(imgPath); err != nil {
		return cli.Fail("image not found", cli.CodeFailure)
	}

	img, err := imageio.Load(imgPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cli.Fail("image not found", cli.CodeFailure)
		}
		return cli.Fail("could not read image", cli.CodeFailure)
	}

	ctx := context.Background()
	det, err := detector.New(ctx, config.FromEnv())
	if err != nil {
		return cli.FailDetector(err)
	}

	faces, err := det.Detect(ctx, img)
	if err != nil {
		return cli.Fail(fmt.Sprintf("detection failed: %v", err), cli.CodeFailure)
	}

	cli.Emit(types.FacesOutput{Faces: faces})
	return cli.CodeOK
}
