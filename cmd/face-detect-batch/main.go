// face-detect-batch runs face detection over every image listed in a batch
// manifest, reusing one detector for the whole batch, and prints one JSON
// object on stdout.
//
// Usage:
//
//	face-detect-batch <temp_dir>
//
// temp_dir must contain a batch.json manifest:
//
//	{"files": [{"photoId": "p1", "filename": "a.jpg"}, ...]}
//
// Per-image failures are contained to their own result entry; the batch
// itself still succeeds. Exit codes: 0 success, 1 bad input or runtime
// failure, 2 detector collaborator unavailable.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/lumina-photos/face-detect/internal/cli"
	"github.com/lumina-photos/face-detect/internal/config"
	"github.com/lumina-photos/face-detect/pkg/batch"
	"github.com/lumina-photos/face-detect/pkg/detector"
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
		return cli.Fail("missing temp directory path", cli.CodeFailure)
	}
	dir := args[0]

	manifest, err := batch.LoadManifest(dir)
	if err != nil {
		return cli.Fail(err.Error(), cli.CodeFailure)
	}

	// One detector for the entire batch.
	ctx := context.Background()
	det, err := detector.New(ctx, config.FromEnv())
	if err != nil {
		return cli.FailDetector(err)
	}

	results := batch.Run(ctx, det, dir, manifest)
	cli.Emit(types.ResultsOutput{Results: results})
	return cli.CodeOK
}
