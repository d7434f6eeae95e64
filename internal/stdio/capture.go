// Package stdio guards the process's JSON stdout channel while noisy
// collaborator code runs.
package stdio

import (
	"bytes"
	"io"
	"os"
	"sync"
)

// CaptureStdout runs fn with os.Stdout swapped for a pipe and forwards
// everything written during the call to os.Stderr. The real stdout is
// restored on every exit path, including a panic inside fn, so a crash
// during detector preparation cannot leave the primary output channel
// pointing at the wrong stream.
func CaptureStdout(fn func() error) (err error) {
	r, w, pipeErr := os.Pipe()
	if pipeErr != nil {
		// No pipe available; run fn against the real stdout rather
		// than failing the operation over a diagnostics concern.
		return fn()
	}

	orig := os.Stdout
	os.Stdout = w

	var buf bytes.Buffer
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		io.Copy(&buf, r)
	}()

	defer func() {
		os.Stdout = orig
		w.Close()
		wg.Wait()
		r.Close()
		if buf.Len() > 0 {
			os.Stderr.Write(buf.Bytes())
		}
	}()

	return fn()
}
