// Package cli holds the output and exit-code conventions shared by the
// face-detect binaries: exactly one JSON object on stdout, diagnostics on
// stderr, exit 0/1/2.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/lumina-photos/face-detect/pkg/client"
	"github.com/lumina-photos/face-detect/pkg/types"
)

// Exit codes. CodeMissingDep is reserved for an unreachable detector
// collaborator; everything else that fails is CodeFailure.
const (
	CodeOK         = 0
	CodeFailure    = 1
	CodeMissingDep = 2
)

// Emit writes one JSON object to stdout. Marshal failures degrade to an
// error envelope so stdout never carries anything unparsable.
func Emit(v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		data, _ = json.Marshal(types.ErrorOutput{Error: fmt.Sprintf("internal error: %v", err)})
	}
	fmt.Fprintln(os.Stdout, string(data))
}

// Fail emits an error envelope and returns the exit code to use.
func Fail(msg string, code int) int {
	Emit(types.ErrorOutput{Error: msg})
	return code
}

// FailDetector classifies a detector construction error: an unavailable
// backend is the missing-dependency case, anything else a runtime failure.
func FailDetector(err error) int {
	if errors.Is(err, client.ErrUnavailable) {
		return Fail(fmt.Sprintf("missing dependency: %v", err), CodeMissingDep)
	}
	return Fail(err.Error(), CodeFailure)
}
