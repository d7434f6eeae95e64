// Package script runs the InsightFace collaborator as a child process and
// speaks a JSON-per-line protocol over its pipes.
package script

import (
	"bufio"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/lumina-photos/face-detect/pkg/client"
	"github.com/lumina-photos/face-detect/pkg/insight"
	"github.com/lumina-photos/face-detect/pkg/types"
)

// Client drives a runner subprocess. The child's stderr is wired straight
// to our stderr; anything on its stdout that is not a protocol response is
// treated as a stray diagnostic and forwarded to stderr as well, so the
// parent's stdout stays pure JSON.
type Client struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser
	out   *bufio.Scanner
}

// request is one protocol line to the runner. CtxID carries no omitempty:
// device 0 is a valid id and the runner defaults absent fields to -1.
type request struct {
	Op             string      `json:"op"`
	Name           string      `json:"name,omitempty"`
	AllowedModules []string    `json:"allowed_modules,omitempty"`
	Providers      []string    `json:"providers,omitempty"`
	CtxID          int         `json:"ctx_id"`
	DetSize        *types.Size `json:"det_size,omitempty"`
	ImageB64       string      `json:"image_b64,omitempty"`
}

type response struct {
	OK    bool            `json:"ok"`
	Error string          `json:"error,omitempty"`
	Code  string          `json:"code,omitempty"`
	Faces json.RawMessage `json:"faces,omitempty"`
}

// NewClient starts the runner command. The command is split on whitespace,
// so the runner path and its arguments may not contain spaces. A command
// that cannot be started is the missing-dependency case and reported as
// client.ErrUnavailable.
func NewClient(command string) (*Client, error) {
	parts := strings.Fields(command)
	if len(parts) == 0 {
		return nil, fmt.Errorf("%w: empty runner command", client.ErrUnavailable)
	}

	cmd := exec.Command(parts[0], parts[1:]...)
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("runner stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("runner stdout: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %v", client.ErrUnavailable, err)
	}

	out := bufio.NewScanner(stdout)
	// Responses carry full embeddings, so lines can get long.
	out.Buffer(make([]byte, 64*1024), 16*1024*1024)

	return &Client{cmd: cmd, stdin: stdin, out: out}, nil
}

// Load asks the runner to load a model pack. The runner signals an
// unavailable pack with code "model_unavailable".
func (c *Client) Load(ctx context.Context, model string, providers []string) error {
	resp, err := c.roundTrip(request{
		Op:             "load",
		Name:           model,
		AllowedModules: []string{"detection", "recognition"},
		Providers:      providers,
	})
	if err != nil {
		return err
	}
	if !resp.OK {
		if resp.Code == "model_unavailable" {
			return fmt.Errorf("%w: %s", client.ErrModelUnavailable, resp.Error)
		}
		return fmt.Errorf("runner load: %s", resp.Error)
	}
	return nil
}

// Prepare binds the loaded pack to a device context and detection size.
func (c *Client) Prepare(ctx context.Context, ctxID int, detSize types.Size) error {
	resp, err := c.roundTrip(request{Op: "prepare", CtxID: ctxID, DetSize: &detSize})
	if err != nil {
		return err
	}
	if !resp.OK {
		return fmt.Errorf("runner prepare: %s", resp.Error)
	}
	return nil
}

// DetectFaces ships one JPEG image to the runner and normalizes whatever
// face records come back.
func (c *Client) DetectFaces(ctx context.Context, imgJPEG []byte) ([]types.Face, error) {
	resp, err := c.roundTrip(request{Op: "detect", ImageB64: base64.StdEncoding.EncodeToString(imgJPEG)})
	if err != nil {
		return nil, err
	}
	if !resp.OK {
		return nil, fmt.Errorf("runner detect: %s", resp.Error)
	}
	if len(resp.Faces) == 0 {
		return []types.Face{}, nil
	}
	return insight.DecodeFaces(resp.Faces)
}

// Close shuts the runner down by closing its stdin and reaping it.
func (c *Client) Close() error {
	c.stdin.Close()
	return c.cmd.Wait()
}

// roundTrip writes one request line and reads lines until a protocol
// response appears, forwarding non-protocol lines to stderr.
func (c *Client) roundTrip(req request) (*response, error) {
	line, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	if _, err := c.stdin.Write(append(line, '\n')); err != nil {
		return nil, fmt.Errorf("%w: write to runner: %v", client.ErrUnavailable, err)
	}

	for c.out.Scan() {
		raw := c.out.Bytes()
		var resp response
		if err := json.Unmarshal(raw, &resp); err != nil || !looksLikeResponse(raw) {
			// Stray diagnostic print from the collaborator.
			fmt.Fprintf(os.Stderr, "%s\n", raw)
			continue
		}
		return &resp, nil
	}
	if err := c.out.Err(); err != nil {
		return nil, fmt.Errorf("%w: read from runner: %v", client.ErrUnavailable, err)
	}
	return nil, fmt.Errorf("%w: runner closed its output", client.ErrUnavailable)
}

// looksLikeResponse filters JSON-looking diagnostics that are not protocol
// responses (a response always carries the "ok" key).
func looksLikeResponse(raw []byte) bool {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return false
	}
	_, ok := probe["ok"]
	return ok
}
