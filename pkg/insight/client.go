// Package insight talks to an InsightFace daemon over HTTP. The daemon owns
// model management and inference; this client only ships images and absorbs
// the version skew in the face records it gets back.
package insight

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/lumina-photos/face-detect/pkg/client"
	"github.com/lumina-photos/face-detect/pkg/types"
)

// Client is an HTTP FaceClient for an InsightFace daemon.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

type loadRequest struct {
	Name           string   `json:"name,omitempty"`
	AllowedModules []string `json:"allowed_modules"`
	Providers      []string `json:"providers"`
}

type prepareRequest struct {
	CtxID   int        `json:"ctx_id"`
	DetSize types.Size `json:"det_size"`
}

// NewClient creates a client for the daemon at serverURL.
func NewClient(serverURL string) (*Client, error) {
	if serverURL == "" {
		serverURL = "http://localhost:8008"
	}

	return &Client{
		baseURL: strings.TrimSuffix(serverURL, "/"),
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}, nil
}

// Load asks the daemon to make the named model pack current. An empty name
// selects the daemon's default pack. A pack the daemon does not have is
// reported as client.ErrModelUnavailable so the caller can fall back.
func (c *Client) Load(ctx context.Context, model string, providers []string) error {
	req := loadRequest{
		Name:           model,
		AllowedModules: []string{"detection", "recognition"},
		Providers:      providers,
	}

	body, status, err := c.sendJSON(ctx, "/models/load", req)
	if err != nil {
		if status == http.StatusNotFound && modelMissing(body) {
			return fmt.Errorf("%w: %q", client.ErrModelUnavailable, model)
		}
		return err
	}
	return nil
}

// modelMissing reports whether a 404 body actually signals a missing model
// pack. A daemon without the /models/load route answers 404 too, and that
// case must not trigger the default-pack fallback.
func modelMissing(body []byte) bool {
	var resp struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(body, &resp); err == nil && resp.Code != "" {
		return resp.Code == "model_unavailable"
	}
	return strings.Contains(strings.ToLower(string(body)), "model")
}

// Prepare binds the loaded pack to a device context and detection size.
func (c *Client) Prepare(ctx context.Context, ctxID int, detSize types.Size) error {
	_, _, err := c.sendJSON(ctx, "/prepare", prepareRequest{CtxID: ctxID, DetSize: detSize})
	return err
}

// DetectFaces posts one JPEG image and returns the normalized face records.
func (c *Client) DetectFaces(ctx context.Context, imgJPEG []byte) ([]types.Face, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", "image.jpg")
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(imgJPEG); err != nil {
		return nil, fmt.Errorf("write image data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("finish multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/detect", body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", client.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("daemon returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	return DecodeFaces(respBody)
}

// sendJSON posts a JSON payload and returns the body and status. Transport
// errors are wrapped in client.ErrUnavailable; non-200 statuses become
// errors carrying the daemon's message.
func (c *Client) sendJSON(ctx context.Context, endpoint string, payload interface{}) ([]byte, int, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", client.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return body, resp.StatusCode, fmt.Errorf("daemon returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return body, resp.StatusCode, nil
}
