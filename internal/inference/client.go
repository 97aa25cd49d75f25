// Package inference talks to the external model sidecar over HTTP. The
// sidecar hosts both the generic object detector and the patch embedder;
// their weights and inference internals are outside this repository.
package inference

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"net/http"
	"strings"
	"time"

	"github.com/UmarMaaz/pot-hole-detector/internal/vision"
)

// Box is a raw detector bounding box in source-pixel units.
type Box struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// RawDetection is one detector result before classification.
type RawDetection struct {
	Category string  `json:"category"`
	Score    float64 `json:"score"`
	Box      Box     `json:"box"`
}

// Client communicates with the inference sidecar over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a Client targeting the given sidecar base URL.
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		// Model calls have no explicit timeout: a hung model stalls the
		// frame loop, which is the accepted backpressure behavior.
		httpClient: &http.Client{Timeout: 0},
	}
}

// IsRunning returns true if the sidecar responds to GET /api/health with 200.
func (c *Client) IsRunning(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// detectRequest is the JSON body for POST /api/detect.
type detectRequest struct {
	Model string `json:"model"`
	Image string `json:"image"` // base64-encoded JPEG
}

// detectResponse is the JSON returned by POST /api/detect.
type detectResponse struct {
	Detections []RawDetection `json:"detections"`
}

// Detect runs the object detector on a full frame and returns the raw
// detections in pixel units.
func (c *Client) Detect(ctx context.Context, model string, img image.Image) ([]RawDetection, error) {
	encoded, err := encodeImage(img)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(detectRequest{Model: model, Image: encoded})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/detect", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating detect request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("detect request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("detect: unexpected status %d", resp.StatusCode)
	}

	var result detectResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding detect response: %w", err)
	}
	return result.Detections, nil
}

// embedRequest is the JSON body for POST /api/embed.
type embedRequest struct {
	Model string `json:"model"`
	Image string `json:"image"` // base64-encoded JPEG patch
}

// embedResponse is the JSON returned by POST /api/embed.
type embedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Embed returns the feature vector for a canonical patch using the specified
// embedding model.
func (c *Client) Embed(ctx context.Context, model string, img image.Image) ([]float32, error) {
	encoded, err := encodeImage(img)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(embedRequest{Model: model, Image: encoded})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embed request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embed: unexpected status %d", resp.StatusCode)
	}

	var result embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding embed response: %w", err)
	}

	if len(result.Embedding) == 0 {
		return nil, fmt.Errorf("embed: empty embedding")
	}
	return result.Embedding, nil
}

func encodeImage(img image.Image) (string, error) {
	data, err := vision.EncodeJPEG(img)
	if err != nil {
		return "", fmt.Errorf("encoding frame: %w", err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}
