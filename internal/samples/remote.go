package samples

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Compile-time check that RemoteClient implements RemoteBackend.
var _ RemoteBackend = (*RemoteClient)(nil)

// RemoteClient talks to an optional remote sample backend over HTTP. The
// remote is authoritative when reachable; every call here is wrapped in
// best-effort handling by the Store.
type RemoteClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewRemoteClient creates a RemoteClient for the given base URL. token may be
// empty when the backend does not require auth.
func NewRemoteClient(baseURL, token string) *RemoteClient {
	return &RemoteClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *RemoteClient) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshalling request: %w", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.httpClient.Do(req)
}

// GetAll fetches the full sample collection, most-recently-inserted first.
func (c *RemoteClient) GetAll(ctx context.Context) ([]Sample, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/v1/samples", nil)
	if err != nil {
		return nil, fmt.Errorf("listing remote samples: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("listing remote samples: unexpected status %d", resp.StatusCode)
	}

	var all []Sample
	if err := json.NewDecoder(resp.Body).Decode(&all); err != nil {
		return nil, fmt.Errorf("decoding remote samples: %w", err)
	}
	return all, nil
}

// Insert writes one sample to the remote backend.
func (c *RemoteClient) Insert(ctx context.Context, s Sample) error {
	resp, err := c.do(ctx, http.MethodPost, "/api/v1/samples", s)
	if err != nil {
		return fmt.Errorf("inserting remote sample: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("inserting remote sample: unexpected status %d", resp.StatusCode)
	}
	return nil
}

// Delete removes one sample from the remote backend. A 404 counts as success:
// deleting an unknown id is a no-op everywhere.
func (c *RemoteClient) Delete(ctx context.Context, id string) error {
	resp, err := c.do(ctx, http.MethodDelete, "/api/v1/samples/"+id, nil)
	if err != nil {
		return fmt.Errorf("deleting remote sample: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent, http.StatusNotFound:
		return nil
	default:
		return fmt.Errorf("deleting remote sample: unexpected status %d", resp.StatusCode)
	}
}
