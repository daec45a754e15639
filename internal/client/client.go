// Package client talks to the crate API from the requesting side and drives
// progressive crate suggestions.
package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"cratedigger/internal/models"
)

// APIError is a non-2xx response from the crate API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("crate API request failed: %d %s", e.Status, e.Message)
}

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// New returns a client for the API at baseURL. token is sent as a bearer
// session token when non-empty.
func New(baseURL, token string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: httpClient,
	}
}

func (c *Client) Suggest(ctx context.Context, req models.SuggestRequest) (*models.SuggestResponse, error) {
	var resp models.SuggestResponse
	if err := c.do(ctx, http.MethodPost, "/api/crates/suggest", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Crates(ctx context.Context) ([]models.Crate, error) {
	var resp models.CratesResponse
	if err := c.do(ctx, http.MethodGet, "/api/crates", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Crates, nil
}

// AssignBatch moves albumIDs into crateID, or clears them when crateID is empty.
func (c *Client) AssignBatch(ctx context.Context, crateID string, albumIDs []string) (int64, error) {
	req := models.BatchAssignRequest{AlbumIDs: albumIDs}
	if crateID != "" {
		req.CrateID = &crateID
	}
	var resp models.BatchAssignResponse
	if err := c.do(ctx, http.MethodPost, "/api/album-crate/batch", req, &resp); err != nil {
		return 0, err
	}
	return resp.Updated, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(raw, &apiErr) != nil || apiErr.Error == "" {
			apiErr.Error = strings.TrimSpace(string(raw))
		}
		log.Debug().Str("path", path).Int("status", resp.StatusCode).Msg("Crate API returned an error")
		return &APIError{Status: resp.StatusCode, Message: apiErr.Error}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}
