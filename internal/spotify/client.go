// Package spotify is a minimal Spotify Web API client for the library and
// catalog endpoints the service needs.
package spotify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	gobreaker "github.com/sony/gobreaker/v2"

	"cratedigger/internal/breaker"
)

const (
	DefaultBaseURL = "https://api.spotify.com/v1"

	// MaxAlbumIDs and MaxArtistIDs are the bulk lookup ceilings.
	MaxAlbumIDs  = 20
	MaxArtistIDs = 50

	savedAlbumsPageSize = 50
)

// APIError is a non-2xx response from the Web API.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("Spotify request failed: %d %s", e.Status, e.Body)
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	cb         *gobreaker.CircuitBreaker[[]byte]
}

func NewClient(baseURL string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		cb:         breaker.New[[]byte]("spotify-api", 10, countsAgainstBreaker),
	}
}

// Client errors such as an expired token are the caller's problem and do not
// trip the breaker.
func countsAgainstBreaker(err error) bool {
	if err == nil {
		return true
	}
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status < http.StatusInternalServerError
}

// SavedAlbums walks every page of the user's saved albums.
func (c *Client) SavedAlbums(ctx context.Context, token string) ([]SavedAlbum, error) {
	var items []SavedAlbum
	next := fmt.Sprintf("%s/me/albums?limit=%d", c.baseURL, savedAlbumsPageSize)
	for next != "" {
		var page savedAlbumsPage
		if err := c.get(ctx, token, next, &page); err != nil {
			return nil, err
		}
		items = append(items, page.Items...)
		next = ""
		if page.Next != nil {
			next = *page.Next
		}
	}
	log.Debug().Int("count", len(items)).Msg("Fetched saved albums from Spotify")
	return items, nil
}

// Albums looks up at most MaxAlbumIDs albums. Unknown ids are skipped.
func (c *Client) Albums(ctx context.Context, token string, ids []string) ([]Album, error) {
	if len(ids) > MaxAlbumIDs {
		return nil, fmt.Errorf("too many album ids: %d > %d", len(ids), MaxAlbumIDs)
	}
	var resp albumsResponse
	if err := c.get(ctx, token, c.baseURL+"/albums?ids="+url.QueryEscape(strings.Join(ids, ",")), &resp); err != nil {
		return nil, err
	}
	albums := make([]Album, 0, len(resp.Albums))
	for _, a := range resp.Albums {
		if a != nil {
			albums = append(albums, *a)
		}
	}
	return albums, nil
}

// Artists looks up at most MaxArtistIDs artists. Unknown ids are skipped.
func (c *Client) Artists(ctx context.Context, token string, ids []string) ([]Artist, error) {
	if len(ids) > MaxArtistIDs {
		return nil, fmt.Errorf("too many artist ids: %d > %d", len(ids), MaxArtistIDs)
	}
	var resp artistsResponse
	if err := c.get(ctx, token, c.baseURL+"/artists?ids="+url.QueryEscape(strings.Join(ids, ",")), &resp); err != nil {
		return nil, err
	}
	artists := make([]Artist, 0, len(resp.Artists))
	for _, a := range resp.Artists {
		if a != nil {
			artists = append(artists, *a)
		}
	}
	return artists, nil
}

func (c *Client) get(ctx context.Context, token, rawURL string, dst any) error {
	body, err := breaker.Execute(c.cb, func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to build request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("spotify request failed: %w", err)
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read spotify response: %w", err)
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, &APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(data))}
		}
		return data, nil
	})
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("failed to decode spotify response: %w", err)
	}
	return nil
}
