package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cratedigger/internal/models"
)

func TestClientSuggest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/crates/suggest", r.URL.Path)
		assert.Equal(t, "Bearer session", r.Header.Get("Authorization"))

		var req models.SuggestRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "c1", req.CrateID)
		require.NotNil(t, req.Offset)
		assert.Equal(t, 100, *req.Offset)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"suggestions":[{"album_id":"a1","album_name":"Head Hunters","artist_name":"Herbie Hancock"}],"candidates_count":100}`))
	}))
	defer srv.Close()

	offset := 100
	resp, err := New(srv.URL+"/", "session", srv.Client()).Suggest(context.Background(), models.SuggestRequest{CrateID: "c1", Offset: &offset})
	require.NoError(t, err)
	assert.Equal(t, 100, resp.CandidatesCount)
	require.Len(t, resp.Suggestions, 1)
	assert.Equal(t, "a1", resp.Suggestions[0].AlbumID)
}

func TestClientSurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"Crate not found"}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, "", srv.Client()).Suggest(context.Background(), models.SuggestRequest{CrateID: "missing"})

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "Crate not found", apiErr.Message)
}

func TestClientAssignBatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req models.BatchAssignRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Nil(t, req.CrateID)
		assert.Equal(t, []string{"a1", "a2"}, req.AlbumIDs)
		_, _ = w.Write([]byte(`{"updated":2}`))
	}))
	defer srv.Close()

	updated, err := New(srv.URL, "", srv.Client()).AssignBatch(context.Background(), "", []string{"a1", "a2"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated)
}
