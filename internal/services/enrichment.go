package services

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"cratedigger/internal/metrics"
	"cratedigger/internal/spotify"
)

// maxGenres caps genres per artist and per album to keep prompts small.
const maxGenres = 5

// GenreEnricher maps album ids to genre tags. It is best-effort and never
// fails: on any error the result is empty.
type GenreEnricher interface {
	Enrich(ctx context.Context, token string, albumIDs []string) map[string][]string
}

type spotifyGenreEnricher struct {
	client SpotifyClient
}

func NewGenreEnricher(client SpotifyClient) GenreEnricher {
	return &spotifyGenreEnricher{client: client}
}

func (e *spotifyGenreEnricher) Enrich(ctx context.Context, token string, albumIDs []string) map[string][]string {
	if token == "" || len(albumIDs) == 0 {
		return map[string][]string{}
	}
	genres, err := e.lookup(ctx, token, albumIDs)
	if err != nil {
		metrics.EnrichmentFailuresTotal.Inc()
		log.Warn().Err(err).Int("albums", len(albumIDs)).Msg("Genre enrichment failed, continuing without genres")
		return map[string][]string{}
	}
	return genres
}

func (e *spotifyGenreEnricher) lookup(ctx context.Context, token string, albumIDs []string) (map[string][]string, error) {
	artistsByAlbum := make(map[string][]string, len(albumIDs))
	var artistIDs []string
	seenArtist := make(map[string]struct{})

	for _, chunk := range chunkIDs(albumIDs, spotify.MaxAlbumIDs) {
		albums, err := e.client.Albums(ctx, token, chunk)
		if err != nil {
			return nil, fmt.Errorf("album lookup: %w", err)
		}
		for _, a := range albums {
			ids := make([]string, 0, len(a.Artists))
			for _, artist := range a.Artists {
				if artist.ID == "" {
					continue
				}
				ids = append(ids, artist.ID)
				if _, ok := seenArtist[artist.ID]; !ok {
					seenArtist[artist.ID] = struct{}{}
					artistIDs = append(artistIDs, artist.ID)
				}
			}
			artistsByAlbum[a.ID] = ids
		}
	}

	genresByArtist := make(map[string][]string, len(artistIDs))
	for _, chunk := range chunkIDs(artistIDs, spotify.MaxArtistIDs) {
		artists, err := e.client.Artists(ctx, token, chunk)
		if err != nil {
			return nil, fmt.Errorf("artist lookup: %w", err)
		}
		for _, a := range artists {
			g := a.Genres
			if len(g) > maxGenres {
				g = g[:maxGenres]
			}
			genresByArtist[a.ID] = g
		}
	}

	result := make(map[string][]string, len(artistsByAlbum))
	for albumID, ids := range artistsByAlbum {
		var merged []string
		seen := make(map[string]struct{})
		for _, artistID := range ids {
			for _, g := range genresByArtist[artistID] {
				if _, ok := seen[g]; ok {
					continue
				}
				seen[g] = struct{}{}
				merged = append(merged, g)
			}
		}
		if len(merged) > maxGenres {
			merged = merged[:maxGenres]
		}
		result[albumID] = merged
	}
	return result, nil
}

func chunkIDs(ids []string, size int) [][]string {
	var chunks [][]string
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		chunks = append(chunks, ids[start:end])
	}
	return chunks
}
