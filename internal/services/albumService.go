package services

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"cratedigger/internal/apperrors"
	"cratedigger/internal/metrics"
	"cratedigger/internal/models"
	"cratedigger/internal/repositories"
	"cratedigger/internal/spotify"
)

type AlbumService interface {
	// ListLive reads the saved albums straight from Spotify.
	ListLive(ctx context.Context, id models.Identity) ([]models.SavedAlbum, error)
	// ListCached reads the albums mirrored by the last resync.
	ListCached(ctx context.Context, userID string) ([]models.SavedAlbum, error)
	// Resync mirrors the full Spotify library into the store and returns the
	// number of albums written.
	Resync(ctx context.Context, id models.Identity) (int, error)
	// Eras groups cached albums by release year, newest first, unknown last.
	Eras(ctx context.Context, userID string) ([]models.Era, error)
}

type albumService struct {
	albumRepo repositories.AlbumRepository
	spotify   SpotifyClient
	tokens    AccessTokenProvider
}

func NewAlbumService(albumRepo repositories.AlbumRepository, spotifyClient SpotifyClient, tokens AccessTokenProvider) AlbumService {
	return &albumService{albumRepo: albumRepo, spotify: spotifyClient, tokens: tokens}
}

func (s *albumService) fetchLibrary(ctx context.Context, id models.Identity) (string, []models.SavedAlbum, error) {
	userID, err := sessionUserID(id)
	if err != nil {
		return "", nil, err
	}
	token, err := s.tokens.AccessToken(ctx, userID)
	if err != nil {
		return "", nil, err
	}
	items, err := s.spotify.SavedAlbums(ctx, token)
	if err != nil {
		log.Error().Err(err).Str("userID", userID).Msg("Failed to fetch saved albums from Spotify")
		return "", nil, upstreamError(err)
	}

	albums := make([]models.SavedAlbum, 0, len(items))
	for _, item := range items {
		albums = append(albums, toSavedAlbum(userID, item))
	}
	return userID, albums, nil
}

func (s *albumService) ListLive(ctx context.Context, id models.Identity) ([]models.SavedAlbum, error) {
	_, albums, err := s.fetchLibrary(ctx, id)
	return albums, err
}

func (s *albumService) ListCached(ctx context.Context, userID string) ([]models.SavedAlbum, error) {
	albums, err := s.albumRepo.FindByUser(ctx, userID)
	if err != nil {
		log.Error().Err(err).Str("userID", userID).Msg("Failed to retrieve saved albums")
		return nil, apperrors.Internal("failed to retrieve saved albums", err)
	}
	return albums, nil
}

func (s *albumService) Resync(ctx context.Context, id models.Identity) (int, error) {
	userID, albums, err := s.fetchLibrary(ctx, id)
	if err != nil {
		return 0, err
	}
	if len(albums) == 0 {
		log.Info().Str("userID", userID).Msg("Spotify library is empty, nothing to resync")
		return 0, nil
	}

	n, err := s.albumRepo.UpsertMany(ctx, userID, albums)
	if err != nil {
		log.Error().Err(err).Str("userID", userID).Msg("Failed to upsert saved albums")
		return 0, apperrors.Internal("failed to save albums", err)
	}
	metrics.AlbumsResyncedTotal.Add(float64(n))
	log.Info().Str("userID", userID).Int("count", n).Msg("Saved albums resynced")
	return n, nil
}

func (s *albumService) Eras(ctx context.Context, userID string) ([]models.Era, error) {
	albums, err := s.ListCached(ctx, userID)
	if err != nil {
		return nil, err
	}
	return groupByYear(albums), nil
}

// groupByYear keeps the saved_at order of albums within each era.
func groupByYear(albums []models.SavedAlbum) []models.Era {
	index := make(map[int]int)
	unknown := -1
	var eras []models.Era
	for _, a := range albums {
		if a.ReleaseYear == nil {
			if unknown < 0 {
				unknown = len(eras)
				eras = append(eras, models.Era{})
			}
			eras[unknown].Albums = append(eras[unknown].Albums, a)
			continue
		}
		i, ok := index[*a.ReleaseYear]
		if !ok {
			year := *a.ReleaseYear
			i = len(eras)
			index[year] = i
			eras = append(eras, models.Era{Year: &year})
		}
		eras[i].Albums = append(eras[i].Albums, a)
	}

	sort.SliceStable(eras, func(i, j int) bool {
		yi, yj := eras[i].Year, eras[j].Year
		switch {
		case yi == nil:
			return false
		case yj == nil:
			return true
		default:
			return *yi > *yj
		}
	})
	if eras == nil {
		eras = []models.Era{}
	}
	return eras
}

func toSavedAlbum(userID string, item spotify.SavedAlbum) models.SavedAlbum {
	a := item.Album
	names := make([]string, 0, len(a.Artists))
	for _, artist := range a.Artists {
		names = append(names, artist.Name)
	}
	images := make([]models.AlbumImage, 0, len(a.Images))
	for _, img := range a.Images {
		images = append(images, models.AlbumImage{URL: img.URL, Width: img.Width, Height: img.Height})
	}
	return models.SavedAlbum{
		UserID:      userID,
		AlbumID:     a.ID,
		AlbumName:   a.Name,
		ArtistName:  strings.Join(names, ", "),
		ReleaseYear: releaseYear(a.ReleaseDate),
		Images:      images,
		SpotifyURL:  a.ExternalURLs.Spotify,
		SavedAt:     item.AddedAt,
	}
}

// releaseYear reads the year from a Spotify release_date, which may be
// "1999", "1999-03" or "1999-03-01".
func releaseYear(date string) *int {
	if len(date) < 4 {
		return nil
	}
	year, err := strconv.Atoi(date[:4])
	if err != nil || year <= 0 {
		return nil
	}
	return &year
}
