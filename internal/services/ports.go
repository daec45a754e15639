package services

import (
	"context"
	"errors"
	"fmt"

	"cratedigger/internal/apperrors"
	"cratedigger/internal/models"
	"cratedigger/internal/spotify"
)

// SpotifyClient is the subset of the Spotify Web API the services call.
type SpotifyClient interface {
	SavedAlbums(ctx context.Context, token string) ([]spotify.SavedAlbum, error)
	Albums(ctx context.Context, token string, ids []string) ([]spotify.Album, error)
	Artists(ctx context.Context, token string, ids []string) ([]spotify.Artist, error)
}

// AccessTokenProvider returns a usable Spotify access token for a user.
type AccessTokenProvider interface {
	AccessToken(ctx context.Context, userID string) (string, error)
}

var errSessionRequired = apperrors.Unauthorized("Unauthorized")

// sessionUserID rejects identities that carry no Spotify credentials.
func sessionUserID(id models.Identity) (string, error) {
	switch v := id.(type) {
	case models.SessionIdentity:
		return v.ID, nil
	default:
		return "", errSessionRequired
	}
}

func upstreamError(err error) error {
	var apiErr *spotify.APIError
	if errors.As(err, &apiErr) {
		return apperrors.Upstream(apiErr.Error()).WithCause(err)
	}
	var coded *apperrors.Error
	if errors.As(err, &coded) {
		return err
	}
	return apperrors.Upstream(fmt.Sprintf("Spotify request failed: %v", err)).WithCause(err)
}
