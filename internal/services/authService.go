package services

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/sessions"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	gothspotify "github.com/markbates/goth/providers/spotify"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"cratedigger/internal/apperrors"
	"cratedigger/internal/config"
	"cratedigger/internal/metrics"
	"cratedigger/internal/models"
	"cratedigger/internal/repositories"
	"cratedigger/internal/utils"
)

const (
	MaxAge = 86400 * 30

	// tokenExpiryLeeway refreshes tokens slightly before Spotify rejects them.
	tokenExpiryLeeway = 30 * time.Second
)

type AuthService interface {
	HandleLogin(ctx context.Context, u goth.User) (string, error)
	AccessToken(ctx context.Context, userID string) (string, error)
}

// TokenRefresher exchanges a refresh token for a new token pair. The goth
// Spotify provider implements it.
type TokenRefresher interface {
	RefreshToken(refreshToken string) (*oauth2.Token, error)
}

type authService struct {
	userRepo  repositories.UserRepository
	sealer    *utils.TokenSealer
	refresher TokenRefresher
	jwtSecret []byte
	jwtTTL    time.Duration
	refreshes singleflight.Group
	now       func() time.Time
}

func NewAuthService(userRepo repositories.UserRepository, sealer *utils.TokenSealer, refresher TokenRefresher, jwtSecret []byte, jwtTTL time.Duration) *authService {
	return &authService{
		userRepo:  userRepo,
		sealer:    sealer,
		refresher: refresher,
		jwtSecret: jwtSecret,
		jwtTTL:    jwtTTL,
		now:       time.Now,
	}
}

// InitializeGoth registers the Spotify provider and the cookie store gothic
// keeps OAuth state in. It must run once before the auth routes are served.
func InitializeGoth(cfg *config.Config) *gothspotify.Provider {
	sessionKey := cfg.SessionKey
	if sessionKey == "" {
		sessionKey = cfg.JWTSecret
	}
	store := sessions.NewCookieStore([]byte(sessionKey))
	store.MaxAge(MaxAge)

	store.Options.Path = "/"
	store.Options.HttpOnly = true
	store.Options.Secure = cfg.IsProduction()
	store.Options.SameSite = http.SameSiteLaxMode

	gothic.Store = store

	provider := gothspotify.New(
		cfg.SpotifyClientID,
		cfg.SpotifyClientSecret,
		cfg.BaseURL+"/api/auth/spotify/callback",
		cfg.SpotifyScopes...,
	)
	goth.UseProviders(provider)
	log.Info().Strs("scopes", cfg.SpotifyScopes).Msg("Goth providers initialized")
	return provider
}

func (a *authService) HandleLogin(ctx context.Context, u goth.User) (string, error) {
	log.Info().Str("userID", u.UserID).Msg("Attempting to handle login for user")
	if u.UserID == "" || u.AccessToken == "" {
		metrics.LoginAttemptsTotal.WithLabelValues("failed").Inc()
		log.Error().Msg("Missing user id or access token in Goth user data")
		return "", apperrors.Unauthorized("Spotify login returned no user")
	}

	sealedAccess, err := a.sealer.Seal(u.AccessToken)
	if err != nil {
		metrics.LoginAttemptsTotal.WithLabelValues("failed").Inc()
		return "", apperrors.Internal("error storing Spotify session", err)
	}
	sealedRefresh, err := a.sealer.Seal(u.RefreshToken)
	if err != nil {
		metrics.LoginAttemptsTotal.WithLabelValues("failed").Inc()
		return "", apperrors.Internal("error storing Spotify session", err)
	}

	user := &models.User{
		ID:                 u.UserID,
		DisplayName:        u.Name,
		Email:              u.Email,
		SealedAccessToken:  sealedAccess,
		SealedRefreshToken: sealedRefresh,
		TokenExpiry:        u.ExpiresAt,
	}
	if err := a.userRepo.Upsert(ctx, user); err != nil {
		metrics.LoginAttemptsTotal.WithLabelValues("failed").Inc()
		log.Error().Err(err).Str("userID", u.UserID).Msg("Error saving user")
		return "", apperrors.Internal("error saving user", err)
	}

	token, err := utils.GenerateJWT(a.jwtSecret, user.ID, a.jwtTTL)
	if err != nil {
		metrics.LoginAttemptsTotal.WithLabelValues("failed").Inc()
		log.Error().Err(err).Str("userID", user.ID).Msg("Error generating JWT for user")
		return "", apperrors.Internal("error generating JWT", err)
	}
	metrics.LoginAttemptsTotal.WithLabelValues("success").Inc()
	log.Info().Str("userID", user.ID).Msg("JWT generated successfully")

	return token, nil
}

// AccessToken returns the stored access token, refreshing it when it is about
// to expire. Concurrent refreshes for the same user share one call.
func (a *authService) AccessToken(ctx context.Context, userID string) (string, error) {
	user, err := a.userRepo.FindByID(ctx, userID)
	if errors.Is(err, repositories.ErrNotFound) {
		log.Warn().Str("userID", userID).Msg("No stored Spotify session for user")
		return "", apperrors.Unauthorized("Spotify session not found, please log in again")
	}
	if err != nil {
		return "", apperrors.Internal("error loading Spotify session", err)
	}

	if user.TokenExpiry.IsZero() || a.now().Add(tokenExpiryLeeway).Before(user.TokenExpiry) {
		token, err := a.sealer.Open(user.SealedAccessToken)
		if err != nil {
			return "", apperrors.Internal("error loading Spotify session", err)
		}
		if token != "" {
			return token, nil
		}
	}

	v, err, shared := a.refreshes.Do(userID, func() (interface{}, error) {
		return a.refresh(context.WithoutCancel(ctx), user)
	})
	if err != nil {
		return "", err
	}
	log.Debug().Str("userID", userID).Bool("shared", shared).Msg("Spotify access token refreshed")
	return v.(string), nil
}

func (a *authService) refresh(ctx context.Context, user *models.User) (string, error) {
	refreshToken, err := a.sealer.Open(user.SealedRefreshToken)
	if err != nil || refreshToken == "" {
		metrics.TokenRefreshesTotal.WithLabelValues("failed").Inc()
		return "", apperrors.Unauthorized("Spotify session expired, please log in again")
	}
	if a.refresher == nil {
		return "", apperrors.Configuration("Spotify token refresh is not configured")
	}

	tok, err := a.refresher.RefreshToken(refreshToken)
	if err != nil {
		metrics.TokenRefreshesTotal.WithLabelValues("failed").Inc()
		log.Warn().Err(err).Str("userID", user.ID).Msg("Failed to refresh Spotify access token")
		return "", apperrors.Unauthorized("Spotify session expired, please log in again")
	}

	sealedAccess, err := a.sealer.Seal(tok.AccessToken)
	if err != nil {
		return "", apperrors.Internal("error storing Spotify session", err)
	}
	var sealedRefresh string
	if tok.RefreshToken != "" && tok.RefreshToken != refreshToken {
		if sealedRefresh, err = a.sealer.Seal(tok.RefreshToken); err != nil {
			return "", apperrors.Internal("error storing Spotify session", err)
		}
	}
	if err := a.userRepo.UpdateTokens(ctx, user.ID, sealedAccess, sealedRefresh, tok.Expiry); err != nil {
		log.Error().Err(err).Str("userID", user.ID).Msg("Failed to persist refreshed token")
		return "", apperrors.Internal("error storing Spotify session", err)
	}
	metrics.TokenRefreshesTotal.WithLabelValues("success").Inc()
	return tok.AccessToken, nil
}
