package middlewares

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"cratedigger/internal/config"
	"cratedigger/internal/models"
	"cratedigger/internal/utils"
)

const SessionCookieName = "jwt"

// Auth resolves the caller once per request and stores it on the context.
// A verified session token yields a SessionIdentity; otherwise, outside
// production only, the configured development user is used.
type Auth struct {
	jwtSecret    []byte
	bypassUserID string
}

func NewAuth(cfg *config.Config) *Auth {
	a := &Auth{jwtSecret: []byte(cfg.JWTSecret)}
	if cfg.BypassEnabled() {
		a.bypassUserID = cfg.DevSpotifyUserID
		log.Warn().Str("userID", a.bypassUserID).Msg("Development auth bypass enabled")
	}
	return a
}

func (a *Auth) resolve(r *http.Request) (models.Identity, bool) {
	if token := sessionToken(r); token != "" {
		userID, err := utils.ParseJWT(a.jwtSecret, token)
		if err == nil {
			return models.SessionIdentity{ID: userID}, true
		}
		log.Debug().Err(err).Str("path", r.URL.Path).Msg("Rejected session token")
	}
	if a.bypassUserID != "" {
		return models.BypassIdentity{ID: a.bypassUserID}, true
	}
	return nil, false
}

func (a *Auth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := a.resolve(r)
		if !ok {
			utils.SendJSONError(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(utils.WithIdentity(r.Context(), id)))
	})
}

func sessionToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(header[len("Bearer "):])
	}
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		return cookie.Value
	}
	return ""
}
