package utils

import (
	"context"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"cratedigger/internal/models"
)

type contextKey string

const identityKey contextKey = "identity"

// WithIdentity stores the resolved caller on ctx.
func WithIdentity(ctx context.Context, id models.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext returns the caller resolved by the auth middleware.
func IdentityFromContext(ctx context.Context) (models.Identity, bool) {
	id, ok := ctx.Value(identityKey).(models.Identity)
	return id, ok && id != nil
}

// GetIdentity extracts the caller or writes a 401.
func GetIdentity(w http.ResponseWriter, r *http.Request) (models.Identity, bool) {
	id, ok := IdentityFromContext(r.Context())
	if !ok {
		SendJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return nil, false
	}
	return id, true
}

// DecodeJSON decodes the request body or writes a 400.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		log.Warn().Err(err).Str("path", r.URL.Path).Msg("Invalid JSON input")
		SendJSONError(w, "Invalid JSON input: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func RespondWithJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("Error encoding JSON response")
	}
}

func SendJSONError(w http.ResponseWriter, message string, status int) {
	RespondWithJSON(w, status, map[string]string{"error": message})
}
