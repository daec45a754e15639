package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/rs/zerolog/log"

	"cratedigger/internal/middlewares"
	"cratedigger/internal/models"
	"cratedigger/internal/services"
	"cratedigger/internal/utils"
)

type AuthHandler struct {
	authService  services.AuthService
	secureCookie bool

	// swapped in tests
	beginAuth    func(http.ResponseWriter, *http.Request)
	completeAuth func(http.ResponseWriter, *http.Request) (goth.User, error)
}

func NewAuthHandler(authService services.AuthService, secureCookie bool) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		secureCookie: secureCookie,
		beginAuth:    gothic.BeginAuthHandler,
		completeAuth: gothic.CompleteUserAuth,
	}
}

func (a *AuthHandler) ProviderAuth(w http.ResponseWriter, r *http.Request) {
	provider := mux.Vars(r)["provider"]
	if provider == "" {
		log.Error().Msg("Provider not specified in URL")
		utils.SendJSONError(w, "Provider not specified", http.StatusBadRequest)
		return
	}

	log.Info().Str("provider", provider).Msg("Initiating authentication with provider")
	a.beginAuth(w, r)
}

func (a *AuthHandler) ProviderCallback(w http.ResponseWriter, r *http.Request) {
	user, err := a.completeAuth(w, r)
	if err != nil {
		log.Error().Err(err).Msg("Error completing user authentication")
		http.Redirect(w, r, "/api/auth/error", http.StatusTemporaryRedirect)
		return
	}

	token, err := a.authService.HandleLogin(r.Context(), user)
	if err != nil {
		log.Error().Err(err).Str("userID", user.UserID).Msg("Error handling login after provider authentication")
		http.Redirect(w, r, "/api/auth/error", http.StatusTemporaryRedirect)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middlewares.SessionCookieName,
		Value:    token,
		HttpOnly: true,
		Secure:   a.secureCookie,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
	})
	log.Info().Str("userID", user.UserID).Msg("Session cookie set")

	http.Redirect(w, r, "/api/auth/success", http.StatusTemporaryRedirect)
}

func (a *AuthHandler) AuthSuccess(w http.ResponseWriter, r *http.Request) {
	utils.RespondWithJSON(w, http.StatusOK, models.OKResponse{OK: true})
}

func (a *AuthHandler) AuthError(w http.ResponseWriter, r *http.Request) {
	utils.SendJSONError(w, "Authentication failed. Please try again.", http.StatusUnauthorized)
}

// SpotifyToken hands the caller a fresh access token for client-side playback.
func (a *AuthHandler) SpotifyToken(w http.ResponseWriter, r *http.Request) {
	id, ok := utils.GetIdentity(w, r)
	if !ok {
		return
	}
	session, ok := id.(models.SessionIdentity)
	if !ok {
		utils.SendJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	token, err := a.authService.AccessToken(r.Context(), session.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, models.SpotifyTokenResponse{AccessToken: token})
}
