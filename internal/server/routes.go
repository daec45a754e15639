package server

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"cratedigger/internal/handlers"
)

func (s *Server) RegisterRoutes() http.Handler {
	r := mux.NewRouter()

	r.Use(s.metrics.Instrument)
	r.Use(s.cors)

	ch := handlers.NewCommonHandler(s.db)
	r.Handle("/health", s.public(ch.HealthHandler)).Methods("GET")
	r.Handle("/metrics", s.throttle.Middleware(promhttp.Handler())).Methods("GET")

	s.registerAuthRoutes(r)
	s.registerCrateRoutes(r)
	s.registerAlbumRoutes(r)

	return r
}

// public routes are throttled per client IP.
func (s *Server) public(h http.HandlerFunc) http.Handler {
	return s.throttle.Middleware(h)
}

// protected routes resolve the caller first so the throttle keys on the user.
func (s *Server) protected(h http.HandlerFunc) http.Handler {
	return s.auth.Middleware(s.throttle.Middleware(h))
}

func (s *Server) registerAuthRoutes(r *mux.Router) {
	ah := handlers.NewAuthHandler(s.authService, s.cfg.IsProduction())

	r.Handle("/api/auth/success", s.public(ah.AuthSuccess)).Methods("GET", "OPTIONS")
	r.Handle("/api/auth/error", s.public(ah.AuthError)).Methods("GET", "OPTIONS")
	r.Handle("/api/auth/{provider}", s.public(ah.ProviderAuth)).Methods("GET", "OPTIONS")
	r.Handle("/api/auth/{provider}/callback", s.public(ah.ProviderCallback)).Methods("GET", "OPTIONS")
	r.Handle("/api/spotify-token", s.protected(ah.SpotifyToken)).Methods("GET", "OPTIONS")
}

func (s *Server) registerCrateRoutes(r *mux.Router) {
	ch := handlers.NewCrateHandler(s.crateService, s.suggestionService)

	r.Handle("/api/crates", s.protected(ch.CreateCrate)).Methods("POST", "OPTIONS")
	r.Handle("/api/crates", s.protected(ch.GetCrates)).Methods("GET", "OPTIONS")
	r.Handle("/api/crates/suggest", s.protected(ch.SuggestAlbums)).Methods("POST", "OPTIONS")
}

func (s *Server) registerAlbumRoutes(r *mux.Router) {
	ah := handlers.NewAlbumHandler(s.albumService, s.assignmentService)

	r.Handle("/api/albums", s.protected(ah.GetLiveAlbums)).Methods("GET", "OPTIONS")
	r.Handle("/api/my-albums", s.protected(ah.GetMyAlbums)).Methods("GET", "OPTIONS")
	r.Handle("/api/eras", s.protected(ah.GetEras)).Methods("GET", "OPTIONS")
	r.Handle("/api/save-albums", s.protected(ah.SaveAlbums)).Methods("POST", "OPTIONS")
	r.Handle("/api/album-crate", s.protected(ah.AssignAlbum)).Methods("POST", "OPTIONS")
	r.Handle("/api/album-crate", s.protected(ah.ClearAlbum)).Methods("DELETE", "OPTIONS")
	r.Handle("/api/album-crate/batch", s.protected(ah.AssignBatch)).Methods("POST", "OPTIONS")
}
