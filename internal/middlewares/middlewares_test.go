package middlewares

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cratedigger/internal/config"
	"cratedigger/internal/models"
	"cratedigger/internal/utils"
)

func identityEcho(t *testing.T) (http.Handler, *models.Identity) {
	var got models.Identity
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := utils.IdentityFromContext(r.Context())
		require.True(t, ok)
		got = id
		w.WriteHeader(http.StatusNoContent)
	}), &got
}

func TestAuthMiddleware(t *testing.T) {
	cfg := &config.Config{Env: "development", JWTSecret: "secret"}
	token, err := utils.GenerateJWT([]byte("secret"), "spotify-1", time.Hour)
	require.NoError(t, err)

	t.Run("bearer token", func(t *testing.T) {
		next, got := identityEcho(t)
		req := httptest.NewRequest(http.MethodGet, "/api/crates", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		NewAuth(cfg).Middleware(next).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, models.SessionIdentity{ID: "spotify-1"}, *got)
	})

	t.Run("session cookie", func(t *testing.T) {
		next, got := identityEcho(t)
		req := httptest.NewRequest(http.MethodGet, "/api/crates", nil)
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: token})
		rec := httptest.NewRecorder()
		NewAuth(cfg).Middleware(next).ServeHTTP(rec, req)

		assert.Equal(t, models.SessionIdentity{ID: "spotify-1"}, *got)
	})

	t.Run("missing token without bypass", func(t *testing.T) {
		next, _ := identityEcho(t)
		rec := httptest.NewRecorder()
		NewAuth(cfg).Middleware(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/crates", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.JSONEq(t, `{"error":"Unauthorized"}`, rec.Body.String())
	})

	t.Run("invalid token without bypass", func(t *testing.T) {
		next, _ := identityEcho(t)
		req := httptest.NewRequest(http.MethodGet, "/api/crates", nil)
		req.Header.Set("Authorization", "Bearer not-a-jwt")
		rec := httptest.NewRecorder()
		NewAuth(cfg).Middleware(next).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("bypass outside production", func(t *testing.T) {
		dev := *cfg
		dev.DevSpotifyUserID = "dev-user"
		next, got := identityEcho(t)
		rec := httptest.NewRecorder()
		NewAuth(&dev).Middleware(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/crates", nil))

		assert.Equal(t, models.BypassIdentity{ID: "dev-user"}, *got)
	})

	t.Run("session wins over bypass", func(t *testing.T) {
		dev := *cfg
		dev.DevSpotifyUserID = "dev-user"
		next, got := identityEcho(t)
		req := httptest.NewRequest(http.MethodGet, "/api/crates", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		NewAuth(&dev).Middleware(next).ServeHTTP(httptest.NewRecorder(), req)

		assert.Equal(t, models.SessionIdentity{ID: "spotify-1"}, *got)
	})

	t.Run("no bypass in production", func(t *testing.T) {
		prod := *cfg
		prod.Env = "production"
		prod.DevSpotifyUserID = "dev-user"
		next, _ := identityEcho(t)
		rec := httptest.NewRecorder()
		NewAuth(&prod).Middleware(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/crates", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestCors(t *testing.T) {
	handler := Cors([]string{"http://app.test"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/crates", nil)
	req.Header.Set("Origin", "http://app.test")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Less(t, rec.Code, http.StatusMultipleChoices)
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
	assert.Equal(t, "http://app.test", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/crates", nil)
	req.Header.Set("Origin", "http://evil.test")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimiter(t *testing.T) {
	l := NewRateLimiter(1, 2)
	handler := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/crates", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{200, 200, 429}, codes)

	req := httptest.NewRequest(http.MethodGet, "/api/crates", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPrometheusMiddlewareUsesRouteTemplate(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPrometheusMiddleware(reg)

	r := mux.NewRouter()
	r.Use(m.Instrument)
	r.HandleFunc("/api/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/items/1", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/items/2", nil))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.totalRequests.WithLabelValues("GET", "/api/items/{id}", "418")))
}
