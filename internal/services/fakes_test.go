package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/tmc/langchaingo/llms"
	"golang.org/x/oauth2"

	"cratedigger/internal/models"
	"cratedigger/internal/repositories"
	"cratedigger/internal/spotify"
)

type fakeCrateRepo struct {
	mu     sync.Mutex
	crates map[string]models.Crate
	err    error
}

func newFakeCrateRepo() *fakeCrateRepo {
	return &fakeCrateRepo{crates: map[string]models.Crate{}}
}

func (r *fakeCrateRepo) EnsureIndexes(context.Context) error { return nil }

func (r *fakeCrateRepo) Create(_ context.Context, c *models.Crate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	for _, existing := range r.crates {
		if existing.UserID == c.UserID && existing.Name == c.Name {
			return repositories.ErrDuplicateKey
		}
	}
	r.crates[c.ID] = *c
	return nil
}

func (r *fakeCrateRepo) FindByID(_ context.Context, id string) (*models.Crate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.crates[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &c, nil
}

func (r *fakeCrateRepo) FindByUser(_ context.Context, userID string) ([]models.Crate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.Crate{}
	for _, c := range r.crates {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

type fakeAlbumRepo struct {
	mu     sync.Mutex
	albums []models.SavedAlbum
}

func (r *fakeAlbumRepo) EnsureIndexes(context.Context) error { return nil }

func (r *fakeAlbumRepo) UpsertMany(_ context.Context, userID string, albums []models.SavedAlbum) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range albums {
		a.UserID = userID
		replaced := false
		for i := range r.albums {
			if r.albums[i].UserID == userID && r.albums[i].AlbumID == a.AlbumID {
				a.CrateID = r.albums[i].CrateID
				r.albums[i] = a
				replaced = true
			}
		}
		if !replaced {
			r.albums = append(r.albums, a)
		}
	}
	return len(albums), nil
}

func (r *fakeAlbumRepo) sorted(userID string, unassigned bool) []models.SavedAlbum {
	var out []models.SavedAlbum
	for _, a := range r.albums {
		if a.UserID != userID || (unassigned && a.CrateID != nil) {
			continue
		}
		out = append(out, a)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SavedAt.After(out[j].SavedAt) })
	return out
}

func (r *fakeAlbumRepo) FindByUser(_ context.Context, userID string) ([]models.SavedAlbum, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.sorted(userID, false)
	if out == nil {
		out = []models.SavedAlbum{}
	}
	return out, nil
}

func (r *fakeAlbumRepo) FindUnassigned(_ context.Context, userID string, offset, limit int) ([]models.SavedAlbum, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.sorted(userID, true)
	if offset >= len(out) {
		return []models.SavedAlbum{}, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeAlbumRepo) SetCrate(ctx context.Context, userID, albumID string, crateID *string) (int64, error) {
	return r.SetCrateMany(ctx, userID, []string{albumID}, crateID)
}

func (r *fakeAlbumRepo) SetCrateMany(_ context.Context, userID string, albumIDs []string, crateID *string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	want := map[string]bool{}
	for _, id := range albumIDs {
		want[id] = true
	}
	var n int64
	for i := range r.albums {
		if r.albums[i].UserID == userID && want[r.albums[i].AlbumID] {
			r.albums[i].CrateID = crateID
			n++
		}
	}
	return n, nil
}

type fakeUserRepo struct {
	mu      sync.Mutex
	users   map[string]models.User
	updates int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[string]models.User{}}
}

func (r *fakeUserRepo) Upsert(_ context.Context, u *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[u.ID] = *u
	return nil
}

func (r *fakeUserRepo) FindByID(_ context.Context, id string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &u, nil
}

func (r *fakeUserRepo) UpdateTokens(_ context.Context, id, access, refresh string, expiry time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return repositories.ErrNotFound
	}
	u.SealedAccessToken = access
	if refresh != "" {
		u.SealedRefreshToken = refresh
	}
	u.TokenExpiry = expiry
	r.users[id] = u
	r.updates++
	return nil
}

type fakeSpotify struct {
	mu          sync.Mutex
	saved       []spotify.SavedAlbum
	albums      map[string]spotify.Album
	artists     map[string]spotify.Artist
	err         error
	albumCalls  [][]string
	artistCalls [][]string
}

func (f *fakeSpotify) SavedAlbums(context.Context, string) ([]spotify.SavedAlbum, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.saved, nil
}

func (f *fakeSpotify) Albums(_ context.Context, _ string, ids []string) ([]spotify.Album, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.albumCalls = append(f.albumCalls, ids)
	if f.err != nil {
		return nil, f.err
	}
	var out []spotify.Album
	for _, id := range ids {
		if a, ok := f.albums[id]; ok {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeSpotify) Artists(_ context.Context, _ string, ids []string) ([]spotify.Artist, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.artistCalls = append(f.artistCalls, ids)
	var out []spotify.Artist
	for _, id := range ids {
		if a, ok := f.artists[id]; ok {
			out = append(out, a)
		}
	}
	return out, nil
}

type fakeTokens struct {
	token string
	err   error
	calls int
}

func (f *fakeTokens) AccessToken(context.Context, string) (string, error) {
	f.calls++
	return f.token, f.err
}

type fakeRefresher struct {
	mu    sync.Mutex
	calls int
	tok   *oauth2.Token
	err   error
	delay time.Duration
}

func (f *fakeRefresher) RefreshToken(string) (*oauth2.Token, error) {
	time.Sleep(f.delay)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.tok, f.err
}

type fakeLimiter struct {
	allow bool
	err   error
	keys  []string
}

func (f *fakeLimiter) Allow(_ context.Context, key string) (bool, error) {
	f.keys = append(f.keys, key)
	return f.allow, f.err
}

// fakeLLM answers every completion with content or err.
type fakeLLM struct {
	content  string
	err      error
	messages []llms.MessageContent
	opts     llms.CallOptions
}

func (f *fakeLLM) GenerateContent(_ context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	f.messages = messages
	for _, opt := range options {
		opt(&f.opts)
	}
	if f.err != nil {
		return nil, f.err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: f.content}}}, nil
}

func (f *fakeLLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

type fakeGateway struct {
	configured  bool
	suggestions []models.Suggestion
	err         error
	prompt      SuggestionPrompt
	candidates  []models.SuggestionCandidate
	calls       int
}

func (f *fakeGateway) Configured() bool { return f.configured }

func (f *fakeGateway) SuggestAlbums(_ context.Context, p SuggestionPrompt, c []models.SuggestionCandidate) ([]models.Suggestion, error) {
	f.calls++
	f.prompt = p
	f.candidates = c
	return f.suggestions, f.err
}

type fakeEnricher struct {
	genres map[string][]string
	token  string
}

func (f *fakeEnricher) Enrich(_ context.Context, token string, _ []string) map[string][]string {
	f.token = token
	if f.genres == nil {
		return map[string][]string{}
	}
	return f.genres
}

func strPtr(s string) *string { return &s }
func intPtr(v int) *int       { return &v }
