package services

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"cratedigger/internal/apperrors"
	"cratedigger/internal/metrics"
	"cratedigger/internal/models"
	"cratedigger/internal/repositories"
)

const (
	DefaultSuggestLimit = 500
	MaxSuggestLimit     = 500
	MaxSuggestOffset    = 5000
)

type SuggestionService interface {
	Suggest(ctx context.Context, id models.Identity, req models.SuggestRequest) (*models.SuggestResponse, error)
}

// candidateFetcher loads unassigned albums for a crate the caller owns.
type candidateFetcher struct {
	crates    CrateService
	albumRepo repositories.AlbumRepository
}

func (f *candidateFetcher) fetch(ctx context.Context, userID, crateID string, offset, limit int, exclude map[string]struct{}) (*models.Crate, []models.SuggestionCandidate, error) {
	crate, err := f.crates.GetOwnedCrate(ctx, userID, crateID)
	if err != nil {
		return nil, nil, err
	}

	albums, err := f.albumRepo.FindUnassigned(ctx, userID, offset, limit)
	if err != nil {
		log.Error().Err(err).Str("userID", userID).Msg("Failed to fetch suggestion candidates")
		return nil, nil, apperrors.Internal("failed to fetch candidates", err)
	}

	candidates := make([]models.SuggestionCandidate, 0, len(albums))
	for _, a := range albums {
		if _, skip := exclude[a.AlbumID]; skip {
			continue
		}
		candidates = append(candidates, models.SuggestionCandidate{
			AlbumID:     a.AlbumID,
			AlbumName:   a.AlbumName,
			ArtistName:  a.ArtistName,
			ReleaseYear: a.ReleaseYear,
		})
	}
	return crate, candidates, nil
}

type suggestionService struct {
	fetcher  candidateFetcher
	enricher GenreEnricher
	tokens   AccessTokenProvider
	gateway  CompletionGateway
}

func NewSuggestionService(crates CrateService, albumRepo repositories.AlbumRepository, enricher GenreEnricher, tokens AccessTokenProvider, gateway CompletionGateway) SuggestionService {
	return &suggestionService{
		fetcher:  candidateFetcher{crates: crates, albumRepo: albumRepo},
		enricher: enricher,
		tokens:   tokens,
		gateway:  gateway,
	}
}

func clamp(v, lo, hi int) int {
	return max(lo, min(hi, v))
}

func (s *suggestionService) Suggest(ctx context.Context, id models.Identity, req models.SuggestRequest) (*models.SuggestResponse, error) {
	if !s.gateway.Configured() {
		metrics.SuggestionRequestsTotal.WithLabelValues("misconfigured").Inc()
		return nil, ErrCompletionNotConfigured
	}

	crateID := strings.TrimSpace(req.CrateID)
	if crateID == "" {
		return nil, apperrors.Validation("crate_id is required")
	}
	limit, offset := DefaultSuggestLimit, 0
	if req.Limit != nil {
		limit = clamp(*req.Limit, 1, MaxSuggestLimit)
	}
	if req.Offset != nil {
		offset = clamp(*req.Offset, 0, MaxSuggestOffset)
	}
	exclude := make([]string, 0, len(req.ExcludeAlbumIDs))
	excluded := make(map[string]struct{}, len(req.ExcludeAlbumIDs))
	for _, albumID := range req.ExcludeAlbumIDs {
		if albumID == "" {
			continue
		}
		if _, dup := excluded[albumID]; !dup {
			excluded[albumID] = struct{}{}
			exclude = append(exclude, albumID)
		}
	}

	userID := id.UserID()
	log.Debug().Str("userID", userID).Str("crateID", crateID).Int("offset", offset).Int("limit", limit).Int("excluded", len(exclude)).Msg("Generating crate suggestions")

	crate, candidates, err := s.fetcher.fetch(ctx, userID, crateID, offset, limit, excluded)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		metrics.SuggestionRequestsTotal.WithLabelValues("empty").Inc()
		return &models.SuggestResponse{Suggestions: []models.Suggestion{}, CandidatesCount: 0}, nil
	}

	genres := s.enricher.Enrich(ctx, s.accessToken(ctx, id), albumIDs(candidates))
	for i := range candidates {
		candidates[i].Genres = genres[candidates[i].AlbumID]
	}

	prompt := BuildSuggestionPrompt(crate, candidates, exclude)
	suggestions, err := s.gateway.SuggestAlbums(ctx, prompt, candidates)
	if err != nil {
		metrics.SuggestionRequestsTotal.WithLabelValues("failed").Inc()
		return nil, err
	}

	metrics.SuggestionRequestsTotal.WithLabelValues("success").Inc()
	metrics.AISuggestionsGeneratedTotal.Add(float64(len(suggestions)))
	log.Info().Str("userID", userID).Str("crateID", crateID).Int("candidates", len(candidates)).Int("suggestions", len(suggestions)).Msg("Crate suggestions generated")
	return &models.SuggestResponse{Suggestions: suggestions, CandidatesCount: len(candidates)}, nil
}

// accessToken returns "" when the caller has no usable Spotify session, which
// disables enrichment.
func (s *suggestionService) accessToken(ctx context.Context, id models.Identity) string {
	userID, err := sessionUserID(id)
	if err != nil {
		return ""
	}
	token, err := s.tokens.AccessToken(ctx, userID)
	if err != nil {
		log.Warn().Err(err).Str("userID", userID).Msg("No Spotify token for enrichment")
		return ""
	}
	return token
}

func albumIDs(candidates []models.SuggestionCandidate) []string {
	ids := make([]string, len(candidates))
	for i, c := range candidates {
		ids[i] = c.AlbumID
	}
	return ids
}
