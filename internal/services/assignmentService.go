package services

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"cratedigger/internal/apperrors"
	"cratedigger/internal/metrics"
	"cratedigger/internal/models"
	"cratedigger/internal/ratelimit"
	"cratedigger/internal/repositories"
	"cratedigger/internal/validation"
)

type AssignmentService interface {
	// Assign puts one album into a crate, or clears it when CrateID is empty.
	Assign(ctx context.Context, userID string, req models.AssignAlbumRequest) error
	Clear(ctx context.Context, userID, albumID string) error
	// AssignBatch returns the number of the user's albums matched by the
	// requested ids.
	AssignBatch(ctx context.Context, userID string, req models.BatchAssignRequest) (int64, error)
}

type assignmentService struct {
	albumRepo repositories.AlbumRepository
	crates    CrateService
	limiter   ratelimit.Limiter
}

func NewAssignmentService(albumRepo repositories.AlbumRepository, crates CrateService, limiter ratelimit.Limiter) AssignmentService {
	return &assignmentService{albumRepo: albumRepo, crates: crates, limiter: limiter}
}

func normalizeCrateID(crateID *string) *string {
	if crateID == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*crateID)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func (s *assignmentService) checkCrate(ctx context.Context, userID string, crateID *string) error {
	if crateID == nil {
		return nil
	}
	_, err := s.crates.GetOwnedCrate(ctx, userID, *crateID)
	return err
}

func (s *assignmentService) Assign(ctx context.Context, userID string, req models.AssignAlbumRequest) error {
	req.AlbumID = strings.TrimSpace(req.AlbumID)
	if err := validation.Validate(req); err != nil {
		return err
	}
	crateID := normalizeCrateID(req.CrateID)
	if err := s.checkCrate(ctx, userID, crateID); err != nil {
		return err
	}

	matched, err := s.albumRepo.SetCrate(ctx, userID, req.AlbumID, crateID)
	if err != nil {
		log.Error().Err(err).Str("userID", userID).Str("albumID", req.AlbumID).Msg("Failed to update album crate")
		return apperrors.Internal("failed to update album", err)
	}
	mode := "single"
	if crateID == nil {
		mode = "clear"
	}
	metrics.AlbumsAssignedTotal.WithLabelValues(mode).Add(float64(matched))
	log.Info().Str("userID", userID).Str("albumID", req.AlbumID).Int64("matched", matched).Msg("Album crate updated")
	return nil
}

func (s *assignmentService) Clear(ctx context.Context, userID, albumID string) error {
	return s.Assign(ctx, userID, models.AssignAlbumRequest{AlbumID: albumID})
}

func (s *assignmentService) AssignBatch(ctx context.Context, userID string, req models.BatchAssignRequest) (int64, error) {
	if err := validation.Validate(req); err != nil {
		return 0, err
	}

	allowed, err := s.limiter.Allow(ctx, "batch:"+userID)
	if err != nil {
		// Fails open: the limit is advisory.
		log.Error().Err(err).Str("userID", userID).Msg("Batch rate limiter unavailable")
		allowed = true
	}
	if !allowed {
		metrics.RateLimitRejectionsTotal.WithLabelValues("batch").Inc()
		log.Warn().Str("userID", userID).Msg("Batch assignment rate limit exceeded")
		return 0, apperrors.ErrRateLimited
	}

	crateID := normalizeCrateID(req.CrateID)
	if err := s.checkCrate(ctx, userID, crateID); err != nil {
		return 0, err
	}

	matched, err := s.albumRepo.SetCrateMany(ctx, userID, req.AlbumIDs, crateID)
	if err != nil {
		log.Error().Err(err).Str("userID", userID).Int("albums", len(req.AlbumIDs)).Msg("Failed to update album crates")
		return 0, apperrors.Internal("failed to update albums", err)
	}
	metrics.AlbumsAssignedTotal.WithLabelValues("batch").Add(float64(matched))
	log.Info().Str("userID", userID).Int("requested", len(req.AlbumIDs)).Int64("updated", matched).Msg("Batch crate assignment applied")
	return matched, nil
}
