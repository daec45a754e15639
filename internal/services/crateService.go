package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"cratedigger/internal/apperrors"
	"cratedigger/internal/metrics"
	"cratedigger/internal/models"
	"cratedigger/internal/repositories"
	"cratedigger/internal/validation"
)

var errCrateNotFound = apperrors.NotFound("Crate not found")

type CrateService interface {
	CreateCrate(ctx context.Context, userID string, req models.CreateCrateRequest) (*models.Crate, error)
	GetCrates(ctx context.Context, userID string) ([]models.Crate, error)
	// GetOwnedCrate returns NotFound both for unknown crates and for crates of
	// other users.
	GetOwnedCrate(ctx context.Context, userID, crateID string) (*models.Crate, error)
}

type crateService struct {
	crateRepo repositories.CrateRepository
	now       func() time.Time
}

func NewCrateService(crateRepo repositories.CrateRepository) CrateService {
	return &crateService{crateRepo: crateRepo, now: time.Now}
}

func (s *crateService) CreateCrate(ctx context.Context, userID string, req models.CreateCrateRequest) (*models.Crate, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Description = strings.TrimSpace(req.Description)
	log.Debug().Str("userID", userID).Str("crateName", req.Name).Msg("Attempting to create crate")

	if err := validation.Validate(req); err != nil {
		return nil, err
	}

	crate := &models.Crate{
		ID:          uuid.NewString(),
		UserID:      userID,
		Name:        req.Name,
		Description: req.Description,
		CreatedAt:   s.now().UTC().Truncate(time.Millisecond),
	}
	if err := s.crateRepo.Create(ctx, crate); err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			log.Warn().Str("userID", userID).Str("crateName", req.Name).Msg("Crate name already exists for this user")
			return nil, apperrors.Conflict("Crate name already exists")
		}
		log.Error().Err(err).Str("userID", userID).Msg("Failed to insert crate")
		return nil, apperrors.Internal("failed to create crate", err)
	}

	metrics.CrateCreatedTotal.Inc()
	log.Info().Str("userID", userID).Str("crateID", crate.ID).Str("crateName", crate.Name).Msg("Crate created successfully")
	return crate, nil
}

func (s *crateService) GetCrates(ctx context.Context, userID string) ([]models.Crate, error) {
	crates, err := s.crateRepo.FindByUser(ctx, userID)
	if err != nil {
		log.Error().Err(err).Str("userID", userID).Msg("Database error fetching crates")
		return nil, apperrors.Internal("failed to fetch crates", err)
	}
	log.Debug().Str("userID", userID).Int("count", len(crates)).Msg("Successfully retrieved crates")
	return crates, nil
}

func (s *crateService) GetOwnedCrate(ctx context.Context, userID, crateID string) (*models.Crate, error) {
	crate, err := s.crateRepo.FindByID(ctx, crateID)
	if errors.Is(err, repositories.ErrNotFound) {
		log.Warn().Str("userID", userID).Str("crateID", crateID).Msg("Crate not found")
		return nil, errCrateNotFound
	}
	if err != nil {
		log.Error().Err(err).Str("crateID", crateID).Msg("Database error finding crate")
		return nil, apperrors.Internal("failed to load crate", err)
	}
	if crate.UserID != userID {
		log.Warn().Str("userID", userID).Str("crateID", crateID).Msg("Crate belongs to another user")
		return nil, errCrateNotFound
	}
	return crate, nil
}
