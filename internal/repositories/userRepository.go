package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"cratedigger/internal/database"
	"cratedigger/internal/models"
	"cratedigger/internal/utils"
)

type UserRepository interface {
	// Upsert writes profile and token fields, keeping the original created_at.
	Upsert(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, userID string) (*models.User, error)
	UpdateTokens(ctx context.Context, userID, sealedAccess, sealedRefresh string, expiry time.Time) error
}

type userRepository struct {
	db database.Service
}

func NewUserRepository(db database.Service) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) collection() *mongo.Collection {
	return r.db.Collection(database.UsersCollection)
}

func (r *userRepository) Upsert(ctx context.Context, user *models.User) (err error) {
	done := utils.QueryTimer("upsert", "user")
	defer func() { done(err) }()

	now := time.Now().UTC()
	update := bson.M{
		"$set": bson.M{
			"display_name":  user.DisplayName,
			"email":         user.Email,
			"access_token":  user.SealedAccessToken,
			"refresh_token": user.SealedRefreshToken,
			"token_expiry":  user.TokenExpiry,
			"updated_at":    now,
		},
		"$setOnInsert": bson.M{"created_at": now},
	}
	_, err = r.collection().UpdateOne(ctx, bson.M{"_id": user.ID}, update, options.Update().SetUpsert(true))
	if err != nil {
		log.Error().Err(err).Str("userID", user.ID).Msg("Failed to upsert user")
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}

func (r *userRepository) FindByID(ctx context.Context, userID string) (user *models.User, err error) {
	done := utils.QueryTimer("findById", "user")
	defer func() { done(err) }()

	var u models.User
	err = r.collection().FindOne(ctx, bson.M{"_id": userID}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("database error finding user: %w", err)
	}
	return &u, nil
}

func (r *userRepository) UpdateTokens(ctx context.Context, userID, sealedAccess, sealedRefresh string, expiry time.Time) (err error) {
	done := utils.QueryTimer("updateTokens", "user")
	defer func() { done(err) }()

	set := bson.M{
		"access_token": sealedAccess,
		"token_expiry": expiry,
		"updated_at":   time.Now().UTC(),
	}
	// Spotify does not always rotate the refresh token.
	if sealedRefresh != "" {
		set["refresh_token"] = sealedRefresh
	}
	result, err := r.collection().UpdateOne(ctx, bson.M{"_id": userID}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to update user tokens: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
