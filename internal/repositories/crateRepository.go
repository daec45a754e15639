package repositories

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"cratedigger/internal/database"
	"cratedigger/internal/models"
	"cratedigger/internal/utils"
)

type CrateRepository interface {
	EnsureIndexes(ctx context.Context) error
	Create(ctx context.Context, crate *models.Crate) error
	FindByID(ctx context.Context, crateID string) (*models.Crate, error)
	FindByUser(ctx context.Context, userID string) ([]models.Crate, error)
}

type crateRepository struct {
	db database.Service
}

func NewCrateRepository(db database.Service) CrateRepository {
	return &crateRepository{db: db}
}

func (r *crateRepository) collection() *mongo.Collection {
	return r.db.Collection(database.CratesCollection)
}

func (r *crateRepository) EnsureIndexes(ctx context.Context) error {
	if err := utils.CreateUniqueIndex(ctx, r.collection(), bson.D{{Key: "user_id", Value: 1}, {Key: "name", Value: 1}}, "Crate name"); err != nil {
		return err
	}
	_, err := r.collection().Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create crate listing index: %w", err)
	}
	return nil
}

func (r *crateRepository) Create(ctx context.Context, crate *models.Crate) (err error) {
	done := utils.QueryTimer("create", "crate")
	defer func() { done(err) }()

	if _, err = r.collection().InsertOne(ctx, crate); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("failed to insert crate: %w", err)
	}
	return nil
}

func (r *crateRepository) FindByID(ctx context.Context, crateID string) (crate *models.Crate, err error) {
	done := utils.QueryTimer("findByID", "crate")
	defer func() { done(err) }()

	var c models.Crate
	err = r.collection().FindOne(ctx, bson.M{"_id": crateID}).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("database error finding crate: %w", err)
	}
	return &c, nil
}

func (r *crateRepository) FindByUser(ctx context.Context, userID string) (crates []models.Crate, err error) {
	done := utils.QueryTimer("findByUser", "crate")
	defer func() { done(err) }()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.collection().Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("database error fetching crates: %w", err)
	}
	defer cursor.Close(ctx)

	results := []models.Crate{}
	if err = cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("error decoding crate results: %w", err)
	}
	return results, nil
}
