package database

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	UsersCollection       = "users"
	CratesCollection      = "crates"
	SavedAlbumsCollection = "saved_albums"
)

type Service interface {
	Health() map[string]string
	Client() *mongo.Client
	Collection(name string) *mongo.Collection
	Close(ctx context.Context) error
}

type service struct {
	db     *mongo.Client
	dbName string
}

func New(ctx context.Context, uri, dbName string) (Service, error) {
	if uri == "" {
		return nil, fmt.Errorf("mongo uri is empty")
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	log.Info().Str("database", dbName).Msg("Connected to MongoDB")
	return &service{
		db:     client,
		dbName: dbName,
	}, nil
}

func (s *service) Health() map[string]string {
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	err := s.db.Ping(ctx, nil)
	if err != nil {
		log.Error().Err(err).Msg("Database health check failed")
		return map[string]string{
			"message": "db down",
			"error":   err.Error(),
		}
	}

	return map[string]string{
		"message": "It's healthy",
	}
}

func (s *service) Client() *mongo.Client {
	return s.db
}

func (s *service) Collection(name string) *mongo.Collection {
	return s.db.Database(s.dbName).Collection(name)
}

func (s *service) Close(ctx context.Context) error {
	return s.db.Disconnect(ctx)
}
