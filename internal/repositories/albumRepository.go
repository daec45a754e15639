package repositories

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"cratedigger/internal/database"
	"cratedigger/internal/models"
	"cratedigger/internal/utils"
)

type AlbumRepository interface {
	EnsureIndexes(ctx context.Context) error
	// UpsertMany writes albums keyed by (user_id, album_id). Crate assignments
	// of existing rows are left untouched.
	UpsertMany(ctx context.Context, userID string, albums []models.SavedAlbum) (int, error)
	FindByUser(ctx context.Context, userID string) ([]models.SavedAlbum, error)
	// FindUnassigned returns albums without a crate, newest saves first.
	FindUnassigned(ctx context.Context, userID string, offset, limit int) ([]models.SavedAlbum, error)
	// SetCrate and SetCrateMany return the number of rows matched by user and album ids.
	SetCrate(ctx context.Context, userID, albumID string, crateID *string) (int64, error)
	SetCrateMany(ctx context.Context, userID string, albumIDs []string, crateID *string) (int64, error)
}

type albumRepository struct {
	db database.Service
}

func NewAlbumRepository(db database.Service) AlbumRepository {
	return &albumRepository{db: db}
}

func (r *albumRepository) collection() *mongo.Collection {
	return r.db.Collection(database.SavedAlbumsCollection)
}

func (r *albumRepository) EnsureIndexes(ctx context.Context) error {
	if err := utils.CreateUniqueIndex(ctx, r.collection(), bson.D{{Key: "user_id", Value: 1}, {Key: "album_id", Value: 1}}, "Saved album"); err != nil {
		return err
	}
	_, err := r.collection().Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "crate_id", Value: 1}, {Key: "saved_at", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create candidate index: %w", err)
	}
	return nil
}

func (r *albumRepository) UpsertMany(ctx context.Context, userID string, albums []models.SavedAlbum) (n int, err error) {
	if len(albums) == 0 {
		return 0, nil
	}
	done := utils.QueryTimer("upsertMany", "album")
	defer func() { done(err) }()

	writes := make([]mongo.WriteModel, 0, len(albums))
	for _, a := range albums {
		set := bson.M{
			"album_name":  a.AlbumName,
			"artist_name": a.ArtistName,
			"images":      a.Images,
			"spotify_url": a.SpotifyURL,
			"saved_at":    a.SavedAt,
		}
		if a.ReleaseYear != nil {
			set["release_year"] = *a.ReleaseYear
		}
		writes = append(writes, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"user_id": userID, "album_id": a.AlbumID}).
			SetUpdate(bson.M{
				"$set":         set,
				"$setOnInsert": bson.M{"crate_id": nil},
			}).
			SetUpsert(true))
	}

	if _, err = r.collection().BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(false)); err != nil {
		return 0, fmt.Errorf("failed to upsert saved albums: %w", err)
	}
	return len(albums), nil
}

func (r *albumRepository) FindByUser(ctx context.Context, userID string) (albums []models.SavedAlbum, err error) {
	done := utils.QueryTimer("findByUser", "album")
	defer func() { done(err) }()

	opts := options.Find().SetSort(bson.D{{Key: "saved_at", Value: -1}})
	return r.find(ctx, bson.M{"user_id": userID}, opts)
}

func (r *albumRepository) FindUnassigned(ctx context.Context, userID string, offset, limit int) (albums []models.SavedAlbum, err error) {
	done := utils.QueryTimer("findUnassigned", "album")
	defer func() { done(err) }()

	opts := options.Find().
		SetSort(bson.D{{Key: "saved_at", Value: -1}, {Key: "album_id", Value: 1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))
	return r.find(ctx, bson.M{"user_id": userID, "crate_id": nil}, opts)
}

func (r *albumRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.SavedAlbum, error) {
	cursor, err := r.collection().Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve saved albums: %w", err)
	}
	defer cursor.Close(ctx)

	albums := []models.SavedAlbum{}
	if err := cursor.All(ctx, &albums); err != nil {
		return nil, fmt.Errorf("error decoding saved albums: %w", err)
	}
	return albums, nil
}

func (r *albumRepository) SetCrate(ctx context.Context, userID, albumID string, crateID *string) (matched int64, err error) {
	done := utils.QueryTimer("setCrate", "album")
	defer func() { done(err) }()

	result, err := r.collection().UpdateOne(ctx,
		bson.M{"user_id": userID, "album_id": albumID},
		bson.M{"$set": bson.M{"crate_id": crateID}},
	)
	if err != nil {
		return 0, fmt.Errorf("failed to update album crate: %w", err)
	}
	return result.MatchedCount, nil
}

func (r *albumRepository) SetCrateMany(ctx context.Context, userID string, albumIDs []string, crateID *string) (matched int64, err error) {
	if len(albumIDs) == 0 {
		return 0, nil
	}
	done := utils.QueryTimer("setCrateMany", "album")
	defer func() { done(err) }()

	result, err := r.collection().UpdateMany(ctx,
		bson.M{"user_id": userID, "album_id": bson.M{"$in": albumIDs}},
		bson.M{"$set": bson.M{"crate_id": crateID}},
	)
	if err != nil {
		return 0, fmt.Errorf("failed to update album crates: %w", err)
	}
	return result.MatchedCount, nil
}
