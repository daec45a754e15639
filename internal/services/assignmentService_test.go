package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cratedigger/internal/apperrors"
	"cratedigger/internal/models"
	"cratedigger/internal/ratelimit"
)

type assignmentFixture struct {
	albums  *fakeAlbumRepo
	crates  CrateService
	limiter *fakeLimiter
	svc     AssignmentService
	crateID string
}

func newAssignmentFixture(t *testing.T) *assignmentFixture {
	t.Helper()
	albums := &fakeAlbumRepo{}
	_, err := albums.UpsertMany(context.Background(), "u1", []models.SavedAlbum{
		{AlbumID: "a1", SavedAt: time.Now()},
		{AlbumID: "a2", SavedAt: time.Now()},
		{AlbumID: "a3", SavedAt: time.Now()},
	})
	require.NoError(t, err)

	crates := NewCrateService(newFakeCrateRepo())
	crate, err := crates.CreateCrate(context.Background(), "u1", models.CreateCrateRequest{Name: "Soul"})
	require.NoError(t, err)

	limiter := &fakeLimiter{allow: true}
	return &assignmentFixture{
		albums:  albums,
		crates:  crates,
		limiter: limiter,
		svc:     NewAssignmentService(albums, crates, limiter),
		crateID: crate.ID,
	}
}

func TestAssign(t *testing.T) {
	ctx := context.Background()
	f := newAssignmentFixture(t)

	require.NoError(t, f.svc.Assign(ctx, "u1", models.AssignAlbumRequest{AlbumID: "a1", CrateID: &f.crateID}))
	assert.Equal(t, f.crateID, *f.albums.albums[0].CrateID)

	t.Run("missing album id", func(t *testing.T) {
		err := f.svc.Assign(ctx, "u1", models.AssignAlbumRequest{AlbumID: " "})
		assert.ErrorIs(t, err, apperrors.ErrValidation)
		assert.Equal(t, "album_id is required", apperrors.Message(err))
	})

	t.Run("foreign crate", func(t *testing.T) {
		other, err := f.crates.CreateCrate(ctx, "u2", models.CreateCrateRequest{Name: "Theirs"})
		require.NoError(t, err)
		err = f.svc.Assign(ctx, "u1", models.AssignAlbumRequest{AlbumID: "a2", CrateID: &other.ID})
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
		assert.Nil(t, f.albums.albums[1].CrateID)
	})

	t.Run("clear is idempotent", func(t *testing.T) {
		require.NoError(t, f.svc.Clear(ctx, "u1", "a1"))
		assert.Nil(t, f.albums.albums[0].CrateID)
		require.NoError(t, f.svc.Clear(ctx, "u1", "a1"))
		require.NoError(t, f.svc.Clear(ctx, "u1", "never-saved"))
	})

	t.Run("empty crate id clears", func(t *testing.T) {
		require.NoError(t, f.svc.Assign(ctx, "u1", models.AssignAlbumRequest{AlbumID: "a3", CrateID: &f.crateID}))
		require.NoError(t, f.svc.Assign(ctx, "u1", models.AssignAlbumRequest{AlbumID: "a3", CrateID: strPtr("")}))
		assert.Nil(t, f.albums.albums[2].CrateID)
	})
}

func TestAssignBatch(t *testing.T) {
	ctx := context.Background()

	t.Run("updated counts only matched rows", func(t *testing.T) {
		f := newAssignmentFixture(t)
		updated, err := f.svc.AssignBatch(ctx, "u1", models.BatchAssignRequest{
			CrateID:  &f.crateID,
			AlbumIDs: []string{"a1", "a3", "unknown", "a1"},
		})
		require.NoError(t, err)
		assert.EqualValues(t, 2, updated)
		assert.Equal(t, []string{"batch:u1"}, f.limiter.keys)

		updated, err = f.svc.AssignBatch(ctx, "u2", models.BatchAssignRequest{AlbumIDs: []string{"a1"}})
		require.NoError(t, err)
		assert.EqualValues(t, 0, updated)
	})

	t.Run("empty list is rejected", func(t *testing.T) {
		f := newAssignmentFixture(t)
		_, err := f.svc.AssignBatch(ctx, "u1", models.BatchAssignRequest{AlbumIDs: []string{}})
		assert.ErrorIs(t, err, apperrors.ErrValidation)
		assert.Empty(t, f.limiter.keys)
	})

	t.Run("foreign crate is not found", func(t *testing.T) {
		f := newAssignmentFixture(t)
		other, err := f.crates.CreateCrate(ctx, "u2", models.CreateCrateRequest{Name: "Theirs"})
		require.NoError(t, err)
		_, err = f.svc.AssignBatch(ctx, "u1", models.BatchAssignRequest{CrateID: &other.ID, AlbumIDs: []string{"a1"}})
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
		for _, a := range f.albums.albums {
			assert.Nil(t, a.CrateID)
		}
	})

	t.Run("rate limited", func(t *testing.T) {
		f := newAssignmentFixture(t)
		f.limiter.allow = false
		_, err := f.svc.AssignBatch(ctx, "u1", models.BatchAssignRequest{AlbumIDs: []string{"a1"}})
		assert.ErrorIs(t, err, apperrors.ErrRateLimited)
	})

	t.Run("limiter outage fails open", func(t *testing.T) {
		f := newAssignmentFixture(t)
		f.limiter.allow = false
		f.limiter.err = errors.New("redis down")
		updated, err := f.svc.AssignBatch(ctx, "u1", models.BatchAssignRequest{AlbumIDs: []string{"a1"}})
		require.NoError(t, err)
		assert.EqualValues(t, 1, updated)
	})

	t.Run("eleventh batch within a minute is rejected", func(t *testing.T) {
		f := newAssignmentFixture(t)
		limiter, err := ratelimit.NewSlidingWindow(10, time.Minute)
		require.NoError(t, err)
		svc := NewAssignmentService(f.albums, f.crates, limiter)
		for i := 0; i < 10; i++ {
			_, err := svc.AssignBatch(ctx, "u1", models.BatchAssignRequest{AlbumIDs: []string{"a1"}})
			require.NoError(t, err)
		}
		_, err = svc.AssignBatch(ctx, "u1", models.BatchAssignRequest{AlbumIDs: []string{"a1"}})
		assert.ErrorIs(t, err, apperrors.ErrRateLimited)
		assert.Equal(t, 429, apperrors.HTTPStatus(err))
	})
}
