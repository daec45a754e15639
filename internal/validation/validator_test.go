package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cratedigger/internal/apperrors"
	"cratedigger/internal/models"
)

func TestValidateCreateCrate(t *testing.T) {
	v := New()

	err := v.Validate(models.CreateCrateRequest{Name: ""})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrValidation))
	assert.Equal(t, "name is required", apperrors.Message(err))

	assert.NoError(t, v.Validate(models.CreateCrateRequest{Name: "Road Trip"}))
}

func TestValidateBatchAssign(t *testing.T) {
	v := New()

	err := v.Validate(models.BatchAssignRequest{})
	require.Error(t, err)
	assert.Equal(t, "album_ids is required", apperrors.Message(err))

	err = v.Validate(models.BatchAssignRequest{AlbumIDs: []string{}})
	require.Error(t, err)
	assert.Equal(t, "album_ids must contain at least 1 item(s)", apperrors.Message(err))

	assert.NoError(t, v.Validate(models.BatchAssignRequest{AlbumIDs: []string{"a"}}))
}

func TestPackageValidate(t *testing.T) {
	err := Validate(models.AssignAlbumRequest{})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	assert.Equal(t, "album_id is required", apperrors.Message(err))

	assert.NoError(t, Validate(models.AssignAlbumRequest{AlbumID: "a1"}))
	assert.NoError(t, Validate(models.CreateCrateRequest{Name: "Road Trip"}))
}
