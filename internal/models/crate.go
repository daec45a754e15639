package models

import (
	"time"
)

type Crate struct {
	ID          string    `json:"id" bson:"_id"`
	UserID      string    `json:"-" bson:"user_id"`
	Name        string    `json:"name" bson:"name"`
	Description string    `json:"description" bson:"description"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
}

type CreateCrateRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=500"`
}

type CrateResponse struct {
	Crate *Crate `json:"crate"`
}

type CratesResponse struct {
	Crates []Crate `json:"crates"`
}

type AssignAlbumRequest struct {
	AlbumID string  `json:"album_id" validate:"required"`
	CrateID *string `json:"crate_id"`
}

type BatchAssignRequest struct {
	CrateID  *string  `json:"crate_id"`
	AlbumIDs []string `json:"album_ids" validate:"required,min=1,dive,required"`
}

type BatchAssignResponse struct {
	Updated int64 `json:"updated"`
}

type OKResponse struct {
	OK bool `json:"ok"`
}
