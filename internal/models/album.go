package models

import (
	"time"
)

type AlbumImage struct {
	URL    string `json:"url" bson:"url"`
	Width  int    `json:"width" bson:"width"`
	Height int    `json:"height" bson:"height"`
}

// SavedAlbum mirrors one album from the user's Spotify library.
// CrateID nil means the album is unassigned.
type SavedAlbum struct {
	UserID      string       `json:"-" bson:"user_id"`
	AlbumID     string       `json:"album_id" bson:"album_id"`
	AlbumName   string       `json:"album_name" bson:"album_name"`
	ArtistName  string       `json:"artist_name" bson:"artist_name"`
	ReleaseYear *int         `json:"release_year" bson:"release_year,omitempty"`
	Images      []AlbumImage `json:"images" bson:"images"`
	SpotifyURL  string       `json:"spotify_url,omitempty" bson:"spotify_url,omitempty"`
	SavedAt     time.Time    `json:"saved_at" bson:"saved_at"`
	CrateID     *string      `json:"crate_id" bson:"crate_id"`
}

type AlbumsResponse struct {
	Albums []SavedAlbum `json:"albums"`
}

type ResyncResponse struct {
	Inserted int `json:"inserted"`
}

// Era groups saved albums by release year. Year is nil for albums without one.
type Era struct {
	Year   *int         `json:"year"`
	Albums []SavedAlbum `json:"albums"`
}

type ErasResponse struct {
	Eras []Era `json:"eras"`
}
