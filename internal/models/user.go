package models

import (
	"time"
)

// User is keyed by the Spotify user id. Tokens are stored sealed.
type User struct {
	ID                 string    `json:"id" bson:"_id"`
	DisplayName        string    `json:"display_name" bson:"display_name"`
	Email              string    `json:"email" bson:"email"`
	SealedAccessToken  string    `json:"-" bson:"access_token"`
	SealedRefreshToken string    `json:"-" bson:"refresh_token"`
	TokenExpiry        time.Time `json:"-" bson:"token_expiry"`
	CreatedAt          time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt          time.Time `json:"updated_at" bson:"updated_at"`
}

type SpotifyTokenResponse struct {
	AccessToken string `json:"access_token"`
}
