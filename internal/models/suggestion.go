package models

// SuggestionCandidate is an unassigned album offered to the completion model.
type SuggestionCandidate struct {
	AlbumID     string   `json:"album_id"`
	AlbumName   string   `json:"album_name"`
	ArtistName  string   `json:"artist_name"`
	ReleaseYear *int     `json:"release_year"`
	Genres      []string `json:"genres,omitempty"`
}

// Suggestion is a completion result joined with the candidate's display fields.
type Suggestion struct {
	AlbumID     string   `json:"album_id"`
	Score       *float64 `json:"score,omitempty"`
	Reason      string   `json:"reason,omitempty"`
	AlbumName   string   `json:"album_name"`
	ArtistName  string   `json:"artist_name"`
	ReleaseYear *int     `json:"release_year"`
}

type SuggestRequest struct {
	CrateID         string   `json:"crate_id"`
	Limit           *int     `json:"limit,omitempty"`
	Offset          *int     `json:"offset,omitempty"`
	ExcludeAlbumIDs []string `json:"exclude_album_ids,omitempty"`
}

type SuggestResponse struct {
	Suggestions     []Suggestion `json:"suggestions"`
	CandidatesCount int          `json:"candidates_count"`
}
