package spotify

import "time"

type Image struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type SimpleArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Album struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Artists      []SimpleArtist `json:"artists"`
	Images       []Image        `json:"images"`
	ReleaseDate  string         `json:"release_date"`
	ExternalURLs struct {
		Spotify string `json:"spotify"`
	} `json:"external_urls"`
}

type Artist struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Genres []string `json:"genres"`
}

type SavedAlbum struct {
	AddedAt time.Time `json:"added_at"`
	Album   Album     `json:"album"`
}

type savedAlbumsPage struct {
	Items []SavedAlbum `json:"items"`
	Next  *string      `json:"next"`
}

type albumsResponse struct {
	Albums []*Album `json:"albums"`
}

type artistsResponse struct {
	Artists []*Artist `json:"artists"`
}
