package models

// Identity is the resolved caller of a request: either a SessionIdentity or a
// BypassIdentity.
type Identity interface {
	UserID() string
	isIdentity()
}

// SessionIdentity comes from a verified session token. Its Spotify credentials
// are available through the auth service.
type SessionIdentity struct {
	ID string
}

func (s SessionIdentity) UserID() string { return s.ID }
func (SessionIdentity) isIdentity()      {}

// BypassIdentity is the configured development user. It has no Spotify credentials.
type BypassIdentity struct {
	ID string
}

func (b BypassIdentity) UserID() string { return b.ID }
func (BypassIdentity) isIdentity()      {}
