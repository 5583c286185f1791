package domain

import "time"

// User is the authenticated identity as reported by the auth provider.
type User struct {
	UserID string `json:"userID"`
	Email  string `json:"email"`
	Name   string `json:"name,omitempty"`
}

// Session is the auth provider's view of a signed-in user. The access token
// is opaque to the engine; it is only ever forwarded back to the gateway.
type Session struct {
	User        User      `json:"user"`
	AccessToken string    `json:"accessToken"`
	ExpiresAt   time.Time `json:"expiresAt"`
}
