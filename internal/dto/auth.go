package dto

import (
	"time"

	"github.com/ledgermate/ledgermate/internal/core/domain"
)

// LoginRequest defines the credentials for signing in.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

// SignupRequest defines the data needed to create a remote account.
type SignupRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Name     string `json:"name" binding:"required"`
}

// ResetPasswordRequest asks the remote provider to send a reset email.
type ResetPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// UserResponse defines the data returned for the signed-in user.
type UserResponse struct {
	UserID string `json:"userID"`
	Email  string `json:"email"`
	Name   string `json:"name,omitempty"`
}

// AuthResponse is returned by login and signup. Token is the local API token;
// the remote session stays inside the engine.
type AuthResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      UserResponse `json:"user"`
}

// ToUserResponse converts a domain.User to UserResponse DTO.
func ToUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		UserID: u.UserID,
		Email:  u.Email,
		Name:   u.Name,
	}
}
