package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role tags an account as a reporter or an administrator
type Role string

// Roles
const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Account holds the structure for the users collection in mongo. Admins and
// reporters share the collection and are told apart by Role.
type Account struct {
	ID        primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	Name      string             `json:"name" bson:"name"`
	Email     string             `json:"email" bson:"email"`
	Password  string             `json:"-" bson:"password"`
	Points    int                `json:"points" bson:"points"`
	Role      Role               `json:"role" bson:"role"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
}

// AccountSummary is the public view of an account used by the feed and the
// leaderboard
type AccountSummary struct {
	ID     primitive.ObjectID `json:"_id" bson:"_id"`
	Name   string             `json:"name" bson:"name"`
	Email  string             `json:"email" bson:"email"`
	Points int                `json:"points,omitempty" bson:"points,omitempty"`
}

// SignupRequest is the body of POST /auth/signup
type SignupRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// LoginRequest is the body of POST /auth/login
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// ChangePasswordRequest is the body of PUT /auth/change-password
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6"`
}

// AuthResponse is returned by signup and login
type AuthResponse struct {
	ID     primitive.ObjectID `json:"_id"`
	Name   string             `json:"name"`
	Email  string             `json:"email"`
	Role   Role               `json:"role"`
	Points int                `json:"points"`
	Token  string             `json:"token"`
}
