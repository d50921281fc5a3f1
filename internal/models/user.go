package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role represents user roles in the system
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleManager    Role = "manager"
	RoleTechnician Role = "technician"
	RoleEmployee   Role = "employee"
)

// Permission actions checked by the API
const (
	ActionManageUsers   = "manage_users"
	ActionManageAssets  = "manage_assets"
	ActionWriteRequest  = "write_request"
	ActionDeleteRequest = "delete_request"
	ActionView          = "view"
)

// User represents a user in the system
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name         string             `bson:"name" json:"name"`
	Email        string             `bson:"email" json:"email"`
	PasswordHash string             `bson:"password_hash" json:"-"`
	Role         Role               `bson:"role" json:"role"`
	Department   string             `bson:"department,omitempty" json:"department,omitempty"`
	IsActive     bool               `bson:"is_active" json:"isActive"`
	LastLogin    *time.Time         `bson:"last_login,omitempty" json:"lastLogin,omitempty"`
	CreatedAt    time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updated_at" json:"updatedAt"`
}

// UserSummary is the projection of a user embedded in other records
type UserSummary struct {
	ID         primitive.ObjectID `json:"id"`
	Name       string             `json:"name,omitempty"`
	Email      string             `json:"email,omitempty"`
	Role       Role               `json:"role,omitempty"`
	Department string             `json:"department,omitempty"`
}

// Summary returns the embeddable projection of u
func (u *User) Summary() *UserSummary {
	return &UserSummary{
		ID:         u.ID,
		Name:       u.Name,
		Email:      u.Email,
		Role:       u.Role,
		Department: u.Department,
	}
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest represents a user registration request
type RegisterRequest struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	Role       Role   `json:"role"`
	Department string `json:"department"`
}

// LoginResponse represents a successful login response
type LoginResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
	User         User   `json:"user"`
}

// Claims represents JWT claims
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   Role   `json:"role"`
	Exp    int64  `json:"exp"`
}

// IsValidRole checks if a role is valid
func IsValidRole(role Role) bool {
	switch role {
	case RoleAdmin, RoleManager, RoleTechnician, RoleEmployee:
		return true
	default:
		return false
	}
}

// HasPermission checks if a user has permission for a specific action
func (u *User) HasPermission(action string) bool {
	switch u.Role {
	case RoleAdmin:
		return true
	case RoleManager:
		return action != ActionManageUsers
	case RoleTechnician:
		return action == ActionView || action == ActionWriteRequest
	case RoleEmployee:
		return action == ActionView || action == ActionWriteRequest
	default:
		return false
	}
}
