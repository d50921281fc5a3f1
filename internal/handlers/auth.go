package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/gearguard/internal/auth"
	"github.com/ukydev/gearguard/internal/db"
	"github.com/ukydev/gearguard/internal/middleware"
	"github.com/ukydev/gearguard/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AuthHandler handles authentication requests
type AuthHandler struct {
	authService    *auth.Service
	userCollection db.UserCollection
}

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(authService *auth.Service, userCollection db.UserCollection) *AuthHandler {
	return &AuthHandler{
		authService:    authService,
		userCollection: userCollection,
	}
}

func (h *AuthHandler) respondWithTokens(w http.ResponseWriter, status int, user *models.User) {
	token, err := h.authService.GenerateToken(user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	refreshToken, err := h.authService.GenerateRefreshToken()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to generate refresh token")
		return
	}

	writeJSON(w, status, models.LoginResponse{
		Token:        token,
		RefreshToken: refreshToken,
		User:         *user,
	})
}

// Login handles user login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}

	var loginReq models.LoginRequest
	if err := json.Unmarshal(body, &loginReq); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	loginReq.Email = strings.ToLower(strings.TrimSpace(loginReq.Email))
	if loginReq.Email == "" || loginReq.Password == "" {
		writeError(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	user, err := h.userCollection.FindUserByEmail(r.Context(), loginReq.Email)
	if err != nil {
		if !errors.Is(err, db.ErrNotFound) {
			log.WithError(err).Error("Failed to look up user")
		}
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	if !user.IsActive {
		writeError(w, http.StatusUnauthorized, "Account is deactivated")
		return
	}

	if !h.authService.CheckPassword(loginReq.Password, user.PasswordHash) {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	now := time.Now().UTC()
	if err := h.userCollection.UpdateLastLogin(r.Context(), user.ID, now); err != nil {
		log.WithError(err).WithField("user_id", user.ID.Hex()).Warn("Failed to update last login")
	} else {
		user.LastLogin = &now
	}

	h.respondWithTokens(w, http.StatusOK, user)
}

// Register handles user registration
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}

	var registerReq models.RegisterRequest
	if err := json.Unmarshal(body, &registerReq); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	registerReq.Email = strings.ToLower(strings.TrimSpace(registerReq.Email))
	if registerReq.Role == "" {
		registerReq.Role = models.RoleEmployee
	}

	if err := h.authService.ValidateName(registerReq.Name); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.authService.ValidateEmail(registerReq.Email); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.authService.ValidatePassword(registerReq.Password); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if !models.IsValidRole(registerReq.Role) {
		writeError(w, http.StatusBadRequest, "Invalid role")
		return
	}

	// Admin and manager accounts can only be self-registered to bootstrap an empty directory.
	if registerReq.Role == models.RoleAdmin || registerReq.Role == models.RoleManager {
		existing, err := h.userCollection.FindUsers(r.Context(), "")
		if err != nil {
			log.WithError(err).Error("Failed to list users")
			writeError(w, http.StatusInternalServerError, "Failed to create user")
			return
		}
		if len(existing) > 0 {
			writeError(w, http.StatusForbidden, "Role cannot be self-assigned")
			return
		}
	}

	if _, err := h.userCollection.FindUserByEmail(r.Context(), registerReq.Email); err == nil {
		writeError(w, http.StatusConflict, "Email already exists")
		return
	}

	passwordHash, err := h.authService.HashPassword(registerReq.Password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to hash password")
		return
	}

	now := time.Now().UTC()
	user := models.User{
		ID:           primitive.NewObjectID(),
		Name:         strings.TrimSpace(registerReq.Name),
		Email:        registerReq.Email,
		PasswordHash: passwordHash,
		Role:         registerReq.Role,
		Department:   registerReq.Department,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := h.userCollection.InsertUser(r.Context(), &user); err != nil {
		if errors.Is(err, db.ErrDuplicateKey) {
			writeError(w, http.StatusConflict, "Email already exists")
			return
		}
		log.WithError(err).Error("Failed to create user")
		writeError(w, http.StatusInternalServerError, "Failed to create user")
		return
	}
	log.WithFields(log.Fields{"user_id": user.ID.Hex(), "role": user.Role}).Info("User registered")

	h.respondWithTokens(w, http.StatusCreated, &user)
}

// GetProfile returns the current user's profile
func (h *AuthHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "User context not found")
		return
	}

	id, err := db.ParseID(claims.UserID)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Invalid token")
		return
	}

	user, err := h.userCollection.FindUserByID(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// ListUsers lists the user directory, optionally filtered by ?role=
func (h *AuthHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	role := models.Role(r.URL.Query().Get("role"))
	if role != "" && !models.IsValidRole(role) {
		writeError(w, http.StatusBadRequest, "Invalid role")
		return
	}

	users, err := h.userCollection.FindUsers(r.Context(), role)
	if err != nil {
		log.WithError(err).Error("Failed to list users")
		writeError(w, http.StatusInternalServerError, "Failed to list users")
		return
	}

	summaries := make([]*models.UserSummary, 0, len(users))
	for i := range users {
		summaries = append(summaries, users[i].Summary())
	}
	writeJSON(w, http.StatusOK, summaries)
}
