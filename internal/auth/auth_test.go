package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/gearguard/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func testUser() *models.User {
	return &models.User{
		ID:    primitive.NewObjectID(),
		Name:  "Test User",
		Email: "test@example.com",
		Role:  models.RoleManager,
	}
}

func TestNewService(t *testing.T) {
	service := NewService("", 0)
	assert.NotNil(t, service)
	assert.Equal(t, []byte(DefaultSecret), service.jwtSecret)
	assert.Equal(t, 24*time.Hour, service.tokenExp)

	service = NewService("s3cret", time.Hour)
	assert.Equal(t, []byte("s3cret"), service.jwtSecret)
	assert.Equal(t, time.Hour, service.tokenExp)
}

func TestService_HashPassword(t *testing.T) {
	service := NewService("", 0)

	password := "testpassword123"
	hash, err := service.HashPassword(password)

	assert.NoError(t, err)
	assert.NotEmpty(t, hash)
	assert.NotEqual(t, password, hash)
}

func TestService_CheckPassword(t *testing.T) {
	service := NewService("", 0)

	password := "testpassword123"
	hash, _ := service.HashPassword(password)

	assert.True(t, service.CheckPassword(password, hash))
	assert.False(t, service.CheckPassword("wrongpassword", hash))
}

func TestService_ValidateToken(t *testing.T) {
	service := NewService("", 0)
	user := testUser()

	token, err := service.GenerateToken(user)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := service.ValidateToken(token)
	assert.NoError(t, err)
	require.NotNil(t, claims)
	assert.Equal(t, user.ID.Hex(), claims.UserID)
	assert.Equal(t, user.Email, claims.Email)
	assert.Equal(t, user.Role, claims.Role)

	_, err = service.ValidateToken("invalid-token")
	assert.Equal(t, ErrInvalidToken, err)

	_, err = service.ValidateToken("Bearer " + token)
	assert.NoError(t, err)

	other := NewService("another-secret", 0)
	_, err = other.ValidateToken(token)
	assert.Equal(t, ErrInvalidToken, err, "tokens signed with another secret are rejected")
}

func TestService_ExpiredToken(t *testing.T) {
	service := NewService("", time.Hour)
	service.tokenExp = -time.Minute

	token, err := service.GenerateToken(testUser())
	require.NoError(t, err)

	_, err = service.ValidateToken(token)
	assert.Equal(t, ErrExpiredToken, err)
}

func TestService_ExtractTokenFromHeader(t *testing.T) {
	service := NewService("", 0)

	extracted, err := service.ExtractTokenFromHeader("Bearer valid-token")
	assert.NoError(t, err)
	assert.Equal(t, "valid-token", extracted)

	for _, header := range []string{"", "InvalidFormat", "Bearer ", "Basic abc"} {
		_, err = service.ExtractTokenFromHeader(header)
		assert.Equal(t, ErrInvalidToken, err, "header %q", header)
	}
}

func TestService_ValidatePassword(t *testing.T) {
	service := NewService("", 0)

	assert.NoError(t, service.ValidatePassword("validpassword123"))

	err := service.ValidatePassword("short")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "at least 8 characters")
}

func TestService_ValidateEmail(t *testing.T) {
	service := NewService("", 0)

	assert.NoError(t, service.ValidateEmail("test@example.com"))

	for _, email := range []string{"testexample.com", "test@", "test", "Test <test@example.com>"} {
		err := service.ValidateEmail(email)
		assert.Error(t, err, email)
		if err != nil {
			assert.Contains(t, err.Error(), "invalid email format")
		}
	}
}

func TestService_ValidateName(t *testing.T) {
	service := NewService("", 0)

	assert.NoError(t, service.ValidateName("Al"))

	err := service.ValidateName(" a ")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "at least 2 characters")

	err = service.ValidateName(strings.Repeat("a", 101))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "less than 100 characters")
}

func TestService_GenerateRefreshToken(t *testing.T) {
	service := NewService("", 0)

	token, err := service.GenerateRefreshToken()
	assert.NoError(t, err)
	assert.Len(t, token, 44) // base64 of 32 bytes
}

func TestService_TokenExpiration(t *testing.T) {
	service := NewService("", 0)

	token, _ := service.GenerateToken(testUser())

	claims, err := service.ValidateToken(token)
	assert.NoError(t, err)
	require.NotNil(t, claims)

	now := time.Now().Unix()
	assert.Greater(t, claims.Exp, now)
	assert.LessOrEqual(t, claims.Exp, now+int64(service.tokenExp.Seconds())+1)
}

func TestService_RejectsForeignTokens(t *testing.T) {
	service := NewService("s3cret", time.Hour)
	exp := jwt.NewNumericDate(time.Now().Add(time.Hour))

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, tokenClaims{
		UserID:           primitive.NewObjectID().Hex(),
		Role:             models.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: exp},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = service.ValidateToken(unsigned)
	assert.Equal(t, ErrInvalidToken, err)

	anonymous, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{ExpiresAt: exp}).
		SignedString([]byte("s3cret"))
	require.NoError(t, err)
	_, err = service.ValidateToken(anonymous)
	assert.Equal(t, ErrInvalidToken, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		UserID: primitive.NewObjectID().Hex(),
		Role:   models.RoleAdmin,
	}).SignedString([]byte("s3cret"))
	require.NoError(t, err)
	_, err = service.ValidateToken(noExpiry)
	assert.Equal(t, ErrInvalidToken, err)
}
