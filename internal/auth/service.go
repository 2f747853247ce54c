package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chirpsocial/backend/internal/util"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrNoToken      = errors.New("no authentication token provided")
	ErrInvalidToken = errors.New("invalid token")
)

// Service signs and verifies HS256 tokens carrying a user_id claim
type Service struct {
	jwtSecret []byte
	ttl       time.Duration
}

// NewService creates a token service. ttl applies to issued tokens.
func NewService(jwtSecret []byte, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Service{jwtSecret: jwtSecret, ttl: ttl}
}

// IssueToken signs a token for userID
func (s *Service) IssueToken(userID, username string) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(s.ttl)

	claims := jwt.MapClaims{
		"user_id":  userID,
		"username": username,
		"exp":      expiresAt.Unix(),
		"iat":      now.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// ValidateToken checks signature and expiry and returns the user_id claim
func (s *Service) ValidateToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", ErrInvalidToken
	}
	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("%w: missing user_id", ErrInvalidToken)
	}
	return userID, nil
}

// TokenFromRequest reads "Authorization: Bearer <token>", falling back to
// the ?token= query parameter browsers use for websocket upgrades
func TokenFromRequest(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return c.Query("token")
}

// Middleware rejects requests without a valid token and stores the user id
// under util.ContextUserIDKey
func Middleware(v TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := TokenFromRequest(c)
		if token == "" {
			util.RespondUnauthorized(c, ErrNoToken.Error())
			return
		}
		userID, err := v.ValidateToken(token)
		if err != nil {
			util.RespondUnauthorized(c, "invalid or expired token")
			return
		}
		c.Set(util.ContextUserIDKey, userID)
		c.Next()
	}
}
