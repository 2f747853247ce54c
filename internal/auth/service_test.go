package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/chirpsocial/backend/internal/util"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret-that-is-long-enough-for-hs256")

func TestIssueAndValidate(t *testing.T) {
	svc := NewService(testSecret, time.Hour)

	token, expiresAt, err := svc.IssueToken("user-1", "alice")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	userID, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)
}

func TestValidateRejects(t *testing.T) {
	svc := NewService(testSecret, time.Hour)

	other := NewService([]byte("a-completely-different-secret-value"), time.Hour)
	foreign, _, err := other.IssueToken("user-1", "alice")
	require.NoError(t, err)
	_, err = svc.ValidateToken(foreign)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": "user-1",
		"exp":     time.Now().Add(-time.Minute).Unix(),
	})
	signed, err := expired.SignedString(testSecret)
	require.NoError(t, err)
	_, err = svc.ValidateToken(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)

	noExp := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"user_id": "user-1"})
	signed, err = noExp.SignedString(testSecret)
	require.NoError(t, err)
	_, err = svc.ValidateToken(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)

	noUser := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()})
	signed, err = noUser.SignedString(testSecret)
	require.NoError(t, err)
	_, err = svc.ValidateToken(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := NewService(testSecret, time.Hour)
	token, _, err := svc.IssueToken("user-1", "alice")
	require.NoError(t, err)

	router := gin.New()
	router.GET("/me", Middleware(svc), func(c *gin.Context) {
		userID, ok := util.GetUserIDFromContext(c)
		if !ok {
			return
		}
		c.String(http.StatusOK, userID)
	})

	tests := []struct {
		name   string
		header string
		query  string
		status int
	}{
		{"bearer header", "Bearer " + token, "", http.StatusOK},
		{"query token", "", "?token=" + token, http.StatusOK},
		{"missing", "", "", http.StatusUnauthorized},
		{"garbage", "Bearer nope", "", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, "user-1", w.Body.String())
			}
		})
	}
}
