package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketpulse-backend/models"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret, subject string, expiresAt time.Time) string {
	t.Helper()
	claims := UserClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		Email: "user@example.com",
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestValidateToken(t *testing.T) {
	token := signToken(t, testSecret, "user-42", time.Now().Add(time.Hour))

	userID, err := ValidateToken(token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, "user-42", userID)
}

func TestValidateTokenWrongSecret(t *testing.T) {
	token := signToken(t, "other-secret", "user-42", time.Now().Add(time.Hour))

	var authErr *models.AuthenticationError
	_, err := ValidateToken(token, testSecret)
	require.ErrorAs(t, err, &authErr)
}

func TestValidateTokenExpired(t *testing.T) {
	token := signToken(t, testSecret, "user-42", time.Now().Add(-time.Hour))

	var authErr *models.AuthenticationError
	_, err := ValidateToken(token, testSecret)
	require.ErrorAs(t, err, &authErr)
}

func TestValidateTokenNoSubject(t *testing.T) {
	token := signToken(t, testSecret, "", time.Now().Add(time.Hour))

	var authErr *models.AuthenticationError
	_, err := ValidateToken(token, testSecret)
	require.ErrorAs(t, err, &authErr)
}

func TestValidateTokenMissingSecret(t *testing.T) {
	token := signToken(t, testSecret, "user-42", time.Now().Add(time.Hour))

	var authErr *models.AuthenticationError
	_, err := ValidateToken(token, "")
	require.ErrorAs(t, err, &authErr)
}

func TestValidateTokenGarbage(t *testing.T) {
	var authErr *models.AuthenticationError
	_, err := ValidateToken("not.a.token", testSecret)
	require.ErrorAs(t, err, &authErr)
}

func newAuthTestRouter(middleware gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/protected", middleware, func(c *gin.Context) {
		userID := c.GetString("user_id")
		c.JSON(http.StatusOK, gin.H{"user_id": userID})
	})
	return router
}

func TestJWTAuthMiddlewareRequiresHeader(t *testing.T) {
	router := newAuthTestRouter(JWTAuthMiddleware(testSecret))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTAuthMiddlewareRejectsMalformedHeader(t *testing.T) {
	router := newAuthTestRouter(JWTAuthMiddleware(testSecret))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Basic abc123")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTAuthMiddlewareAcceptsValidToken(t *testing.T) {
	router := newAuthTestRouter(JWTAuthMiddleware(testSecret))
	token := signToken(t, testSecret, "user-42", time.Now().Add(time.Hour))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "user-42")
}

func TestOptionalJWTAuthMiddlewareAllowsAnonymous(t *testing.T) {
	router := newAuthTestRouter(OptionalJWTAuthMiddleware(testSecret))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestOptionalJWTAuthMiddlewareAllowsBadToken(t *testing.T) {
	router := newAuthTestRouter(OptionalJWTAuthMiddleware(testSecret))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}
