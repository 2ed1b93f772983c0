package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"marketpulse-backend/models"
)

// UserClaims represents the claims carried by an access token
type UserClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}

// ValidateToken validates an HS256 bearer token and returns the user id from
// its subject claim. Failures come back as *models.AuthenticationError.
func ValidateToken(tokenString, secret string) (string, error) {
	if secret == "" {
		return "", &models.AuthenticationError{Message: "JWT secret not configured"}
	}

	token, err := jwt.ParseWithClaims(tokenString, &UserClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return "", &models.AuthenticationError{Message: fmt.Sprintf("failed to parse token: %v", err)}
	}

	claims, ok := token.Claims.(*UserClaims)
	if !ok || !token.Valid {
		return "", &models.AuthenticationError{Message: "invalid token claims"}
	}

	if claims.ExpiresAt != nil && claims.ExpiresAt.Before(time.Now()) {
		return "", &models.AuthenticationError{Message: "token has expired"}
	}
	if claims.Subject == "" {
		return "", &models.AuthenticationError{Message: "token has no subject"}
	}

	return claims.Subject, nil
}

// JWTAuthMiddleware requires a valid bearer token on the request
func JWTAuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "Authorization header is required",
			})
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "Invalid authorization header format. Use: Bearer <token>",
			})
			c.Abort()
			return
		}

		userID, err := ValidateToken(tokenString, secret)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": err.Error(),
			})
			c.Abort()
			return
		}

		c.Set("user_id", userID)
		c.Next()
	}
}

// OptionalJWTAuthMiddleware validates a bearer token if present but allows
// anonymous access
func OptionalJWTAuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Set("authenticated", false)
			c.Next()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			c.Set("authenticated", false)
			c.Next()
			return
		}

		userID, err := ValidateToken(tokenString, secret)
		if err != nil {
			c.Set("authenticated", false)
			c.Next()
			return
		}

		c.Set("authenticated", true)
		c.Set("user_id", userID)
		c.Next()
	}
}
