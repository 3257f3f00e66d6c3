package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// UserIDKey is the gin context key holding the authenticated user id.
const UserIDKey = "userId"

var ErrMissingSubject = errors.New("token carries no user id")

// Claims accepts both the provider's standard subject and a userId claim.
type Claims struct {
	UserID string `json:"userId,omitempty"`
	jwt.RegisteredClaims
}

// Subject returns the user id the token was issued for.
func (c *Claims) Subject() string {
	if c.UserID != "" {
		return c.UserID
	}
	return c.RegisteredClaims.Subject
}

// ParseToken validates an HMAC-signed token and returns its user id.
func ParseToken(secret []byte, tokenString string) (string, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		// Validate the alg is what we expect
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", jwt.ErrTokenInvalidClaims
	}

	userID := claims.Subject()
	if userID == "" {
		return "", ErrMissingSubject
	}
	return userID, nil
}

// TokenFromRequest reads a bearer token from the Authorization header, or
// from the token query parameter for clients that cannot set headers.
func TokenFromRequest(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		if token := r.URL.Query().Get("token"); token != "" {
			return token, nil
		}
		return "", errors.New("no authorization token provided")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", errors.New("format should be: Bearer <token>")
	}
	return parts[1], nil
}

func JWTAuthMiddleware(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Skip middleware for OPTIONS requests (CORS preflight)
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		tokenString, err := TokenFromRequest(c.Request)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "Authentication required",
				"message": err.Error(),
			})
			return
		}

		userID, err := ParseToken(secret, tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "Invalid token",
				"message": "Token validation failed",
			})
			return
		}

		c.Set(UserIDKey, userID)
		c.Next()
	}
}

// UserID returns the authenticated user id set by JWTAuthMiddleware.
func UserID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}
