package auth

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"bankinghub/models"
)

const (
	userIDKey = "user_id"
	roleKey   = "role"
)

// Middleware enforces a Bearer token and stores the caller on the context.
func Middleware(tokens *Tokens) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization"})
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header"})
			return
		}
		id, err := tokens.Parse(strings.TrimSpace(parts[1]))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		SetIdentity(c, id)
		c.Next()
	}
}

// UserLoader reads the caller's current user record.
type UserLoader interface {
	Me(ctx context.Context, userID int64) (*models.User, error)
}

// RequireActive must run after Middleware. It reloads the caller on every
// request, rejects unknown and disabled users with 401 and replaces the
// token's role with the stored one.
func RequireActive(users UserLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, err := users.Me(c.Request.Context(), UserID(c))
		switch {
		case errors.Is(err, models.ErrNotFound):
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		case err != nil:
			log.Printf("load user %d: %v", UserID(c), err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		case !u.Enabled:
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "account is disabled"})
		default:
			SetIdentity(c, Identity{UserID: u.ID, Role: u.Role})
			c.Next()
		}
	}
}

// RequireRole must run after Middleware.
func RequireRole(role models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if Role(c) != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient permissions"})
			return
		}
		c.Next()
	}
}

// SetIdentity stores the caller on the context.
func SetIdentity(c *gin.Context, id Identity) {
	c.Set(userIDKey, id.UserID)
	c.Set(roleKey, id.Role)
}

// UserID returns the authenticated caller's id, 0 outside the middleware.
func UserID(c *gin.Context) int64 {
	return c.GetInt64(userIDKey)
}

// Role returns the authenticated caller's role.
func Role(c *gin.Context) models.Role {
	v, _ := c.Get(roleKey)
	role, _ := v.(models.Role)
	return role
}
