package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"bikeshop-backend/internal/shared/response"
	"bikeshop-backend/pkg/jwt"
	"bikeshop-backend/pkg/logger"
)

// Context keys set by AuthMiddleware.
const (
	ContextUserID = "userID"
	ContextRole   = "role"
)

// AuthMiddleware verifies the bearer token and stores the principal
// (user id and role) on the gin context.
func AuthMiddleware(tokens *jwt.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 1. Authorization: Bearer <token>
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, "missing authorization header")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(c, "invalid authorization header format")
			c.Abort()
			return
		}

		// 2. Verify signature, expiry and token type
		claims, err := tokens.ValidateAccessToken(parts[1])
		if err != nil {
			logger.Debug("Rejected bearer token", map[string]interface{}{
				"request_id": c.GetString("request_id"),
				"error":      err.Error(),
			})
			response.Unauthorized(c, "invalid token")
			c.Abort()
			return
		}

		// 3. Principal
		userID, err := uuid.Parse(claims.UserID)
		if err != nil {
			response.Unauthorized(c, "invalid user ID in token")
			c.Abort()
			return
		}

		role := claims.Role
		if role == "" {
			role = jwt.RoleCustomer
		}

		c.Set(ContextUserID, userID)
		c.Set(ContextRole, role)
		c.Next()
	}
}

// UserIDFromContext returns the authenticated user id.
func UserIDFromContext(c *gin.Context) (uuid.UUID, bool) {
	v, exists := c.Get(ContextUserID)
	if !exists {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok && id != uuid.Nil
}

// IsAdmin reports whether the authenticated principal has the admin role.
func IsAdmin(c *gin.Context) bool {
	return c.GetString(ContextRole) == jwt.RoleAdmin
}
