package middleware

import (
	"net/http"
	"strings"

	"tripenjoy/internal/shared/actor"
	"tripenjoy/internal/shared/apperror"
	"tripenjoy/internal/shared/config"
	"tripenjoy/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

const (
	ContextUserID    = "user_id"
	ContextUserEmail = "user_email"
	ContextUserRole  = "user_role"
	ContextRequestID = "request_id"
)

var (
	ErrNotAuthenticated = apperror.Unauthorized("NOT_AUTHENTICATED", "user not authenticated")
	ErrInvalidUserID    = apperror.Unauthorized("INVALID_USER_ID", "invalid user id in token")
)

// JWTAuth creates a JWT authentication middleware
func JWTAuth() gin.HandlerFunc {
	return JWTAuthWithConfig(config.Load())
}

// JWTAuthWithConfig creates a JWT authentication middleware with config
func JWTAuthWithConfig(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.RespondJSON(c, "error", http.StatusUnauthorized, "Authorization header is required", nil, nil)
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.RespondJSON(c, "error", http.StatusUnauthorized, "authorization header format must be Bearer {token}", nil, nil)
			c.Abort()
			return
		}

		token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(cfg.JWT.Secret), nil
		})

		if err != nil || !token.Valid {
			response.RespondJSON(c, "error", http.StatusUnauthorized, "invalid or expired token", nil, nil)
			c.Abort()
			return
		}

		if claims, ok := token.Claims.(jwt.MapClaims); ok {
			if tokenType, ok := claims["type"]; !ok || tokenType != "access" {
				response.RespondJSON(c, "error", http.StatusUnauthorized, "invalid token type", nil, nil)
				c.Abort()
				return
			}
			c.Set(ContextUserID, claims["user_id"])
			c.Set(ContextUserEmail, claims["email"])
			c.Set(ContextUserRole, claims["role"])
		}

		c.Next()
	}
}

// RequireRoles middleware checks if user has any of the required roles
func RequireRoles(requiredRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userRole := CurrentRole(c)
		if userRole == "" {
			response.RespondJSON(c, "error", http.StatusUnauthorized, "user role not found in context", nil, nil)
			c.Abort()
			return
		}

		for _, role := range requiredRoles {
			if userRole == role {
				c.Next()
				return
			}
		}

		response.RespondJSON(c, "error", http.StatusForbidden, "Insufficient permissions", nil, nil)
		c.Abort()
	}
}

// RequestID tags every request with an id, reusing X-Request-ID when the
// caller sent one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(ContextRequestID, id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

// CurrentUserID returns the authenticated user's id.
func CurrentUserID(c *gin.Context) (uuid.UUID, error) {
	raw, exists := c.Get(ContextUserID)
	if !exists {
		return uuid.Nil, ErrNotAuthenticated
	}
	str, ok := raw.(string)
	if !ok {
		return uuid.Nil, ErrInvalidUserID
	}
	id, err := uuid.Parse(str)
	if err != nil {
		return uuid.Nil, ErrInvalidUserID
	}
	return id, nil
}

// CurrentRole returns the authenticated user's role, or "" when absent.
func CurrentRole(c *gin.Context) string {
	raw, exists := c.Get(ContextUserRole)
	if !exists {
		return ""
	}
	role, _ := raw.(string)
	return role
}

// CurrentActor returns the authenticated caller.
func CurrentActor(c *gin.Context) (actor.Actor, error) {
	id, err := CurrentUserID(c)
	if err != nil {
		return actor.Actor{}, err
	}
	return actor.New(id, CurrentRole(c)), nil
}
