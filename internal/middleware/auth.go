package middleware

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	userRepo "pooltap.app/earnhub/internal/modules/user/repository"
	"pooltap.app/earnhub/pkg/apperror"
	"pooltap.app/earnhub/pkg/response"
	"pooltap.app/earnhub/pkg/token"
)

const scopeKey = "token_scope"

type AuthMiddleware struct {
	userRepo userRepo.UserRepository
	secret   string
}

func NewAuthMiddleware(userRepo userRepo.UserRepository, secret string) *AuthMiddleware {
	return &AuthMiddleware{
		userRepo: userRepo,
		secret:   secret,
	}
}

func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := ""
		authHeader := c.GetHeader("Authorization")

		if authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) == 2 && parts[0] == "Bearer" {
				tokenString = parts[1]
			}
		}

		// Fallback to query parameter "token" (useful for WebSockets)
		if tokenString == "" {
			tokenString = c.Query("token")
		}

		if tokenString == "" {
			abort(c, fmt.Errorf("authorization required: %w", apperror.ErrUnauthorized))
			return
		}

		claims, err := token.Parse(m.secret, tokenString)
		if err != nil {
			abort(c, fmt.Errorf("%v: %w", err, apperror.ErrUnauthorized))
			return
		}

		c.Set("user_id", claims.Subject)
		c.Set(scopeKey, claims.Scope)
		c.Next()
	}
}

// RequireAdmin needs an admin-scoped token and checks the stored role, so a
// demoted admin loses access before their token expires.
func (m *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		identifier, err := response.GetUserID(c)
		if err != nil {
			abort(c, err)
			return
		}
		if c.GetString(scopeKey) != token.ScopeAdmin {
			abort(c, fmt.Errorf("admin login required: %w", apperror.ErrForbidden))
			return
		}

		user, err := m.userRepo.FindByIdentifier(c.Request.Context(), identifier)
		if errors.Is(err, apperror.ErrNotFound) {
			abort(c, fmt.Errorf("user not found: %w", apperror.ErrUnauthorized))
			return
		}
		if err != nil {
			abort(c, err)
			return
		}

		if !user.IsAdmin() {
			abort(c, fmt.Errorf("admin access required: %w", apperror.ErrForbidden))
			return
		}

		c.Set("user", user)
		c.Next()
	}
}

func abort(c *gin.Context, err error) {
	response.ResponseError(c, err)
	c.Abort()
}
