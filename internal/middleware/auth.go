package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"pos-service/pkg/jwtutil"
	"pos-service/pkg/logger"
)

// AuthMiddleware validates the JWT token and stores the caller's identity
// in the request context.
func AuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		log := logger.FromContext(c)

		// Get the Authorization header
		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" {
			log.Warn("Missing Authorization header")
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing authorization token"})
		}

		// Check if it's a Bearer token
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			log.Warn("Invalid Authorization header format")
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid authorization format, expected Bearer token"})
		}

		// Validate the token
		claims, err := jwtutil.ValidateToken(parts[1])
		if err != nil {
			log.Warn("Invalid JWT token", zap.Error(err))
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired token"})
		}

		if claims.Role == "" {
			log.Warn("JWT token does not contain a role claim")
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "role claim is required in the token"})
		}

		// Store caller identity in context for later use
		c.Set("user_id", claims.UserID)
		c.Set("email", claims.Email)
		c.Set("user_role", claims.Role)
		c.Set("bearer_token", parts[1])

		return next(c)
	}
}

// RequireRole returns a middleware that rejects callers whose role claim
// does not match. Runs after AuthMiddleware.
func RequireRole(role string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			callerRole, ok := c.Get("user_role").(string)
			if !ok || callerRole != role {
				logger.FromContext(c).Warn("Role not permitted for this operation",
					zap.String("required_role", role),
					zap.String("caller_role", callerRole))
				return c.JSON(http.StatusForbidden, echo.Map{"error": "insufficient permissions"})
			}
			return next(c)
		}
	}
}

// CallerIDFromContext retrieves the authenticated user id from the context.
func CallerIDFromContext(c echo.Context) (uint, bool) {
	userID, ok := c.Get("user_id").(uint)
	return userID, ok
}

// CallerRoleFromContext retrieves the caller's role claim from the context.
func CallerRoleFromContext(c echo.Context) (string, bool) {
	role, ok := c.Get("user_role").(string)
	return role, ok
}
