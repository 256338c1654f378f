package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"pos-service/internal/middleware"
	"pos-service/internal/model"
	"pos-service/pkg/database"
	"pos-service/pkg/logger"
)

// Scope resolution errors. Every scoped handler resolves the effective
// owner id first and maps these with scopeError.
var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrUnsupportedRole = errors.New("role not supported")
)

// EffectiveOwnerID resolves the owner scope for the authenticated caller.
// Owners scope to their own id; Cashiers scope to their stored owner id.
// The caller must exist in the users table: a token for a deleted account
// does not resolve.
func EffectiveOwnerID(c echo.Context) (uint, error) {
	userID, ok := middleware.CallerIDFromContext(c)
	if !ok {
		return 0, ErrUnauthenticated
	}
	role, ok := middleware.CallerRoleFromContext(c)
	if !ok || role == "" {
		return 0, ErrUnauthenticated
	}

	var user model.User
	result := database.GetDB().First(&user, userID)
	if result.Error != nil {
		return 0, ErrUnauthenticated
	}

	switch role {
	case model.RoleOwner:
		return user.ID, nil
	case model.RoleCashier:
		if user.OwnerID == nil {
			return 0, ErrUnauthenticated
		}
		return *user.OwnerID, nil
	default:
		return 0, ErrUnsupportedRole
	}
}

// scopeError maps resolver failures onto HTTP responses without leaking
// lookup details.
func scopeError(c echo.Context, err error) error {
	log := logger.FromContext(c)
	if errors.Is(err, ErrUnsupportedRole) {
		log.Warn("Unsupported role in token")
		return c.JSON(http.StatusForbidden, echo.Map{"error": "role not supported"})
	}
	log.Warn("Failed to resolve owner scope", zap.Error(err))
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
}
