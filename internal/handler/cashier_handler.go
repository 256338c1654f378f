package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"pos-service/internal/middleware"
	"pos-service/internal/model"
	"pos-service/pkg/database"
	"pos-service/pkg/logger"
	"pos-service/prometheus"
)

// CashierCreateRequest defines the cashier creation payload. Role and
// owner id are forced server-side; any client-supplied values are ignored.
type CashierCreateRequest struct {
	UserName string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// CashierEditRequest is a partial update restricted to username, email,
// password and the deactivation flag. Role and owner id cannot change.
type CashierEditRequest struct {
	UserName      *string `json:"username"`
	Email         *string `json:"email"`
	Password      *string `json:"password"`
	IsDeactivated *bool   `json:"is_deactivated"`
}

// CashierResponse is the cashier representation returned by the API. The
// password hash is never exposed.
type CashierResponse struct {
	ID            uint      `json:"id"`
	UserName      string    `json:"username"`
	Email         string    `json:"email"`
	IsDeactivated bool      `json:"is_deactivated"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func toCashierResponse(cashier *model.User) CashierResponse {
	return CashierResponse{
		ID:            cashier.ID,
		UserName:      cashier.UserName,
		Email:         cashier.Email,
		IsDeactivated: cashier.IsDeactivated,
		CreatedAt:     cashier.CreatedAt,
		UpdatedAt:     cashier.UpdatedAt,
	}
}

// ListCashiers retrieves all cashier sub-accounts of the calling owner.
func ListCashiers(c echo.Context) error {
	log := logger.FromContext(c)

	ownerID, ok := middleware.CallerIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
	}

	var cashiers []model.User
	result := database.GetDB().
		Where("role = ? AND owner_id = ?", model.RoleCashier, ownerID).
		Find(&cashiers)
	if result.Error != nil {
		log.Error("Failed to list cashiers",
			zap.Uint("owner_id", ownerID),
			zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve cashiers"})
	}

	responses := make([]CashierResponse, 0, len(cashiers))
	for i := range cashiers {
		responses = append(responses, toCashierResponse(&cashiers[i]))
	}

	log.Info("Cashiers retrieved",
		zap.Uint("owner_id", ownerID),
		zap.Int("count", len(responses)))
	return c.JSON(http.StatusOK, responses)
}

// CreateCashier creates a cashier sub-account under the calling owner.
func CreateCashier(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordCashierOperation("create")

	ownerID, ok := middleware.CallerIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
	}

	var req CashierCreateRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}
	if req.UserName == "" || req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "username, email and password are required"})
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Error("Failed to hash password", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create cashier"})
	}

	cashier := model.User{
		UserName:     req.UserName,
		Email:        req.Email,
		PasswordHash: string(hashedPassword),
		Role:         model.RoleCashier,
		OwnerID:      &ownerID,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if result := database.GetDB().Create(&cashier); result.Error != nil {
		log.Error("Failed to create cashier",
			zap.Uint("owner_id", ownerID),
			zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create cashier"})
	}

	log.Info("Cashier created",
		zap.Uint("cashier_id", cashier.ID),
		zap.Uint("owner_id", ownerID))
	return c.JSON(http.StatusCreated, toCashierResponse(&cashier))
}

// EditCashier applies a partial update to a cashier owned by the caller.
func EditCashier(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordCashierOperation("update")
	id := c.Param("id")

	ownerID, ok := middleware.CallerIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
	}

	var req CashierEditRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.String("cashier_id", id), zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}

	var cashier model.User
	result := database.GetDB().
		Where("id = ? AND owner_id = ? AND role = ?", id, ownerID, model.RoleCashier).
		First(&cashier)
	if result.Error != nil {
		log.Warn("Cashier not found for update",
			zap.String("cashier_id", id),
			zap.Uint("owner_id", ownerID))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "cashier not found or not owned by you"})
	}

	if req.UserName != nil && *req.UserName != "" {
		cashier.UserName = *req.UserName
	}
	if req.Email != nil && *req.Email != "" {
		cashier.Email = *req.Email
	}
	if req.Password != nil && *req.Password != "" {
		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			log.Error("Failed to hash password", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update cashier"})
		}
		cashier.PasswordHash = string(hashedPassword)
	}
	if req.IsDeactivated != nil {
		cashier.IsDeactivated = *req.IsDeactivated
	}

	if result := database.GetDB().Save(&cashier); result.Error != nil {
		log.Error("Failed to update cashier",
			zap.String("cashier_id", id),
			zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update cashier"})
	}

	log.Info("Cashier updated",
		zap.Uint("cashier_id", cashier.ID),
		zap.Uint("owner_id", ownerID))
	return c.JSON(http.StatusOK, toCashierResponse(&cashier))
}

// DeleteCashier hard-deletes a cashier owned by the caller.
func DeleteCashier(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordCashierOperation("delete")
	id := c.Param("id")

	ownerID, ok := middleware.CallerIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
	}

	var cashier model.User
	result := database.GetDB().
		Where("id = ? AND owner_id = ? AND role = ?", id, ownerID, model.RoleCashier).
		First(&cashier)
	if result.Error != nil {
		log.Warn("Cashier not found for deletion",
			zap.String("cashier_id", id),
			zap.Uint("owner_id", ownerID))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "cashier not found or not owned by you"})
	}

	if result := database.GetDB().Delete(&cashier); result.Error != nil {
		log.Error("Failed to delete cashier",
			zap.Uint("cashier_id", cashier.ID),
			zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to delete cashier"})
	}

	log.Info("Cashier deleted",
		zap.Uint("cashier_id", cashier.ID),
		zap.Uint("owner_id", ownerID))
	return c.NoContent(http.StatusNoContent)
}
