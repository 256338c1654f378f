package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"pos-service/internal/model"
	"pos-service/pkg/database"
	"pos-service/pkg/jwtutil"
	"pos-service/pkg/logger"
	"pos-service/prometheus"
)

// RegisterRequest defines the owner signup payload.
type RegisterRequest struct {
	UserName            string `json:"username"`
	Email               string `json:"email"`
	Password            string `json:"password"`
	BusinessName        string `json:"business_name"`
	BusinessDescription string `json:"business_description"`
}

// Register creates a new Owner account.
func Register(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RegisterCounter.Inc()

	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse registration request", zap.Error(err))
		prometheus.RecordAuthError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	if req.UserName == "" || req.Email == "" || req.Password == "" || req.BusinessName == "" {
		log.Warn("Incomplete registration data", zap.String("email", req.Email))
		prometheus.RecordAuthError("incomplete_registration")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "username, email, password and business_name are required"})
	}

	// Email must be unique among owners
	defer prometheus.TrackDBOperation("query")(time.Now())
	var count int64
	database.GetDB().Model(&model.User{}).Where("email = ?", req.Email).Count(&count)
	if count > 0 {
		log.Warn("Email already registered", zap.String("email", req.Email))
		prometheus.RecordAuthError("email_already_exists")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email already exists"})
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Error("Failed to hash password", zap.Error(err))
		prometheus.RecordAuthError("password_hash_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "registration failed"})
	}

	user := model.User{
		UserName:            req.UserName,
		Email:               req.Email,
		PasswordHash:        string(hashedPassword),
		BusinessName:        req.BusinessName,
		BusinessDescription: req.BusinessDescription,
		Role:                model.RoleOwner,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if result := database.GetDB().Create(&user); result.Error != nil {
		log.Error("Failed to create user", zap.Error(result.Error))
		prometheus.RecordAuthError("user_creation_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "registration failed"})
	}

	log.Info("Owner registered",
		zap.Uint("user_id", user.ID),
		zap.String("email", user.Email))
	return c.JSON(http.StatusCreated, echo.Map{
		"message": "User registered successfully",
		"user": echo.Map{
			"id":            user.ID,
			"email":         user.Email,
			"business_name": user.BusinessName,
		},
	})
}

// LoginRequest defines the login payload.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login verifies credentials and issues a bearer token.
func Login(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.LoginCounter.Inc()

	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse login request", zap.Error(err))
		prometheus.RecordAuthError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var user model.User
	result := database.GetDB().Where("email = ?", req.Email).First(&user)
	if result.Error != nil {
		log.Warn("User not found", zap.String("email", req.Email))
		prometheus.RecordAuthError("user_not_found")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		log.Warn("Invalid password", zap.String("email", req.Email))
		prometheus.RecordAuthError("invalid_password")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	token, err := jwtutil.GenerateToken(user.ID, user.Email, user.Role)
	if err != nil {
		log.Error("Failed to generate token", zap.Error(err))
		prometheus.RecordAuthError("token_generation_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token error"})
	}

	log.Info("User logged in",
		zap.Uint("user_id", user.ID),
		zap.String("email", user.Email),
		zap.String("role", user.Role))
	return c.JSON(http.StatusOK, echo.Map{
		"access_token": token,
		"email":        user.Email,
		"role":         user.Role,
	})
}
