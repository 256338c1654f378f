package jwtutil

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"pos-service/pkg/config"
)

var (
	signingKey      []byte
	expirationHours = 2
)

// ErrInvalidToken is returned when a token fails validation for any
// reason other than a parse error.
var ErrInvalidToken = errors.New("invalid token")

// UserClaims represents the JWT claims for user authentication. Subject
// carries the user id; Role is "Owner" or "Cashier".
type UserClaims struct {
	Email  string `json:"email"`
	UserID uint   `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Initialize sets the signing key and token lifetime from configuration.
func Initialize(cfg *config.JWTConfig) {
	signingKey = []byte(cfg.SigningKey)
	if cfg.ExpirationHours > 0 {
		expirationHours = cfg.ExpirationHours
	}
}

// GenerateToken creates a signed JWT for the given user.
func GenerateToken(userID uint, email, role string) (string, error) {
	claims := UserClaims{
		Email:  email,
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("%d", userID),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Duration(expirationHours) * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(signingKey)
}

// ValidateToken validates and parses the JWT token
func ValidateToken(tokenString string) (*UserClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &UserClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return signingKey, nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*UserClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, ErrInvalidToken
}
