package handler

import (
	"encoding/json"
	"net/http"
	"testing"

	"pos-service/internal/model"
	"pos-service/pkg/jwtutil"
)

func TestRegisterCreatesOwner(t *testing.T) {
	db := newTestDB(t)

	body := `{"username":"domi","email":"domi@example.com","password":"secret123","business_name":"Warung Domi"}`
	c, rec := request(http.MethodPost, "/api/auth/register", body, nil)
	if err := Register(c); err != nil {
		t.Fatalf("register: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var user model.User
	if err := db.Where("email = ?", "domi@example.com").First(&user).Error; err != nil {
		t.Fatalf("load registered user: %v", err)
	}
	if user.Role != model.RoleOwner {
		t.Fatalf("registration must create an owner, got role %q", user.Role)
	}
	if user.OwnerID != nil {
		t.Fatalf("owners must not reference another owner")
	}
	if user.PasswordHash == "secret123" {
		t.Fatalf("password must be stored hashed")
	}
}

func TestRegisterRequiresFields(t *testing.T) {
	newTestDB(t)

	c, rec := request(http.MethodPost, "/api/auth/register", `{"email":"x@example.com"}`, nil)
	if err := Register(c); err != nil {
		t.Fatalf("register: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for incomplete payload, got %d", rec.Code)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	db := newTestDB(t)
	seedOwner(t, db, "taken@example.com")

	body := `{"username":"late","email":"taken@example.com","password":"secret123","business_name":"Warung Late"}`
	c, rec := request(http.MethodPost, "/api/auth/register", body, nil)
	if err := Register(c); err != nil {
		t.Fatalf("register: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for duplicate email, got %d", rec.Code)
	}
}

func TestLoginIssuesToken(t *testing.T) {
	db := newTestDB(t)
	owner := seedOwner(t, db, "owner@example.com")

	c, rec := request(http.MethodPost, "/api/auth/login", `{"email":"owner@example.com","password":"secret123"}`, nil)
	if err := Login(c); err != nil {
		t.Fatalf("login: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		AccessToken string `json:"access_token"`
		Email       string `json:"email"`
		Role        string `json:"role"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Role != model.RoleOwner {
		t.Fatalf("expected owner role, got %q", resp.Role)
	}

	claims, err := jwtutil.ValidateToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("issued token must validate: %v", err)
	}
	if claims.UserID != owner.ID || claims.Role != model.RoleOwner {
		t.Fatalf("token claims mismatch: %+v", claims)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	db := newTestDB(t)
	seedOwner(t, db, "owner@example.com")

	c, rec := request(http.MethodPost, "/api/auth/login", `{"email":"owner@example.com","password":"wrong"}`, nil)
	if err := Login(c); err != nil {
		t.Fatalf("login: %v", err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong password, got %d", rec.Code)
	}

	c, rec = request(http.MethodPost, "/api/auth/login", `{"email":"nobody@example.com","password":"secret123"}`, nil)
	if err := Login(c); err != nil {
		t.Fatalf("login: %v", err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unknown email, got %d", rec.Code)
	}
}
