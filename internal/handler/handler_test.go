package handler

import (
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"pos-service/internal/model"
	"pos-service/pkg/config"
	"pos-service/pkg/database"
	"pos-service/pkg/jwtutil"
	"pos-service/prometheus"
)

func TestMain(m *testing.M) {
	cfg, _ := config.Load("pos-service-test")
	jwtutil.Initialize(&cfg.JWT)
	prometheus.InitMetrics(cfg)
	os.Exit(m.Run())
}

// newTestDB opens a fresh in-memory database and installs it as the
// active connection.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}

	// A pooled second connection would see a different empty :memory: db.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}
	database.SetDB(db)
	return db
}

func seedOwner(t *testing.T, db *gorm.DB, email string) *model.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	owner := &model.User{
		UserName:     strings.Split(email, "@")[0],
		Email:        email,
		PasswordHash: string(hash),
		BusinessName: "Warung " + strings.Split(email, "@")[0],
		Role:         model.RoleOwner,
	}
	if err := db.Create(owner).Error; err != nil {
		t.Fatalf("seed owner: %v", err)
	}
	return owner
}

func seedCashier(t *testing.T, db *gorm.DB, owner *model.User, email string) *model.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	cashier := &model.User{
		UserName:     strings.Split(email, "@")[0],
		Email:        email,
		PasswordHash: string(hash),
		Role:         model.RoleCashier,
		OwnerID:      &owner.ID,
	}
	if err := db.Create(cashier).Error; err != nil {
		t.Fatalf("seed cashier: %v", err)
	}
	return cashier
}

func seedProduct(t *testing.T, db *gorm.DB, owner *model.User, name string, price, discount float64) *model.Product {
	t.Helper()
	product := &model.Product{
		OwnerID:  owner.ID,
		Name:     name,
		Price:    price,
		Discount: discount,
	}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return product
}

func seedTransaction(t *testing.T, db *gorm.DB, owner *model.User, paid bool, createdAt time.Time, items map[uint]int) *model.Transaction {
	t.Helper()
	txn := &model.Transaction{
		OwnerID:       owner.ID,
		PaymentMethod: "cash",
		Code:          newTransactionCode(),
		IsPaid:        paid,
	}
	if err := db.Create(txn).Error; err != nil {
		t.Fatalf("seed transaction: %v", err)
	}
	for productID, qty := range items {
		detail := &model.TransactionDetail{
			TransactionID: txn.ID,
			ProductID:     productID,
			Quantity:      qty,
		}
		if err := db.Create(detail).Error; err != nil {
			t.Fatalf("seed transaction detail: %v", err)
		}
	}
	// gorm manages created_at itself, so backdating needs a direct update
	if err := db.Model(txn).UpdateColumn("created_at", createdAt).Error; err != nil {
		t.Fatalf("backdate transaction: %v", err)
	}
	txn.CreatedAt = createdAt
	return txn
}

var testEcho = echo.New()

// request builds an echo context carrying the identity the auth
// middleware would have extracted from a valid bearer token.
func request(method, target, body string, user *model.User) (echo.Context, *httptest.ResponseRecorder) {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	c := testEcho.NewContext(req, rec)
	if user != nil {
		c.Set("user_id", user.ID)
		c.Set("email", user.Email)
		c.Set("user_role", user.Role)
	}
	return c, rec
}
