package handler

import (
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"pos-service/internal/middleware"
	"pos-service/internal/model"
	"pos-service/pkg/database"
	"pos-service/pkg/logger"
	"pos-service/prometheus"
)

// TransactionItemRequest is one product-quantity pair in a create request.
type TransactionItemRequest struct {
	ProductID uint `json:"product_id"`
	Quantity  int  `json:"quantity"`
}

// CreateTransactionRequest defines the transaction creation payload.
type CreateTransactionRequest struct {
	Payment string                   `json:"payment"`
	Items   []TransactionItemRequest `json:"items"`
}

// TransactionDetailResponse is one line item with its computed subtotal.
type TransactionDetailResponse struct {
	ProductID   uint    `json:"product_id"`
	ProductName string  `json:"product_name"`
	Quantity    int     `json:"quantity"`
	Price       float64 `json:"price"`
	Discount    float64 `json:"discount"`
	Subtotal    float64 `json:"subtotal"`
}

// TransactionResponse is the full transaction representation with the
// computed total amount.
type TransactionResponse struct {
	ID            uint                        `json:"id"`
	Code          string                      `json:"code"`
	PaymentMethod string                      `json:"payment_method"`
	IsPaid        bool                        `json:"is_paid"`
	CreatedAt     time.Time                   `json:"created_at"`
	TotalAmount   float64                     `json:"total_amount"`
	Details       []TransactionDetailResponse `json:"details"`
}

func toTransactionResponse(txn *model.Transaction) TransactionResponse {
	resp := TransactionResponse{
		ID:            txn.ID,
		Code:          txn.Code,
		PaymentMethod: txn.PaymentMethod,
		IsPaid:        txn.IsPaid,
		CreatedAt:     txn.CreatedAt,
		Details:       make([]TransactionDetailResponse, 0, len(txn.Details)),
	}
	for i := range txn.Details {
		detail := &txn.Details[i]
		line := TransactionDetailResponse{
			ProductID: detail.ProductID,
			Quantity:  detail.Quantity,
		}
		if detail.Product != nil {
			line.ProductName = detail.Product.Name
			line.Price = detail.Product.Price
			line.Discount = detail.Product.Discount
			line.Subtotal = float64(detail.Quantity) * (detail.Product.Price - detail.Product.Discount)
		}
		resp.TotalAmount += line.Subtotal
		resp.Details = append(resp.Details, line)
	}
	return resp
}

// newTransactionCode generates a short human-readable transaction code.
func newTransactionCode() string {
	return "TRX-" + strings.ToUpper(uuid.New().String()[:8])
}

// utcDayWindow returns the [start, end) bounds of the current UTC calendar day.
func utcDayWindow(now time.Time) (time.Time, time.Time) {
	now = now.UTC()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 1)
}

// CreateTransaction inserts a transaction with its line items as one
// atomic unit. Every referenced product must exist in the caller's scope;
// any invalid or foreign id rejects the whole request.
func CreateTransaction(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordTransactionOperation("create")

	ownerID, err := EffectiveOwnerID(c)
	if err != nil {
		return scopeError(c, err)
	}

	var req CreateTransactionRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}
	if len(req.Items) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "transaction must have at least one item"})
	}
	for _, item := range req.Items {
		if item.Quantity < 1 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "item quantity must be at least 1"})
		}
	}

	// All referenced products must belong to the caller's scope.
	seen := make(map[uint]bool, len(req.Items))
	productIDs := make([]uint, 0, len(req.Items))
	for _, item := range req.Items {
		if !seen[item.ProductID] {
			seen[item.ProductID] = true
			productIDs = append(productIDs, item.ProductID)
		}
	}

	var validCount int64
	database.GetDB().Model(&model.Product{}).
		Where("owner_id = ? AND id IN ?", ownerID, productIDs).
		Count(&validCount)
	if validCount != int64(len(productIDs)) {
		log.Warn("Transaction references invalid or foreign products",
			zap.Uint("owner_id", ownerID),
			zap.Int("requested", len(productIDs)),
			zap.Int64("valid", validCount))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "one or more product ids are invalid or not owned by this user"})
	}

	txn := model.Transaction{
		OwnerID:       ownerID,
		PaymentMethod: req.Payment,
		Code:          newTransactionCode(),
		IsPaid:        false,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	err = database.GetDB().Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&txn).Error; err != nil {
			return err
		}
		for _, item := range req.Items {
			detail := model.TransactionDetail{
				TransactionID: txn.ID,
				ProductID:     item.ProductID,
				Quantity:      item.Quantity,
			}
			if err := tx.Create(&detail).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Error("Failed to create transaction",
			zap.Uint("owner_id", ownerID),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create transaction"})
	}

	log.Info("Transaction created",
		zap.Uint("transaction_id", txn.ID),
		zap.Uint("owner_id", ownerID),
		zap.String("code", txn.Code),
		zap.Int("items", len(req.Items)))
	return c.JSON(http.StatusCreated, echo.Map{
		"id":             txn.ID,
		"code":           txn.Code,
		"payment_method": txn.PaymentMethod,
		"is_paid":        txn.IsPaid,
		"created_at":     txn.CreatedAt,
	})
}

// scopedTransactionQuery applies owner scoping plus the cashier same-day
// restriction: cashiers only ever see transactions created on the current
// UTC calendar day.
func scopedTransactionQuery(c echo.Context, ownerID uint) *gorm.DB {
	query := database.GetDB().
		Where("owner_id = ? AND is_deleted = ?", ownerID, false)

	if role, _ := middleware.CallerRoleFromContext(c); role == model.RoleCashier {
		dayStart, dayEnd := utcDayWindow(time.Now())
		query = query.Where("created_at >= ? AND created_at < ?", dayStart, dayEnd)
	}
	return query
}

// ListTransactions retrieves the caller's transactions with free-text
// search, paid/payment filters, sorting by date or computed amount, and
// pagination. Cashiers are restricted to the current UTC day.
func ListTransactions(c echo.Context) error {
	log := logger.FromContext(c)

	ownerID, err := EffectiveOwnerID(c)
	if err != nil {
		return scopeError(c, err)
	}

	query := scopedTransactionQuery(c, ownerID)

	if search := c.QueryParam("search"); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where(
			"LOWER(code) LIKE ? OR LOWER(payment_method) LIKE ? OR CAST(transactions.id AS TEXT) LIKE ?"+
				" OR transactions.id IN (SELECT td.transaction_id FROM transaction_details td"+
				" JOIN products p ON p.id = td.product_id WHERE LOWER(p.name) LIKE ?)",
			pattern, pattern, pattern, pattern,
		)
	}
	if isPaid := c.QueryParam("is_paid"); isPaid != "" {
		if paid, err := strconv.ParseBool(isPaid); err == nil {
			query = query.Where("is_paid = ?", paid)
		}
	}
	if payment := c.QueryParam("payment"); payment != "" {
		query = query.Where("payment_method = ?", payment)
	}

	var transactions []model.Transaction
	result := query.Preload("Details").Preload("Details.Product").Find(&transactions)
	if result.Error != nil {
		log.Error("Failed to list transactions",
			zap.Uint("owner_id", ownerID),
			zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve transactions"})
	}

	responses := make([]TransactionResponse, 0, len(transactions))
	for i := range transactions {
		responses = append(responses, toTransactionResponse(&transactions[i]))
	}

	// Sorting happens over the computed view because the total amount is
	// derived from line items, not stored.
	sortBy := c.QueryParam("sort_by")
	ascending := c.QueryParam("sort_order") == "asc"
	switch sortBy {
	case "amount":
		sort.SliceStable(responses, func(i, j int) bool {
			if ascending {
				return responses[i].TotalAmount < responses[j].TotalAmount
			}
			return responses[i].TotalAmount > responses[j].TotalAmount
		})
	default: // newest first unless explicitly ascending
		sort.SliceStable(responses, func(i, j int) bool {
			if ascending {
				return responses[i].CreatedAt.Before(responses[j].CreatedAt)
			}
			return responses[i].CreatedAt.After(responses[j].CreatedAt)
		})
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(c.QueryParam("page_size"))
	if pageSize < 1 {
		pageSize = 10
	}
	total := len(responses)
	offset := (page - 1) * pageSize
	if offset > total {
		offset = total
	}
	end := offset + pageSize
	if end > total {
		end = total
	}

	log.Info("Transactions retrieved",
		zap.Uint("owner_id", ownerID),
		zap.Int("total", total),
		zap.Int("page", page))
	return c.JSON(http.StatusOK, echo.Map{
		"data":      responses[offset:end],
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// GetTransaction retrieves one transaction with computed line subtotals
// and total. Same ownership and same-day rules as the listing.
func GetTransaction(c echo.Context) error {
	log := logger.FromContext(c)
	id := c.Param("id")

	ownerID, err := EffectiveOwnerID(c)
	if err != nil {
		return scopeError(c, err)
	}

	var txn model.Transaction
	result := scopedTransactionQuery(c, ownerID).
		Preload("Details").Preload("Details.Product").
		Where("transactions.id = ?", id).
		First(&txn)
	if result.Error != nil {
		log.Warn("Transaction not found",
			zap.String("transaction_id", id),
			zap.Uint("owner_id", ownerID))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "transaction not found"})
	}

	return c.JSON(http.StatusOK, toTransactionResponse(&txn))
}

// DeleteTransaction removes a transaction and its detail rows. Owner-only
// at the route level; detail rows go first so no orphans survive a fault.
func DeleteTransaction(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordTransactionOperation("delete")
	id := c.Param("id")

	ownerID, err := EffectiveOwnerID(c)
	if err != nil {
		return scopeError(c, err)
	}

	var txn model.Transaction
	result := database.GetDB().
		Where("id = ? AND owner_id = ?", id, ownerID).
		First(&txn)
	if result.Error != nil {
		log.Warn("Transaction not found for deletion",
			zap.String("transaction_id", id),
			zap.Uint("owner_id", ownerID))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "transaction not found"})
	}

	err = database.GetDB().Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("transaction_id = ?", txn.ID).Delete(&model.TransactionDetail{}).Error; err != nil {
			return err
		}
		return tx.Delete(&txn).Error
	})
	if err != nil {
		log.Error("Failed to delete transaction",
			zap.Uint("transaction_id", txn.ID),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to delete transaction"})
	}

	log.Info("Transaction deleted",
		zap.Uint("transaction_id", txn.ID),
		zap.Uint("owner_id", ownerID))
	return c.NoContent(http.StatusNoContent)
}
