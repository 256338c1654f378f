package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"pos-service/internal/model"
	"pos-service/pkg/database"
	"pos-service/pkg/logger"
	"pos-service/prometheus"
)

// revenueCurrency is the fixed currency label reported by the analytics
// endpoints.
const revenueCurrency = "IDR"

// RevenueResponse reports the total revenue over the requested window.
type RevenueResponse struct {
	Total    float64   `json:"total"`
	Currency string    `json:"currency"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
}

// TopProductResponse is one ranked product in the top-products report.
type TopProductResponse struct {
	ProductID    uint    `json:"product_id"`
	Name         string  `json:"name"`
	QuantitySold int     `json:"quantity_sold"`
	Revenue      float64 `json:"revenue"`
}

// parseWindow reads the start/end query parameters as RFC3339 timestamps.
func parseWindow(c echo.Context) (time.Time, time.Time, error) {
	start, err := time.Parse(time.RFC3339, c.QueryParam("start"))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := time.Parse(time.RFC3339, c.QueryParam("end"))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

// GetRevenue sums quantity * (price - discount) over every paid,
// non-deleted transaction of the caller with creation time inside the
// inclusive [start, end] window.
func GetRevenue(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordAnalyticsQuery("revenue")

	ownerID, err := EffectiveOwnerID(c)
	if err != nil {
		return scopeError(c, err)
	}

	start, end, err := parseWindow(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "start and end must be RFC3339 timestamps"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var row struct {
		Total float64
	}
	result := database.GetDB().Model(&model.TransactionDetail{}).
		Select("COALESCE(SUM(transaction_details.quantity * (products.price - products.discount)), 0) AS total").
		Joins("JOIN transactions ON transactions.id = transaction_details.transaction_id").
		Joins("JOIN products ON products.id = transaction_details.product_id").
		Where("transactions.owner_id = ? AND transactions.is_paid = ? AND transactions.is_deleted = ?", ownerID, true, false).
		Where("transactions.created_at >= ? AND transactions.created_at <= ?", start, end).
		Scan(&row)
	if result.Error != nil {
		log.Error("Failed to compute revenue",
			zap.Uint("owner_id", ownerID),
			zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to compute revenue"})
	}

	log.Info("Revenue computed",
		zap.Uint("owner_id", ownerID),
		zap.Float64("total", row.Total))
	return c.JSON(http.StatusOK, RevenueResponse{
		Total:    row.Total,
		Currency: revenueCurrency,
		Start:    start,
		End:      end,
	})
}

// GetTopProducts ranks the caller's products by revenue over the window,
// descending, with product id ascending as the tie-break. The window and
// ownership filters match the revenue query; the paid flag is not
// filtered here.
func GetTopProducts(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordAnalyticsQuery("top_products")

	ownerID, err := EffectiveOwnerID(c)
	if err != nil {
		return scopeError(c, err)
	}

	start, end, err := parseWindow(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "start and end must be RFC3339 timestamps"})
	}

	take, err := strconv.Atoi(c.QueryParam("take"))
	if err != nil || take < 1 {
		take = 5
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var rows []TopProductResponse
	result := database.GetDB().Model(&model.TransactionDetail{}).
		Select("transaction_details.product_id AS product_id, products.name AS name,"+
			" SUM(transaction_details.quantity) AS quantity_sold,"+
			" SUM(transaction_details.quantity * (products.price - products.discount)) AS revenue").
		Joins("JOIN transactions ON transactions.id = transaction_details.transaction_id").
		Joins("JOIN products ON products.id = transaction_details.product_id").
		Where("transactions.owner_id = ? AND transactions.is_deleted = ?", ownerID, false).
		Where("transactions.created_at >= ? AND transactions.created_at <= ?", start, end).
		Group("transaction_details.product_id, products.name").
		Order("revenue DESC, product_id ASC").
		Limit(take).
		Scan(&rows)
	if result.Error != nil {
		log.Error("Failed to compute top products",
			zap.Uint("owner_id", ownerID),
			zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to compute top products"})
	}

	if rows == nil {
		rows = []TopProductResponse{}
	}
	log.Info("Top products computed",
		zap.Uint("owner_id", ownerID),
		zap.Int("count", len(rows)))
	return c.JSON(http.StatusOK, rows)
}
