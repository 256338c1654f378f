package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"pos-service/internal/model"
	"pos-service/pkg/database"
	"pos-service/pkg/logger"
	"pos-service/prometheus"
)

// ProductRequest defines the structure for product creation requests.
type ProductRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Discount    float64 `json:"discount"`
	CategoryID  *uint   `json:"category_id"`
	ImageURL    string  `json:"image_url"`
}

// EditProductRequest is a partial update: nil fields are left untouched.
type EditProductRequest struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Price       *float64 `json:"price"`
	Discount    *float64 `json:"discount"`
	CategoryID  *uint    `json:"category_id"`
	ImageURL    *string  `json:"image_url"`
}

// ProductResponse is the product representation returned by the API. The
// category name is denormalized for listing convenience.
type ProductResponse struct {
	ID           uint    `json:"id"`
	Name         string  `json:"name"`
	Description  string  `json:"description,omitempty"`
	Price        float64 `json:"price"`
	Discount     float64 `json:"discount"`
	CategoryID   *uint   `json:"category_id,omitempty"`
	CategoryName *string `json:"category_name,omitempty"`
	ImageURL     string  `json:"image_url,omitempty"`
}

func toProductResponse(product *model.Product, categoryName *string) ProductResponse {
	return ProductResponse{
		ID:           product.ID,
		Name:         product.Name,
		Description:  product.Description,
		Price:        product.Price,
		Discount:     product.Discount,
		CategoryID:   product.CategoryID,
		CategoryName: categoryName,
		ImageURL:     product.ImageURL,
	}
}

// ownedCategoryName resolves a category name for denormalized responses.
// A missing or foreign category id yields nil instead of an error: the
// store constraint is the enforcement point for referential integrity.
func ownedCategoryName(ownerID uint, categoryID *uint) *string {
	if categoryID == nil {
		return nil
	}
	var category model.Category
	result := database.GetDB().Where("id = ? AND owner_id = ?", *categoryID, ownerID).First(&category)
	if result.Error != nil {
		return nil
	}
	return &category.Name
}

// ListProducts retrieves the caller's products with optional filters:
// case-insensitive substring search on name or description, and exact
// category match. Filters combine with AND.
func ListProducts(c echo.Context) error {
	log := logger.FromContext(c)

	ownerID, err := EffectiveOwnerID(c)
	if err != nil {
		return scopeError(c, err)
	}

	query := database.GetDB().Where("owner_id = ?", ownerID)

	if categoryID := c.QueryParam("category_id"); categoryID != "" {
		query = query.Where("category_id = ?", categoryID)
	}
	if search := c.QueryParam("search"); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern)
	}

	var products []model.Product
	result := query.Find(&products)
	if result.Error != nil {
		log.Error("Failed to list products",
			zap.Uint("owner_id", ownerID),
			zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve products"})
	}

	responses := make([]ProductResponse, 0, len(products))
	for i := range products {
		responses = append(responses, toProductResponse(&products[i], ownedCategoryName(ownerID, products[i].CategoryID)))
	}

	log.Info("Products retrieved",
		zap.Uint("owner_id", ownerID),
		zap.Int("count", len(responses)))
	return c.JSON(http.StatusOK, responses)
}

// CreateProduct creates a new product in the caller's scope. A supplied
// category id is looked up only to denormalize the category name into the
// response; an unknown or foreign id is stored as-is and surfaces as null
// category metadata.
func CreateProduct(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordProductOperation("create")

	ownerID, err := EffectiveOwnerID(c)
	if err != nil {
		return scopeError(c, err)
	}

	var req ProductRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}
	if req.Price < 0 || req.Discount < 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "price and discount must be non-negative"})
	}

	product := model.Product{
		OwnerID:     ownerID,
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Discount:    req.Discount,
		CategoryID:  req.CategoryID,
		ImageURL:    req.ImageURL,
	}

	if result := database.GetDB().Create(&product); result.Error != nil {
		log.Error("Failed to create product",
			zap.String("name", req.Name),
			zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create product"})
	}

	log.Info("Product created",
		zap.Uint("product_id", product.ID),
		zap.Uint("owner_id", ownerID),
		zap.String("name", product.Name))
	return c.JSON(http.StatusCreated, toProductResponse(&product, ownedCategoryName(ownerID, product.CategoryID)))
}

// UpdateProduct applies a partial update to a product owned by the caller.
// The owner id is immutable.
func UpdateProduct(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordProductOperation("update")
	id := c.Param("id")

	ownerID, err := EffectiveOwnerID(c)
	if err != nil {
		return scopeError(c, err)
	}

	var req EditProductRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.String("product_id", id), zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}

	var product model.Product
	result := database.GetDB().Where("id = ? AND owner_id = ?", id, ownerID).First(&product)
	if result.Error != nil {
		log.Warn("Product not found for update",
			zap.String("product_id", id),
			zap.Uint("owner_id", ownerID))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "product not found"})
	}

	if req.Name != nil && *req.Name != "" {
		product.Name = *req.Name
	}
	if req.Description != nil {
		product.Description = *req.Description
	}
	if req.Price != nil {
		if *req.Price < 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "price must be non-negative"})
		}
		product.Price = *req.Price
	}
	if req.Discount != nil {
		if *req.Discount < 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "discount must be non-negative"})
		}
		product.Discount = *req.Discount
	}
	if req.CategoryID != nil {
		product.CategoryID = req.CategoryID
	}
	if req.ImageURL != nil {
		product.ImageURL = *req.ImageURL
	}

	if result := database.GetDB().Save(&product); result.Error != nil {
		log.Error("Failed to update product",
			zap.String("product_id", id),
			zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update product"})
	}

	log.Info("Product updated",
		zap.Uint("product_id", product.ID),
		zap.Uint("owner_id", ownerID))
	return c.JSON(http.StatusOK, toProductResponse(&product, ownedCategoryName(ownerID, product.CategoryID)))
}

// DeleteProduct hard-deletes a product and its transaction detail rows.
func DeleteProduct(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordProductOperation("delete")
	id := c.Param("id")

	ownerID, err := EffectiveOwnerID(c)
	if err != nil {
		return scopeError(c, err)
	}

	var product model.Product
	result := database.GetDB().Where("id = ? AND owner_id = ?", id, ownerID).First(&product)
	if result.Error != nil {
		log.Warn("Product not found for deletion",
			zap.String("product_id", id),
			zap.Uint("owner_id", ownerID))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "product not found"})
	}

	err = database.GetDB().Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("product_id = ?", product.ID).Delete(&model.TransactionDetail{}).Error; err != nil {
			return err
		}
		return tx.Delete(&product).Error
	})
	if err != nil {
		log.Error("Failed to delete product",
			zap.Uint("product_id", product.ID),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to delete product"})
	}

	log.Info("Product deleted",
		zap.Uint("product_id", product.ID),
		zap.Uint("owner_id", ownerID))
	return c.NoContent(http.StatusNoContent)
}
