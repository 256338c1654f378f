package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"pos-service/internal/model"
	"pos-service/pkg/database"
	"pos-service/pkg/logger"
	"pos-service/prometheus"
)

// CategoryRequest defines the structure for category creation requests.
type CategoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Color       string `json:"color"`
}

// EditCategoryRequest is a partial update: nil fields are left untouched.
type EditCategoryRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Color       *string `json:"color"`
}

// CategoryResponse is the category representation returned by the API.
type CategoryResponse struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Color       string `json:"color,omitempty"`
}

func toCategoryResponse(category *model.Category) CategoryResponse {
	return CategoryResponse{
		ID:          category.ID,
		Name:        category.Name,
		Description: category.Description,
		Color:       category.Color,
	}
}

// ListCategories retrieves all categories in the caller's owner scope.
func ListCategories(c echo.Context) error {
	log := logger.FromContext(c)

	ownerID, err := EffectiveOwnerID(c)
	if err != nil {
		return scopeError(c, err)
	}

	var categories []model.Category
	result := database.GetDB().Where("owner_id = ?", ownerID).Find(&categories)
	if result.Error != nil {
		log.Error("Failed to retrieve categories",
			zap.Uint("owner_id", ownerID),
			zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve categories"})
	}

	responses := make([]CategoryResponse, 0, len(categories))
	for i := range categories {
		responses = append(responses, toCategoryResponse(&categories[i]))
	}

	log.Info("Categories retrieved",
		zap.Uint("owner_id", ownerID),
		zap.Int("count", len(responses)))
	return c.JSON(http.StatusOK, responses)
}

// CreateCategory creates a new category for the caller's scope. Names are
// unique per owner.
func CreateCategory(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordCategoryOperation("create")

	ownerID, err := EffectiveOwnerID(c)
	if err != nil {
		return scopeError(c, err)
	}

	var req CategoryRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}

	var count int64
	database.GetDB().Model(&model.Category{}).
		Where("name = ? AND owner_id = ?", req.Name, ownerID).
		Count(&count)
	if count > 0 {
		log.Warn("Duplicate category name",
			zap.Uint("owner_id", ownerID),
			zap.String("name", req.Name))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "category name can't have duplicate"})
	}

	category := model.Category{
		OwnerID:     ownerID,
		Name:        req.Name,
		Description: req.Description,
		Color:       req.Color,
	}

	if result := database.GetDB().Create(&category); result.Error != nil {
		log.Error("Failed to create category",
			zap.String("name", req.Name),
			zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create category"})
	}

	log.Info("Category created",
		zap.Uint("category_id", category.ID),
		zap.Uint("owner_id", ownerID),
		zap.String("name", category.Name))
	return c.JSON(http.StatusCreated, toCategoryResponse(&category))
}

// UpdateCategory applies a partial update to a category owned by the caller.
func UpdateCategory(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordCategoryOperation("update")
	id := c.Param("id")

	ownerID, err := EffectiveOwnerID(c)
	if err != nil {
		return scopeError(c, err)
	}

	var req EditCategoryRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.String("category_id", id), zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}

	var category model.Category
	result := database.GetDB().Where("id = ? AND owner_id = ?", id, ownerID).First(&category)
	if result.Error != nil {
		log.Warn("Category not found for update",
			zap.String("category_id", id),
			zap.Uint("owner_id", ownerID))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "category not found"})
	}

	if req.Name != nil && *req.Name != "" {
		var count int64
		database.GetDB().Model(&model.Category{}).
			Where("name = ? AND owner_id = ? AND id != ?", *req.Name, ownerID, category.ID).
			Count(&count)
		if count > 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "category name can't have duplicate"})
		}
		category.Name = *req.Name
	}
	if req.Description != nil {
		category.Description = *req.Description
	}
	if req.Color != nil {
		category.Color = *req.Color
	}

	if result := database.GetDB().Save(&category); result.Error != nil {
		log.Error("Failed to update category",
			zap.String("category_id", id),
			zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update category"})
	}

	log.Info("Category updated",
		zap.Uint("category_id", category.ID),
		zap.Uint("owner_id", ownerID))
	return c.JSON(http.StatusOK, toCategoryResponse(&category))
}

// DeleteCategory removes a category that no product references.
func DeleteCategory(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordCategoryOperation("delete")
	id := c.Param("id")

	ownerID, err := EffectiveOwnerID(c)
	if err != nil {
		return scopeError(c, err)
	}

	var category model.Category
	result := database.GetDB().Where("id = ? AND owner_id = ?", id, ownerID).First(&category)
	if result.Error != nil {
		log.Warn("Category not found for deletion",
			zap.String("category_id", id),
			zap.Uint("owner_id", ownerID))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "category not found"})
	}

	var productCount int64
	database.GetDB().Model(&model.Product{}).Where("category_id = ?", category.ID).Count(&productCount)
	if productCount > 0 {
		log.Warn("Category still referenced by products",
			zap.Uint("category_id", category.ID),
			zap.Int64("product_count", productCount))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "cannot delete category with associated products"})
	}

	if result := database.GetDB().Delete(&category); result.Error != nil {
		log.Error("Failed to delete category",
			zap.Uint("category_id", category.ID),
			zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to delete category"})
	}

	log.Info("Category deleted",
		zap.Uint("category_id", category.ID),
		zap.Uint("owner_id", ownerID))
	return c.NoContent(http.StatusNoContent)
}
