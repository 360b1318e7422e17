package rest

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/inair/warehouse/model"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ProductHandler handles the product catalog REST endpoints.
type ProductHandler struct {
	db *gorm.DB
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(db *gorm.DB) *ProductHandler {
	return &ProductHandler{db: db}
}

// List handles GET /api/products.
func (h *ProductHandler) List(c *gin.Context) {
	q := h.db.WithContext(c.Request.Context()).Model(&model.Product{})
	if search := c.Query("search"); search != "" {
		like := "%" + search + "%"
		q = q.Where("name LIKE ? OR barcode LIKE ? OR sku LIKE ?", like, like, like)
	}
	if cat := c.Query("category_id"); cat != "" {
		q = q.Where("category_id = ?", cat)
	}

	var products []model.Product
	if err := q.Order("id").Find(&products).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

// Get handles GET /api/products/:id.
func (h *ProductHandler) Get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var product model.Product
	if err := h.db.First(&product, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
		return
	}
	c.JSON(http.StatusOK, product)
}

type productRequest struct {
	Barcode          string          `json:"barcode" binding:"required,max=64"`
	Name             string          `json:"name" binding:"required,max=128"`
	SKU              string          `json:"sku" binding:"required,max=64"`
	Description      string          `json:"description" binding:"max=512"`
	Price            decimal.Decimal `json:"price"`
	SizeClass        string          `json:"size_class" binding:"max=32"`
	ExpectedLocation string          `json:"expected_location" binding:"max=64"`
	CategoryID       *int64          `json:"category_id"`
}

// Create handles POST /api/products.
func (h *ProductHandler) Create(c *gin.Context) {
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	product := model.Product{
		Barcode:          req.Barcode,
		Name:             req.Name,
		SKU:              req.SKU,
		Description:      req.Description,
		Price:            req.Price,
		SizeClass:        req.SizeClass,
		ExpectedLocation: req.ExpectedLocation,
		CategoryID:       req.CategoryID,
	}
	if product.SizeClass == "" {
		product.SizeClass = model.SizeUnknown
	}
	if err := h.db.Create(&product).Error; err != nil {
		if isUniqueViolation(err) {
			c.JSON(http.StatusConflict, gin.H{"error": "barcode or sku already exists"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		}
		return
	}
	c.JSON(http.StatusOK, product)
}

// Update handles PUT /api/products/:id.
func (h *ProductHandler) Update(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var product model.Product
	if err := h.db.First(&product, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
		return
	}
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	product.Barcode = req.Barcode
	product.Name = req.Name
	product.SKU = req.SKU
	product.Description = req.Description
	product.Price = req.Price
	product.SizeClass = req.SizeClass
	product.ExpectedLocation = req.ExpectedLocation
	product.CategoryID = req.CategoryID
	if err := h.db.Save(&product).Error; err != nil {
		if isUniqueViolation(err) {
			c.JSON(http.StatusConflict, gin.H{"error": "barcode or sku already exists"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		}
		return
	}
	c.JSON(http.StatusOK, product)
}

// Delete handles DELETE /api/products/:id. Stock rows for the product
// go with it.
func (h *ProductHandler) Delete(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("product_id = ?", id).Delete(&model.InventoryItem{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&model.Product{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// ListCategories handles GET /api/categories.
func (h *ProductHandler) ListCategories(c *gin.Context) {
	var cats []model.ProductCategory
	if err := h.db.Order("id").Find(&cats).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": cats})
}

type categoryRequest struct {
	Name string `json:"name" binding:"required,max=64"`
}

// CreateCategory handles POST /api/categories.
func (h *ProductHandler) CreateCategory(c *gin.Context) {
	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cat := model.ProductCategory{Name: req.Name}
	if err := h.db.Create(&cat).Error; err != nil {
		if isUniqueViolation(err) {
			c.JSON(http.StatusConflict, gin.H{"error": "category already exists"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		}
		return
	}
	c.JSON(http.StatusOK, cat)
}
