package rest

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/inair/warehouse/model"
	"gorm.io/gorm"
)

// WarehouseHandler handles warehouse site REST endpoints.
type WarehouseHandler struct {
	db *gorm.DB
}

// NewWarehouseHandler creates a new WarehouseHandler.
func NewWarehouseHandler(db *gorm.DB) *WarehouseHandler {
	return &WarehouseHandler{db: db}
}

// List handles GET /api/warehouses.
func (h *WarehouseHandler) List(c *gin.Context) {
	var sites []model.Warehouse
	if err := h.db.Order("number").Find(&sites).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"warehouses": sites})
}

type warehouseRequest struct {
	Address string `json:"address" binding:"required,max=256"`
	Number  int    `json:"number" binding:"required,min=1"`
	Name    string `json:"name" binding:"max=100"`
}

// Create handles POST /api/warehouses.
func (h *WarehouseHandler) Create(c *gin.Context) {
	var req warehouseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	site := model.Warehouse{Address: req.Address, Number: req.Number, Name: req.Name}
	if err := h.db.Create(&site).Error; err != nil {
		if isUniqueViolation(err) {
			c.JSON(http.StatusConflict, gin.H{"error": "warehouse number already exists"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		}
		return
	}
	c.JSON(http.StatusOK, site)
}

// Update handles PUT /api/warehouses/:id.
func (h *WarehouseHandler) Update(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var site model.Warehouse
	if err := h.db.First(&site, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "warehouse not found"})
		return
	}
	var req warehouseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	site.Address = req.Address
	site.Number = req.Number
	site.Name = req.Name
	if err := h.db.Save(&site).Error; err != nil {
		if isUniqueViolation(err) {
			c.JSON(http.StatusConflict, gin.H{"error": "warehouse number already exists"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		}
		return
	}
	c.JSON(http.StatusOK, site)
}

// Delete handles DELETE /api/warehouses/:id.
func (h *WarehouseHandler) Delete(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	res := h.db.Delete(&model.Warehouse{}, id)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "warehouse not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}
