package rest

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/inair/warehouse/api/ws"
	"github.com/inair/warehouse/model"
	"github.com/inair/warehouse/scheduler"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AdminHandler handles admin-only REST endpoints.
// Routes should be protected by AdminAuth middleware.
type AdminHandler struct {
	db     *gorm.DB
	hub    *ws.Hub
	sched  *scheduler.Scheduler
	logger *zap.Logger
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(db *gorm.DB, hub *ws.Hub, sched *scheduler.Scheduler, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{db: db, hub: hub, sched: sched, logger: logger}
}

// Metrics returns server health metrics.
// GET /api/admin/metrics
func (h *AdminHandler) Metrics(c *gin.Context) {
	var userCount, productCount, droneCount int64
	h.db.Model(&model.User{}).Count(&userCount)
	h.db.Model(&model.Product{}).Count(&productCount)
	h.db.Model(&model.Drone{}).Count(&droneCount)
	c.JSON(http.StatusOK, gin.H{
		"connected_dashboards": h.hub.OperatorCount(),
		"users":                userCount,
		"products":             productCount,
		"drones":               droneCount,
		"scheduler_tasks":      h.sched.ListTickers(),
	})
}

// ListUsers returns all operator accounts.
// GET /api/admin/users
func (h *AdminHandler) ListUsers(c *gin.Context) {
	var users []model.User
	if err := h.db.Order("id").Find(&users).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users, "count": len(users)})
}

// SetUserActive enables or disables an account.
// POST /api/admin/users/:id/active
func (h *AdminHandler) SetUserActive(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var req struct {
		Active bool `json:"active"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res := h.db.Model(&model.User{}).Where("id = ?", userID).Update("active", req.Active)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	h.logger.Info("user active flag changed",
		zap.Int64("user_id", userID),
		zap.Bool("active", req.Active))
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// AuditLogs returns recent audit entries, newest first.
// GET /api/admin/audit?limit=100
func (h *AdminHandler) AuditLogs(c *gin.Context) {
	limit := 100
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 1000 {
			limit = n
		}
	}
	var logs []model.AuditLog
	if err := h.db.Order("id DESC").Limit(limit).Find(&logs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": logs, "count": len(logs)})
}

// AdminAuth guards admin routes with a shared key header.
func AdminAuth(adminKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if adminKey == "" {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable,
				gin.H{"error": "admin endpoints disabled: set server.admin_key in config"})
			return
		}
		key := c.GetHeader("X-Admin-Key")
		if key != adminKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}
