package rest

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/inair/warehouse/audit"
	"github.com/inair/warehouse/config"
	"github.com/inair/warehouse/fleet"
	mw "github.com/inair/warehouse/middleware"
	"github.com/inair/warehouse/model"
	"github.com/inair/warehouse/scan"
	"gorm.io/gorm"
)

// DroneHandler handles drone fleet REST endpoints.
type DroneHandler struct {
	db      *gorm.DB
	fleet   *fleet.Service
	scanSvc *scan.Service
	audit   *audit.Service
	sec     config.SecurityConfig
}

// NewDroneHandler creates a new DroneHandler.
func NewDroneHandler(db *gorm.DB, fl *fleet.Service, scanSvc *scan.Service, aud *audit.Service, sec config.SecurityConfig) *DroneHandler {
	return &DroneHandler{db: db, fleet: fl, scanSvc: scanSvc, audit: aud, sec: sec}
}

// List handles GET /api/drones.
func (h *DroneHandler) List(c *gin.Context) {
	records, err := h.fleet.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"drones": records})
}

// Get handles GET /api/drones/:id.
func (h *DroneHandler) Get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	record, err := h.fleet.Get(c.Request.Context(), id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "drone not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, record)
}

// Telemetry handles GET /api/drones/:id/telemetry (latest sample).
func (h *DroneHandler) Telemetry(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var row model.DroneTelemetry
	if err := h.db.Where("drone_id = ?", id).First(&row).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no telemetry"})
		return
	}
	c.JSON(http.StatusOK, row)
}

type registerDroneRequest struct {
	Name         string `json:"name" binding:"required,max=64"`
	SerialNumber string `json:"serial_number" binding:"required,max=64"`
	Model        string `json:"model" binding:"max=64"`
}

// Register handles POST /api/drones: provisions a new drone and
// returns its long-lived access token.
func (h *DroneHandler) Register(c *gin.Context) {
	var req registerDroneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := mw.GetUserID(c)
	drone := model.Drone{
		Name:         req.Name,
		SerialNumber: req.SerialNumber,
		OwnerID:      userID,
		Model:        req.Model,
		Status:       model.DroneOffline,
		Active:       true,
	}
	if err := h.db.Create(&drone).Error; err != nil {
		if isUniqueViolation(err) {
			c.JSON(http.StatusConflict, gin.H{"error": "drone name or serial already registered"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		}
		return
	}

	// Drone tokens live much longer than operator sessions; the drone
	// stores it in firmware config.
	token, err := mw.GenerateDroneToken(drone.ID, h.sec.JWTSecret, 365*24*time.Hour)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token error"})
		return
	}

	entry := audit.Entry{
		TraceID: mw.GetTraceID(c),
		UserID:  &userID,
		Action:  "drone.register",
		Request: req,
		IP:      c.ClientIP(),
	}
	h.audit.Log(entry)

	c.JSON(http.StatusOK, gin.H{"drone_id": drone.ID, "token": token})
}

type setStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// SetStatus handles POST /api/drones/:id/status: an operator command
// such as grounding a misbehaving drone.
func (h *DroneHandler) SetStatus(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var req setStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.fleet.SetStatus(c.Request.Context(), id, req.Status); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.fleet.BroadcastSnapshot(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// PushTelemetry handles POST /api/drone/telemetry, the HTTP fallback
// for drones without a WS connection.
func (h *DroneHandler) PushTelemetry(c *gin.Context) {
	droneID := mw.GetDroneID(c)
	var sample fleet.TelemetrySample
	if err := c.ShouldBindJSON(&sample); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.fleet.UpdateTelemetry(c.Request.Context(), droneID, sample); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

type droneScanRequest struct {
	Code string `json:"code" binding:"required,max=64"`
}

// Scan handles POST /api/drone/scan, the HTTP fallback for a drone
// barcode read.
func (h *DroneHandler) Scan(c *gin.Context) {
	droneID := mw.GetDroneID(c)
	var req droneScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	start := time.Now()
	found, row, err := h.scanSvc.ResolveBarcode(c.Request.Context(), req.Code, droneID)
	entry := audit.Entry{
		TraceID:    mw.GetTraceID(c),
		DroneID:    &droneID,
		Action:     "drone.scan",
		Request:    req,
		Response:   row,
		IP:         c.ClientIP(),
		DurationMs: int(time.Since(start).Milliseconds()),
	}
	if err != nil {
		entry.Error = err.Error()
	}
	h.audit.Log(entry)

	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if !found {
		c.JSON(http.StatusOK, gin.H{"status": "unknown", "code": req.Code})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "found", "item": row})
}
