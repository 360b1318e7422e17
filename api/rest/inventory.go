package rest

import (
	"encoding/base64"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/inair/warehouse/audit"
	mw "github.com/inair/warehouse/middleware"
	"github.com/inair/warehouse/scan"
	"go.uber.org/zap"
)

// InventoryHandler handles inventory REST endpoints.
type InventoryHandler struct {
	svc        *scan.Service
	recognizer scan.Recognizer
	audit      *audit.Service
	maxRows    int
	logger     *zap.Logger
}

// NewInventoryHandler creates a new InventoryHandler.
func NewInventoryHandler(svc *scan.Service, rec scan.Recognizer, aud *audit.Service, maxRows int, logger *zap.Logger) *InventoryHandler {
	return &InventoryHandler{svc: svc, recognizer: rec, audit: aud, maxRows: maxRows, logger: logger}
}

// List handles GET /api/inventory.
// Supports search, location, limit and offset query parameters.
func (h *InventoryHandler) List(c *gin.Context) {
	q := scan.Query{
		Search:   c.Query("search"),
		Location: c.Query("location"),
	}
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			q.Limit = n
		}
	}
	if v := c.Query("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			q.Offset = n
		}
	}

	rows, err := h.svc.ListInventory(c.Request.Context(), q)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"inventory": rows})
}

// Stats handles GET /api/inventory/stats.
func (h *InventoryHandler) Stats(c *gin.Context) {
	stats, err := h.svc.GetStats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Alerts handles GET /api/inventory/alerts.
func (h *InventoryHandler) Alerts(c *gin.Context) {
	_, alerts, err := h.svc.Snapshot(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"alerts": alerts})
}

type addRequest struct {
	Name     string `json:"name" binding:"required,max=128"`
	Quantity int    `json:"quantity" binding:"required,min=1"`
	Location string `json:"location" binding:"max=64"`
}

// Add handles POST /api/inventory/add: a manual stock entry typed in
// at the dashboard.
func (h *InventoryHandler) Add(c *gin.Context) {
	var req addRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	start := time.Now()
	row, err := h.svc.AddManual(c.Request.Context(), req.Name, req.Quantity, req.Location)
	h.logAudit(c, "inventory.add", req, row, err, start)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "item": row})
}

type scanBarcodeRequest struct {
	Code string `json:"code" binding:"required,max=64"`
}

// ScanBarcode handles POST /api/inventory/scan_barcode: a barcode read
// from the dashboard's handheld reader.
func (h *InventoryHandler) ScanBarcode(c *gin.Context) {
	var req scanBarcodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	start := time.Now()
	found, row, err := h.svc.ResolveBarcode(c.Request.Context(), req.Code, 0)
	h.logAudit(c, "inventory.scan_barcode", req, row, err, start)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if !found {
		c.JSON(http.StatusOK, gin.H{"status": "not_found", "code": req.Code})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "found", "item": row})
}

type scanPhotoRequest struct {
	Photo string `json:"photo" binding:"required"` // base64-encoded image
}

// ScanPhoto handles POST /api/inventory/scan_photo. The photo is
// forwarded to the recognition service; a failed recognition is a
// normal response, not an error, so the dashboard can fall back to
// manual entry.
func (h *InventoryHandler) ScanPhoto(c *gin.Context) {
	var req scanPhotoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	image, err := base64.StdEncoding.DecodeString(req.Photo)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid photo encoding"})
		return
	}

	start := time.Now()
	count, err := h.recognizer.Recognize(c.Request.Context(), image)
	h.logAudit(c, "inventory.scan_photo", gin.H{"bytes": len(image)}, gin.H{"count": count}, err, start)
	if err != nil {
		h.logger.Warn("photo recognition failed", zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"status": "failure"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "count": count})
}

func (h *InventoryHandler) logAudit(c *gin.Context, action string, req, resp interface{}, err error, start time.Time) {
	userID := mw.GetUserID(c)
	entry := audit.Entry{
		TraceID:    mw.GetTraceID(c),
		Action:     action,
		Request:    req,
		Response:   resp,
		IP:         c.ClientIP(),
		DurationMs: int(time.Since(start).Milliseconds()),
	}
	if userID != 0 {
		entry.UserID = &userID
	}
	if err != nil {
		entry.Error = err.Error()
	}
	h.audit.Log(entry)
}
