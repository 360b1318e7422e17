package rest

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/inair/warehouse/report"
	"github.com/inair/warehouse/scan"
)

// ReportHandler handles export endpoints.
type ReportHandler struct {
	svc *scan.Service
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(svc *scan.Service) *ReportHandler {
	return &ReportHandler{svc: svc}
}

// InventoryCSV handles GET /api/reports/inventory.csv. Accepts the
// same search and location filters as the inventory list.
func (h *ReportHandler) InventoryCSV(c *gin.Context) {
	rows, err := h.svc.ListInventory(c.Request.Context(), scan.Query{
		Search:   c.Query("search"),
		Location: c.Query("location"),
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	filename := "inventory-" + time.Now().Format("2006-01-02") + ".csv"
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	if err := report.WriteCSV(c.Writer, rows); err != nil {
		// Headers already sent, just drop the connection.
		c.Abort()
	}
}
