package rest

import (
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/inair/warehouse/scan"
	"github.com/xuri/excelize/v2"
)

// Upload handles POST /api/inventory/upload: a bulk stock file from
// the dashboard. Only .csv and .xlsx are accepted.
func (h *InventoryHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file"})
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read file"})
		return
	}
	defer f.Close()

	var rows []scan.UploadRow
	switch strings.ToLower(filepath.Ext(fileHeader.Filename)) {
	case ".csv":
		rows, err = parseCSV(f, h.maxRows)
	case ".xlsx":
		rows, err = parseXLSX(f, h.maxRows)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported file type, use .csv or .xlsx"})
		return
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	start := time.Now()
	applied, err := h.svc.BulkUpsert(c.Request.Context(), rows)
	h.logAudit(c, "inventory.upload",
		gin.H{"filename": fileHeader.Filename, "rows": len(rows)},
		gin.H{"applied": applied}, err, start)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "applied": applied})
}

// columnIndex maps a header row to upload columns. Name and quantity
// are mandatory, the rest optional.
func columnIndex(header []string) (map[string]int, error) {
	idx := make(map[string]int)
	for i, col := range header {
		idx[strings.ToLower(strings.TrimSpace(col))] = i
	}
	if _, ok := idx["name"]; !ok {
		return nil, fmt.Errorf("missing column: name")
	}
	if _, ok := idx["quantity"]; !ok {
		return nil, fmt.Errorf("missing column: quantity")
	}
	return idx, nil
}

func cell(record []string, idx map[string]int, col string) string {
	i, ok := idx[col]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func toUploadRow(record []string, idx map[string]int, line int) (scan.UploadRow, error) {
	qtyStr := cell(record, idx, "quantity")
	qty, err := strconv.Atoi(qtyStr)
	if err != nil || qty < 0 {
		return scan.UploadRow{}, fmt.Errorf("row %d: invalid quantity %q", line, qtyStr)
	}
	name := cell(record, idx, "name")
	if name == "" {
		return scan.UploadRow{}, fmt.Errorf("row %d: empty name", line)
	}
	return scan.UploadRow{
		Barcode:  cell(record, idx, "barcode"),
		Name:     name,
		SKU:      cell(record, idx, "sku"),
		Quantity: qty,
		Location: cell(record, idx, "location"),
	}, nil
}

func parseCSV(r io.Reader, maxRows int) ([]scan.UploadRow, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("empty file")
	}
	idx, err := columnIndex(header)
	if err != nil {
		return nil, err
	}

	var rows []scan.UploadRow
	line := 1
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: %v", line+1, err)
		}
		line++
		if len(rows) >= maxRows {
			return nil, fmt.Errorf("too many rows (max %d)", maxRows)
		}
		row, err := toUploadRow(record, idx, line)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseXLSX(r io.Reader, maxRows int) ([]scan.UploadRow, error) {
	wb, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("invalid xlsx file")
	}
	defer wb.Close()

	sheets := wb.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("empty workbook")
	}
	records, err := wb.GetRows(sheets[0])
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("empty file")
	}

	idx, err := columnIndex(records[0])
	if err != nil {
		return nil, err
	}
	if len(records)-1 > maxRows {
		return nil, fmt.Errorf("too many rows (max %d)", maxRows)
	}

	var rows []scan.UploadRow
	for i, record := range records[1:] {
		if len(record) == 0 {
			continue
		}
		row, err := toUploadRow(record, idx, i+2)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}
