package report

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/inair/warehouse/scan"
)

// WriteCSV renders inventory rows as a CSV export with a header line.
func WriteCSV(w io.Writer, rows []scan.Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"barcode", "name", "sku", "category", "location", "quantity", "last_scanned"}); err != nil {
		return err
	}
	for _, r := range rows {
		scanned := ""
		if r.LastScanned != nil {
			scanned = r.LastScanned.UTC().Format(time.RFC3339)
		}
		if err := cw.Write([]string{
			r.Barcode,
			r.Name,
			r.SKU,
			r.Category,
			r.Location,
			strconv.Itoa(r.Quantity),
			scanned,
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
