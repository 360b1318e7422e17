package scan

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/inair/warehouse/alert"
	"github.com/inair/warehouse/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Broadcaster pushes a named event to all connected dashboard clients.
// Implemented by the WS hub; substituted with a fake in tests.
type Broadcaster interface {
	BroadcastEvent(event string, payload interface{})
}

// AlertPublisher mirrors low-stock alerts onto a pub/sub channel for
// the SSE stream. Satisfied by cache.PubSub.
type AlertPublisher interface {
	Publish(ctx context.Context, channel, message string) error
}

// AlertChannel is the pub/sub channel carrying alert snapshots.
const AlertChannel = "alerts"

// Row is one joined inventory position as shipped to clients.
type Row struct {
	Barcode     string     `json:"barcode"`
	Name        string     `json:"name"`
	SKU         string     `json:"sku"`
	Category    string     `json:"category"`
	Location    string     `json:"location"`
	Quantity    int        `json:"quantity"`
	LastScanned *time.Time `json:"last_scanned"`
	SessionID   int64      `json:"session_id"`
}

// Query filters for ListInventory.
type Query struct {
	Location string
	Search   string
	Limit    int
	Offset   int
}

// Service ingests scans and manual additions, keeps scan sessions, and
// broadcasts the refreshed inventory to the dashboard.
type Service struct {
	db        *gorm.DB
	hub       Broadcaster
	alerts    AlertPublisher
	threshold int
	defLoc    string
	logger    *zap.Logger
}

// New creates a scan Service.
func New(db *gorm.DB, hub Broadcaster, threshold int, defaultLocation string, logger *zap.Logger) *Service {
	if defaultLocation == "" {
		defaultLocation = model.LocationUnknown
	}
	return &Service{db: db, hub: hub, threshold: threshold, defLoc: defaultLocation, logger: logger}
}

// SetAlertStream enables mirroring of alert snapshots to pub/sub.
func (s *Service) SetAlertStream(p AlertPublisher) {
	s.alerts = p
}

// ListInventory returns the joined product+stock rows, newest scan first.
func (s *Service) ListInventory(ctx context.Context, q Query) ([]Row, error) {
	tx := s.db.WithContext(ctx).
		Table("inventory_items").
		Select("products.barcode, products.name, products.sku, " +
			"COALESCE(product_categories.name, '') AS category, " +
			"inventory_items.location, inventory_items.quantity, " +
			"inventory_items.last_scanned, " +
			"COALESCE(inventory_items.scan_session_id, 0) AS session_id").
		Joins("JOIN products ON products.id = inventory_items.product_id").
		Joins("LEFT JOIN product_categories ON product_categories.id = products.category_id").
		Order("inventory_items.last_scanned DESC")

	if q.Location != "" {
		tx = tx.Where("inventory_items.location = ?", q.Location)
	}
	if q.Search != "" {
		pattern := "%" + strings.ToLower(q.Search) + "%"
		tx = tx.Where(
			"LOWER(products.name) LIKE ? OR LOWER(products.sku) LIKE ? OR "+
				"LOWER(products.barcode) LIKE ? OR LOWER(inventory_items.location) LIKE ?",
			pattern, pattern, pattern, pattern)
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}
	if q.Offset > 0 {
		tx = tx.Offset(q.Offset)
	}

	var rows []Row
	if err := tx.Scan(&rows).Error; err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []Row{}
	}
	return rows, nil
}

// Snapshot returns the full inventory plus its derived alerts. The two
// are computed from the same row set, so consumers never observe an
// item list and alert list that disagree.
func (s *Service) Snapshot(ctx context.Context) ([]Row, []alert.Alert, error) {
	rows, err := s.ListInventory(ctx, Query{})
	if err != nil {
		return nil, nil, err
	}
	items := make([]alert.Item, len(rows))
	for i, r := range rows {
		items[i] = alert.Item{
			Name:     r.Name,
			SKU:      r.SKU,
			Barcode:  r.Barcode,
			Location: r.Location,
			Quantity: r.Quantity,
		}
	}
	return rows, alert.Compute(items, s.threshold), nil
}

// Stats aggregates dashboard counters.
type Stats struct {
	TotalItems      int64 `json:"total_items"`
	UniqueProducts  int64 `json:"unique_products"`
	UnknownLocation int64 `json:"unknown_location_count"`
	LowStock        int64 `json:"low_stock_count"`
}

// GetStats returns inventory summary statistics.
func (s *Service) GetStats(ctx context.Context) (*Stats, error) {
	var st Stats
	db := s.db.WithContext(ctx)
	if err := db.Model(&model.InventoryItem{}).Count(&st.TotalItems).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&model.Product{}).Count(&st.UniqueProducts).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&model.InventoryItem{}).
		Where("location = ?", model.LocationUnknown).
		Count(&st.UnknownLocation).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&model.InventoryItem{}).
		Where("quantity < ?", s.threshold).
		Count(&st.LowStock).Error; err != nil {
		return nil, err
	}
	return &st, nil
}

// AddManual registers a manually entered item. The product is matched
// by name; unknown names get a fresh catalog entry with generated
// identifiers so the barcode/SKU uniqueness invariant holds.
func (s *Service) AddManual(ctx context.Context, name string, quantity int, location string) (*Row, error) {
	if location == "" {
		location = s.defLoc
	}

	var product model.Product
	err := s.db.WithContext(ctx).Where("name = ?", name).First(&product).Error
	if err == gorm.ErrRecordNotFound {
		product = model.Product{
			Barcode: "MAN-" + uuid.NewString()[:8],
			Name:    name,
			SKU:     "SKU-" + uuid.NewString()[:8],
		}
		if err := s.db.WithContext(ctx).Create(&product).Error; err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	if err := s.upsertItem(ctx, product.ID, location, quantity, nil); err != nil {
		return nil, err
	}
	s.broadcastInventory(ctx, "inventory_update")

	now := time.Now()
	return &Row{
		Barcode:     product.Barcode,
		Name:        product.Name,
		SKU:         product.SKU,
		Location:    location,
		Quantity:    quantity,
		LastScanned: &now,
	}, nil
}

// ResolveBarcode handles one decoded barcode. droneID > 0 attributes
// the scan to a running drone session; 0 means an operator scanned it
// at the dashboard. Returns found=false when the code is not in the
// catalog — a domain outcome that triggers the caller's manual
// fallback, not an error.
func (s *Service) ResolveBarcode(ctx context.Context, code string, droneID int64) (found bool, row *Row, err error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return false, nil, nil
	}

	var product model.Product
	err = s.db.WithContext(ctx).Where("barcode = ?", code).First(&product).Error
	if err == gorm.ErrRecordNotFound {
		s.hub.BroadcastEvent("scan_result", map[string]interface{}{
			"status":   "unknown",
			"barcode":  code,
			"drone_id": droneID,
		})
		return false, nil, nil
	}
	if err != nil {
		return false, nil, err
	}

	var sessionID *int64
	if droneID > 0 {
		id, serr := s.runningSession(ctx, droneID)
		if serr != nil {
			return false, nil, serr
		}
		sessionID = &id
	}

	if err := s.upsertItem(ctx, product.ID, s.defLoc, 1, sessionID); err != nil {
		return false, nil, err
	}

	var item model.InventoryItem
	if err := s.db.WithContext(ctx).
		Where("product_id = ? AND location = ?", product.ID, s.defLoc).
		First(&item).Error; err != nil {
		return false, nil, err
	}

	s.hub.BroadcastEvent("new_scan", map[string]interface{}{
		"status":       "success",
		"barcode":      code,
		"product_name": product.Name,
		"sku":          product.SKU,
		"quantity":     item.Quantity,
		"drone_id":     droneID,
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
	})
	s.broadcastInventory(ctx, "new_scan")

	return true, &Row{
		Barcode:     product.Barcode,
		Name:        product.Name,
		SKU:         product.SKU,
		Location:    item.Location,
		Quantity:    item.Quantity,
		LastScanned: item.LastScanned,
	}, nil
}

// UploadRow is one parsed row from a bulk upload file.
type UploadRow struct {
	Barcode  string
	Name     string
	SKU      string
	Quantity int
	Location string
}

// BulkUpsert applies upload rows: products are matched by barcode and
// created when missing, stock positions are replaced at the given
// location. Returns how many rows were applied.
func (s *Service) BulkUpsert(ctx context.Context, rows []UploadRow) (int, error) {
	applied := 0
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, r := range rows {
			if r.Barcode == "" || r.Name == "" {
				continue
			}
			loc := r.Location
			if loc == "" {
				loc = s.defLoc
			}

			var product model.Product
			err := tx.Where("barcode = ?", r.Barcode).First(&product).Error
			if err == gorm.ErrRecordNotFound {
				sku := r.SKU
				if sku == "" {
					sku = "SKU-" + uuid.NewString()[:8]
				}
				product = model.Product{Barcode: r.Barcode, Name: r.Name, SKU: sku}
				if err := tx.Create(&product).Error; err != nil {
					return err
				}
			} else if err != nil {
				return err
			}

			now := time.Now()
			var item model.InventoryItem
			err = tx.Where("product_id = ? AND location = ?", product.ID, loc).First(&item).Error
			if err == gorm.ErrRecordNotFound {
				item = model.InventoryItem{
					ProductID:   product.ID,
					Location:    loc,
					Quantity:    r.Quantity,
					LastScanned: &now,
				}
				if err := tx.Create(&item).Error; err != nil {
					return err
				}
			} else if err != nil {
				return err
			} else {
				item.Quantity = r.Quantity
				item.LastScanned = &now
				if err := tx.Save(&item).Error; err != nil {
					return err
				}
			}
			applied++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if applied > 0 {
		s.broadcastInventory(ctx, "inventory_update")
	}
	return applied, nil
}

// upsertItem increments (or creates) the stock position for a product
// at a location and stamps the scan time.
func (s *Service) upsertItem(ctx context.Context, productID int64, location string, qty int, sessionID *int64) error {
	now := time.Now()
	var item model.InventoryItem
	err := s.db.WithContext(ctx).
		Where("product_id = ? AND location = ?", productID, location).
		First(&item).Error
	if err == gorm.ErrRecordNotFound {
		item = model.InventoryItem{
			ProductID:     productID,
			Location:      location,
			Quantity:      qty,
			LastScanned:   &now,
			ScanSessionID: sessionID,
		}
		return s.db.WithContext(ctx).Create(&item).Error
	}
	if err != nil {
		return err
	}
	item.Quantity += qty
	item.LastScanned = &now
	if sessionID != nil {
		item.ScanSessionID = sessionID
	}
	return s.db.WithContext(ctx).Save(&item).Error
}

// runningSession finds or starts the running scan session for a drone
// and bumps its counter.
func (s *Service) runningSession(ctx context.Context, droneID int64) (int64, error) {
	var session model.ScanSession
	err := s.db.WithContext(ctx).
		Where("drone_id = ? AND status = ?", droneID, model.SessionRunning).
		First(&session).Error
	if err == gorm.ErrRecordNotFound {
		session = model.ScanSession{DroneID: droneID, Status: model.SessionRunning}
		if err := s.db.WithContext(ctx).Create(&session).Error; err != nil {
			return 0, err
		}
	} else if err != nil {
		return 0, err
	}

	if err := s.db.WithContext(ctx).Model(&model.ScanSession{}).
		Where("id = ?", session.ID).
		UpdateColumn("total_scanned", gorm.Expr("total_scanned + 1")).Error; err != nil {
		return 0, err
	}
	return session.ID, nil
}

// broadcastInventory ships the full refreshed inventory and alerts to
// the dashboard. Deliberate full-snapshot push: clients replace state
// wholesale instead of patching.
func (s *Service) broadcastInventory(ctx context.Context, reason string) {
	rows, alerts, err := s.Snapshot(ctx)
	if err != nil {
		s.logger.Error("inventory snapshot failed", zap.String("reason", reason), zap.Error(err))
		return
	}
	s.hub.BroadcastEvent("inventory", map[string]interface{}{
		"inventory": rows,
		"alerts":    alerts,
	})

	if s.alerts != nil && len(alerts) > 0 {
		payload, err := json.Marshal(alerts)
		if err != nil {
			return
		}
		if err := s.alerts.Publish(ctx, AlertChannel, string(payload)); err != nil {
			s.logger.Warn("alert publish failed", zap.Error(err))
		}
	}
}
