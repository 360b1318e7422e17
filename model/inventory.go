package model

import "time"

// LocationUnknown is the sentinel location for items whose placement
// has not been resolved yet (e.g. scanned mid-flight by a drone).
const LocationUnknown = "UNKNOWN"

// InventoryItem is one stock position: a product at a location.
// A product appears at most once per location.
type InventoryItem struct {
	ID            int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID     int64      `gorm:"uniqueIndex:uq_product_location;not null" json:"product_id"`
	Location      string     `gorm:"uniqueIndex:uq_product_location;size:100;not null" json:"location"`
	Quantity      int        `gorm:"default:1;not null" json:"quantity"`
	LastScanned   *time.Time `json:"last_scanned"`
	ScanSessionID *int64     `gorm:"index" json:"scan_session_id"`
}

// Scan session statuses.
const (
	SessionRunning   = "running"
	SessionCompleted = "completed"
	SessionFailed    = "failed"
	SessionCancelled = "cancelled"
)

// ScanSession tracks one drone inventory pass.
type ScanSession struct {
	ID           int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	DroneID      int64      `gorm:"index;not null" json:"drone_id"`
	StartedAt    time.Time  `gorm:"autoCreateTime" json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at"`
	TotalScanned int        `gorm:"default:0" json:"total_scanned"`
	Status       string     `gorm:"size:20;default:running" json:"status"`
}

// Warehouse is a physical site.
type Warehouse struct {
	ID      int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Address string `gorm:"type:text;not null" json:"address"`
	Number  int    `gorm:"uniqueIndex;not null" json:"number"`
	Name    string `gorm:"size:100" json:"name"`
}
