// Package store holds the dashboard's in-memory mirror of server
// state: inventory items, their derived low-stock alerts, drone
// records and the latest warehouse map. It is the single source of
// truth for everything the UI renders.
package store

import (
	"sync"
	"time"

	"github.com/inair/warehouse/alert"
)

// Item is one inventory position as rendered by the dashboard.
type Item struct {
	Barcode     string     `json:"barcode"`
	Name        string     `json:"name"`
	SKU         string     `json:"sku"`
	Category    string     `json:"category"`
	Location    string     `json:"location"`
	Quantity    int        `json:"quantity"`
	LastScanned *time.Time `json:"last_scanned"`
}

// DroneRecord mirrors one fleet drone.
type DroneRecord struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	Model     string     `json:"model"`
	Status    string     `json:"status"`
	PositionX float64    `json:"position_x"`
	PositionY float64    `json:"position_y"`
	PositionZ float64    `json:"position_z"`
	Battery   float64    `json:"battery"`
	Heading   float64    `json:"heading"`
	LastSeen  *time.Time `json:"last_seen"`
}

// MapSnapshot is the latest occupancy grid pushed by a drone.
type MapSnapshot struct {
	Data       string  `json:"data"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	Resolution float64 `json:"resolution"`
}

// Store keeps the mirrored state. All three Replace operations are
// atomic last-writer-wins swaps; partial updates never happen.
type Store struct {
	mu        sync.RWMutex
	items     []Item
	alerts    []alert.Alert
	drones    []DroneRecord
	mapSnap   *MapSnapshot
	threshold int
}

// New creates an empty Store with the given low-stock threshold.
func New(threshold int) *Store {
	return &Store{threshold: threshold}
}

// ReplaceInventory swaps the item list wholesale and recomputes the
// alert list from the same items under one lock, so a reader can never
// observe items and alerts that disagree.
func (s *Store) ReplaceInventory(items []Item) {
	alertItems := make([]alert.Item, len(items))
	for i, it := range items {
		alertItems[i] = alert.Item{
			Name:     it.Name,
			SKU:      it.SKU,
			Barcode:  it.Barcode,
			Location: it.Location,
			Quantity: it.Quantity,
		}
	}
	alerts := alert.Compute(alertItems, s.threshold)

	s.mu.Lock()
	s.items = items
	s.alerts = alerts
	s.mu.Unlock()
}

// ReplaceDrones swaps the drone list wholesale.
func (s *Store) ReplaceDrones(drones []DroneRecord) {
	s.mu.Lock()
	s.drones = drones
	s.mu.Unlock()
}

// ReplaceMap swaps the map snapshot.
func (s *Store) ReplaceMap(snap MapSnapshot) {
	s.mu.Lock()
	s.mapSnap = &snap
	s.mu.Unlock()
}

// Items returns a copy of the current item list.
func (s *Store) Items() []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Item, len(s.items))
	copy(out, s.items)
	return out
}

// Alerts returns a copy of the current alert list.
func (s *Store) Alerts() []alert.Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]alert.Alert, len(s.alerts))
	copy(out, s.alerts)
	return out
}

// Drones returns a copy of the current drone list.
func (s *Store) Drones() []DroneRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]DroneRecord, len(s.drones))
	copy(out, s.drones)
	return out
}

// Map returns the latest map snapshot, or nil if none arrived yet.
func (s *Store) Map() *MapSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.mapSnap == nil {
		return nil
	}
	snap := *s.mapSnap
	return &snap
}
