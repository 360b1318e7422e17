package store

import "strings"

// Stats summarizes the mirrored state for the dashboard header.
type Stats struct {
	TotalQuantity  int            `json:"total_quantity"`
	ItemCount      int            `json:"item_count"`
	AlertCount     int            `json:"alert_count"`
	DroneCount     int            `json:"drone_count"`
	DronesByStatus map[string]int `json:"drones_by_status"`
}

// Search returns the items whose name, SKU, barcode or location
// contains the query, case-insensitive. Empty fields never match; an
// empty query returns everything.
func (s *Store) Search(query string) []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		out := make([]Item, len(s.items))
		copy(out, s.items)
		return out
	}

	out := make([]Item, 0)
	for _, it := range s.items {
		if fieldMatches(it.Name, query) ||
			fieldMatches(it.SKU, query) ||
			fieldMatches(it.Barcode, query) ||
			fieldMatches(it.Location, query) {
			out = append(out, it)
		}
	}
	return out
}

func fieldMatches(field, query string) bool {
	if field == "" {
		return false
	}
	return strings.Contains(strings.ToLower(field), query)
}

// Stats computes summary counters from the current state.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{
		ItemCount:      len(s.items),
		AlertCount:     len(s.alerts),
		DroneCount:     len(s.drones),
		DronesByStatus: make(map[string]int),
	}
	for _, it := range s.items {
		st.TotalQuantity += it.Quantity
	}
	for _, d := range s.drones {
		st.DronesByStatus[d.Status]++
	}
	return st
}
