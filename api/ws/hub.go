package ws

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// Hub tracks connected operator dashboards and drones and fans events
// out to them. It satisfies the Broadcaster interfaces of the scan and
// fleet services.
type Hub struct {
	mu        sync.RWMutex
	operators map[string]*Session // session ID -> operator session
	drones    map[int64]*Session  // drone ID -> drone session
	lastMap   json.RawMessage     // latest map snapshot, replayed on connect
	logger    *zap.Logger
}

// NewHub creates an empty Hub.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		operators: make(map[string]*Session),
		drones:    make(map[int64]*Session),
		logger:    logger,
	}
}

// AddOperator registers an operator session and replays the latest map
// snapshot so a freshly connected dashboard is not blank until the next
// drone pass.
func (h *Hub) AddOperator(s *Session) {
	h.mu.Lock()
	h.operators[s.ID] = s
	lastMap := h.lastMap
	h.mu.Unlock()

	if lastMap != nil {
		s.Send(&Packet{Type: "map", Payload: lastMap})
	}
	h.logger.Info("operator connected",
		zap.String("session_id", s.ID),
		zap.Int64("user_id", s.UserID))
}

// RemoveOperator drops an operator session.
func (h *Hub) RemoveOperator(s *Session) {
	h.mu.Lock()
	delete(h.operators, s.ID)
	h.mu.Unlock()
	s.Close()
}

// AddDrone registers a drone session, displacing any previous
// connection for the same drone.
func (h *Hub) AddDrone(s *Session) {
	h.mu.Lock()
	old := h.drones[s.DroneID]
	h.drones[s.DroneID] = s
	h.mu.Unlock()

	if old != nil && old != s {
		old.Close()
	}
	h.logger.Info("drone connected",
		zap.String("session_id", s.ID),
		zap.Int64("drone_id", s.DroneID))
}

// RemoveDrone drops a drone session. Returns true if s was still the
// registered session for that drone (a replacement connection keeps the
// drone online).
func (h *Hub) RemoveDrone(s *Session) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.drones[s.DroneID] != s {
		return false
	}
	delete(h.drones, s.DroneID)
	s.Close()
	return true
}

// GetDrone returns the live session for a drone, if connected.
func (h *Hub) GetDrone(droneID int64) (*Session, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	s, ok := h.drones[droneID]
	return s, ok
}

// OperatorCount returns the number of connected dashboards.
func (h *Hub) OperatorCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.operators)
}

// BroadcastEvent marshals payload and pushes a typed packet to every
// connected operator. Map snapshots are additionally cached for replay.
func (h *Hub) BroadcastEvent(event string, payload interface{}) {
	raw, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("broadcast marshal failed", zap.String("event", event), zap.Error(err))
		return
	}
	data, err := json.Marshal(&Packet{Type: event, Payload: raw})
	if err != nil {
		return
	}

	h.mu.Lock()
	if event == "map" {
		h.lastMap = raw
	}
	sessions := make([]*Session, 0, len(h.operators))
	for _, s := range h.operators {
		sessions = append(sessions, s)
	}
	h.mu.Unlock()

	for _, s := range sessions {
		s.SendRaw(data)
	}
}

// SendToDrone delivers a packet to one connected drone. Returns false
// if the drone is not connected.
func (h *Hub) SendToDrone(droneID int64, pkt *Packet) bool {
	s, ok := h.GetDrone(droneID)
	if !ok {
		return false
	}
	s.Send(pkt)
	return true
}

// CloseAll shuts down every session, used on server shutdown.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, s := range h.operators {
		s.Close()
	}
	for _, s := range h.drones {
		s.Close()
	}
	h.operators = make(map[string]*Session)
	h.drones = make(map[int64]*Session)
}
