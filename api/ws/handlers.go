package ws

import (
	"context"
	"encoding/json"
	"time"

	"github.com/inair/warehouse/fleet"
	"github.com/inair/warehouse/middleware"
	"go.uber.org/zap"
)

const handlerTimeout = 5 * time.Second

// handleTelemetry ingests a telemetry push from a drone.
func (s *Server) handleTelemetry(sess *Session, pkt *Packet) {
	if sess.Role != middleware.RoleDrone {
		return
	}
	var sample fleet.TelemetrySample
	if err := json.Unmarshal(pkt.Payload, &sample); err != nil {
		s.logger.Warn("bad telemetry payload",
			zap.Int64("drone_id", sess.DroneID),
			zap.Error(err))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()
	if err := s.fleetSvc.UpdateTelemetry(ctx, sess.DroneID, sample); err != nil {
		s.logger.Error("telemetry update failed",
			zap.Int64("drone_id", sess.DroneID),
			zap.Error(err))
	}
}

// handleBarcodeScan resolves a barcode read from a drone and acks the
// result back on the same connection.
func (s *Server) handleBarcodeScan(sess *Session, pkt *Packet) {
	if sess.Role != middleware.RoleDrone {
		return
	}
	var req struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(pkt.Payload, &req); err != nil || req.Code == "" {
		s.logger.Warn("bad barcode payload", zap.Int64("drone_id", sess.DroneID))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()
	found, row, err := s.scanSvc.ResolveBarcode(ctx, req.Code, sess.DroneID)
	if err != nil {
		s.logger.Error("barcode resolve failed",
			zap.String("code", req.Code),
			zap.Error(err))
		return
	}

	ack := map[string]interface{}{"code": req.Code}
	if found {
		ack["status"] = "found"
		ack["product"] = row.Name
	} else {
		ack["status"] = "unknown"
	}
	raw, _ := json.Marshal(ack)
	sess.Send(&Packet{Type: "scan_result", Payload: raw})
}

// handleMap caches and rebroadcasts an occupancy grid pushed by a
// drone. The payload is forwarded as-is after a shape check.
func (s *Server) handleMap(sess *Session, pkt *Packet) {
	if sess.Role != middleware.RoleDrone {
		return
	}
	var grid struct {
		Data       string  `json:"data"`
		Width      int     `json:"width"`
		Height     int     `json:"height"`
		Resolution float64 `json:"resolution"`
	}
	if err := json.Unmarshal(pkt.Payload, &grid); err != nil || grid.Width <= 0 || grid.Height <= 0 {
		s.logger.Warn("bad map payload", zap.Int64("drone_id", sess.DroneID))
		return
	}
	s.hub.BroadcastEvent("map", json.RawMessage(pkt.Payload))
}

// handleStatus applies a drone-reported state transition.
func (s *Server) handleStatus(sess *Session, pkt *Packet) {
	if sess.Role != middleware.RoleDrone {
		return
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(pkt.Payload, &req); err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()
	if err := s.fleetSvc.SetStatus(ctx, sess.DroneID, req.Status); err != nil {
		s.logger.Warn("status update failed",
			zap.Int64("drone_id", sess.DroneID),
			zap.Error(err))
		return
	}
	s.fleetSvc.BroadcastSnapshot(ctx)
}

// handlePing answers an application-level keepalive.
func (s *Server) handlePing(sess *Session, pkt *Packet) {
	sess.Send(&Packet{Type: "pong"})
}
