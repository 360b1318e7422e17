package ws

import (
	"encoding/json"

	"go.uber.org/zap"
)

// Handler processes one inbound packet from a session.
type Handler func(s *Session, pkt *Packet)

// Router dispatches inbound WS packets by type.
type Router struct {
	handlers map[string]Handler
	logger   *zap.Logger
}

// NewRouter creates an empty Router.
func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		handlers: make(map[string]Handler),
		logger:   logger,
	}
}

// Register binds a packet type to a handler.
func (r *Router) Register(msgType string, h Handler) {
	r.handlers[msgType] = h
}

// Dispatch parses raw and routes it. Malformed packets, replayed
// sequence numbers, and unknown types are logged and dropped without
// tearing down the connection.
func (r *Router) Dispatch(s *Session, raw []byte) {
	var pkt Packet
	if err := json.Unmarshal(raw, &pkt); err != nil {
		r.logger.Warn("malformed packet",
			zap.String("session_id", s.ID),
			zap.Error(err))
		return
	}
	if pkt.Seq != 0 {
		if pkt.Seq <= s.LastSeq {
			r.logger.Warn("stale seq, dropping",
				zap.String("session_id", s.ID),
				zap.Uint64("seq", pkt.Seq),
				zap.Uint64("last_seq", s.LastSeq))
			return
		}
		s.LastSeq = pkt.Seq
	}

	h, ok := r.handlers[pkt.Type]
	if !ok {
		r.logger.Warn("unknown packet type",
			zap.String("session_id", s.ID),
			zap.String("type", pkt.Type))
		return
	}
	h(s, &pkt)
}
