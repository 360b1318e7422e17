package ws

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// newTestSession creates a minimal Session without a live connection.
func newTestSession(id string) *Session {
	return &Session{
		ID:       id,
		SendChan: make(chan []byte, 256),
		Done:     make(chan struct{}),
		logger:   zap.NewNop(),
	}
}

func makePacket(t *testing.T, seq uint64, msgType string, payload interface{}) []byte {
	t.Helper()
	p, _ := json.Marshal(payload)
	b, err := json.Marshal(&Packet{Seq: seq, Type: msgType, Payload: p})
	require.NoError(t, err)
	return b
}

func TestRouterDispatch(t *testing.T) {
	r := NewRouter(zap.NewNop())
	called := false
	r.Register("telemetry", func(s *Session, pkt *Packet) {
		called = true
	})

	r.Dispatch(newTestSession("s1"), makePacket(t, 1, "telemetry", nil))
	assert.True(t, called)
}

func TestRouterDispatchMalformed(t *testing.T) {
	r := NewRouter(zap.NewNop())
	// Must not panic.
	r.Dispatch(newTestSession("s1"), []byte("not json"))
}

func TestRouterDispatchUnknownType(t *testing.T) {
	r := NewRouter(zap.NewNop())
	called := false
	r.Register("known", func(*Session, *Packet) { called = true })

	r.Dispatch(newTestSession("s1"), makePacket(t, 1, "unknown", nil))
	assert.False(t, called)
}

func TestRouterDispatchStaleSeq(t *testing.T) {
	r := NewRouter(zap.NewNop())
	var count int
	r.Register("telemetry", func(*Session, *Packet) { count++ })

	s := newTestSession("s1")
	r.Dispatch(s, makePacket(t, 5, "telemetry", nil))
	r.Dispatch(s, makePacket(t, 3, "telemetry", nil)) // replayed
	r.Dispatch(s, makePacket(t, 6, "telemetry", nil))
	assert.Equal(t, 2, count)
}

func TestRouterDispatchPayload(t *testing.T) {
	r := NewRouter(zap.NewNop())
	var got string
	r.Register("barcode_scan", func(s *Session, pkt *Packet) {
		var req struct {
			Code string `json:"code"`
		}
		require.NoError(t, json.Unmarshal(pkt.Payload, &req))
		got = req.Code
	})

	r.Dispatch(newTestSession("s1"), makePacket(t, 1, "barcode_scan", map[string]string{"code": "111"}))
	assert.Equal(t, "111", got)
}

func TestHubBroadcastEvent(t *testing.T) {
	h := NewHub(zap.NewNop())
	s := newTestSession("op1")
	h.mu.Lock()
	h.operators[s.ID] = s
	h.mu.Unlock()

	h.BroadcastEvent("inventory", map[string]interface{}{"inventory": []string{}})

	select {
	case raw := <-s.SendChan:
		var pkt Packet
		require.NoError(t, json.Unmarshal(raw, &pkt))
		assert.Equal(t, "inventory", pkt.Type)
	default:
		t.Fatal("no packet delivered")
	}
}

func TestHubMapReplayOnConnect(t *testing.T) {
	h := NewHub(zap.NewNop())
	h.BroadcastEvent("map", map[string]interface{}{"data": "AAAA", "width": 10, "height": 10, "resolution": 0.05})

	// A dashboard connecting later still gets the latest map.
	s := newTestSession("op1")
	h.AddOperator(s)

	select {
	case raw := <-s.SendChan:
		var pkt Packet
		require.NoError(t, json.Unmarshal(raw, &pkt))
		assert.Equal(t, "map", pkt.Type)
	default:
		t.Fatal("map snapshot not replayed")
	}
}

func TestHubDroneDisplacement(t *testing.T) {
	h := NewHub(zap.NewNop())
	old := newTestSession("d-old")
	old.DroneID = 7
	newer := newTestSession("d-new")
	newer.DroneID = 7

	h.AddDrone(old)
	h.AddDrone(newer)

	assert.True(t, old.IsClosed())
	assert.False(t, newer.IsClosed())

	// Removing the displaced session must not take the drone offline.
	assert.False(t, h.RemoveDrone(old))
	assert.True(t, h.RemoveDrone(newer))
}
