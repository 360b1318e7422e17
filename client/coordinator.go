// Package client is the dashboard-side sync coordinator: it owns the
// local state mirror, feeds it from the live WebSocket channel, and
// refetches authoritative state over REST when the server signals a
// change.
package client

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/inair/warehouse/client/api"
	"github.com/inair/warehouse/client/live"
	"github.com/inair/warehouse/client/store"
	"go.uber.org/zap"
)

// Fetcher pulls authoritative state over REST. Satisfied by
// *api.Client; tests substitute a controllable fake.
type Fetcher interface {
	FetchInventory(ctx context.Context) ([]api.Item, error)
	FetchDrones(ctx context.Context) ([]api.DroneRecord, error)
}

type fetchResult struct {
	items []api.Item
	err   error
}

// Coordinator applies live events and refetch results to the store.
// It is the store's only writer, so the UI never races a partially
// applied update.
type Coordinator struct {
	store   *store.Store
	fetcher Fetcher
	source  live.Source
	logger  *zap.Logger

	mu       sync.Mutex
	inFlight bool
	results  chan fetchResult
}

// New creates a Coordinator.
func New(st *store.Store, fetcher Fetcher, source live.Source, logger *zap.Logger) *Coordinator {
	return &Coordinator{
		store:   st,
		fetcher: fetcher,
		source:  source,
		logger:  logger,
		results: make(chan fetchResult, 1),
	}
}

// Store exposes the read side for the UI.
func (co *Coordinator) Store() *store.Store {
	return co.store
}

// Run drives the coordinator until ctx is cancelled. It performs an
// initial full sync, then consumes live events and refetch results.
func (co *Coordinator) Run(ctx context.Context) {
	go co.source.Run(ctx)

	co.syncDrones(ctx)
	co.TriggerRefetch(ctx)

	events := co.source.Events()
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			co.handleEvent(ctx, ev)
		case res := <-co.results:
			co.applyRefetch(res)
		case <-ctx.Done():
			return
		}
	}
}

// handleEvent routes one live event. Snapshot events replace state
// directly; notification events trigger a refetch; anything unknown is
// ignored.
func (co *Coordinator) handleEvent(ctx context.Context, ev live.Event) {
	switch ev.Type {
	case "inventory":
		var payload struct {
			Inventory []store.Item `json:"inventory"`
		}
		if err := json.Unmarshal(ev.Payload, &payload); err != nil {
			co.logger.Warn("bad inventory push", zap.Error(err))
			return
		}
		// Alerts are recomputed locally from the same items.
		co.store.ReplaceInventory(payload.Inventory)

	case "drones":
		var drones []store.DroneRecord
		if err := json.Unmarshal(ev.Payload, &drones); err != nil {
			co.logger.Warn("bad drones push", zap.Error(err))
			return
		}
		co.store.ReplaceDrones(drones)

	case "map":
		var snap store.MapSnapshot
		if err := json.Unmarshal(ev.Payload, &snap); err != nil {
			co.logger.Warn("bad map push", zap.Error(err))
			return
		}
		co.store.ReplaceMap(snap)

	case "inventory_update", "new_scan":
		co.TriggerRefetch(ctx)

	case "drone_offline":
		// The fleet snapshot follows in a separate "drones" push.

	case "scan_result", "pong":
		// Informational only.

	default:
		co.logger.Debug("unknown push type", zap.String("type", ev.Type))
	}
}

// TriggerRefetch starts a full inventory refetch unless one is already
// in flight. A trigger landing during an outstanding refetch is
// superseded by it: the outstanding fetch's result will already
// reflect the server state that caused the trigger.
func (co *Coordinator) TriggerRefetch(ctx context.Context) {
	co.mu.Lock()
	if co.inFlight {
		co.mu.Unlock()
		return
	}
	co.inFlight = true
	co.mu.Unlock()

	go func() {
		items, err := co.fetcher.FetchInventory(ctx)
		select {
		case co.results <- fetchResult{items: items, err: err}:
		case <-ctx.Done():
			co.mu.Lock()
			co.inFlight = false
			co.mu.Unlock()
		}
	}()
}

// applyRefetch applies one completed refetch to the store.
func (co *Coordinator) applyRefetch(res fetchResult) {
	co.mu.Lock()
	co.inFlight = false
	co.mu.Unlock()

	if res.err != nil {
		co.logger.Warn("inventory refetch failed", zap.Error(res.err))
		return
	}
	co.store.ReplaceInventory(toStoreItems(res.items))
}

// syncDrones pulls the drone list once at startup. Afterwards the
// "drones" push keeps it current.
func (co *Coordinator) syncDrones(ctx context.Context) {
	drones, err := co.fetcher.FetchDrones(ctx)
	if err != nil {
		co.logger.Warn("drone fetch failed", zap.Error(err))
		return
	}
	records := make([]store.DroneRecord, len(drones))
	for i, d := range drones {
		records[i] = store.DroneRecord(d)
	}
	co.store.ReplaceDrones(records)
}

func toStoreItems(items []api.Item) []store.Item {
	out := make([]store.Item, len(items))
	for i, it := range items {
		out[i] = store.Item{
			Barcode:     it.Barcode,
			Name:        it.Name,
			SKU:         it.SKU,
			Category:    it.Category,
			Location:    it.Location,
			Quantity:    it.Quantity,
			LastScanned: it.LastScanned,
		}
	}
	return out
}
