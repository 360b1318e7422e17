package fleet

import (
	"context"
	"fmt"
	"time"

	"github.com/inair/warehouse/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Broadcaster pushes a named event to all connected dashboard clients.
type Broadcaster interface {
	BroadcastEvent(event string, payload interface{})
}

// Record is the read-only drone mirror shipped to clients.
type Record struct {
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

// TelemetrySample is one telemetry push from a drone.
type TelemetrySample struct {
	PositionX      float64 `json:"position_x"`
	PositionY      float64 `json:"position_y"`
	PositionZ      float64 `json:"position_z"`
	VelocityX      float64 `json:"velocity_x"`
	VelocityY      float64 `json:"velocity_y"`
	VelocityZ      float64 `json:"velocity_z"`
	BatteryLevel   float64 `json:"battery_level"`
	BatteryVoltage float64 `json:"battery_voltage"`
	Heading        float64 `json:"heading"`
	Status         string  `json:"status"`
}

// Service owns the drone fleet state: telemetry ingest, status
// transitions, and the stale-telemetry offline sweep.
type Service struct {
	db     *gorm.DB
	hub    Broadcaster
	logger *zap.Logger
}

// New creates a fleet Service.
func New(db *gorm.DB, hub Broadcaster, logger *zap.Logger) *Service {
	return &Service{db: db, hub: hub, logger: logger}
}

// UpdateTelemetry upserts the drone's telemetry row, applies the
// reported status, and broadcasts the refreshed fleet snapshot.
func (s *Service) UpdateTelemetry(ctx context.Context, droneID int64, t TelemetrySample) error {
	row := model.DroneTelemetry{
		DroneID:        droneID,
		PositionX:      t.PositionX,
		PositionY:      t.PositionY,
		PositionZ:      t.PositionZ,
		VelocityX:      t.VelocityX,
		VelocityY:      t.VelocityY,
		VelocityZ:      t.VelocityZ,
		BatteryLevel:   t.BatteryLevel,
		BatteryVoltage: t.BatteryVoltage,
		Heading:        t.Heading,
		LastUpdate:     time.Now(),
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "drone_id"}},
		UpdateAll: true,
	}).Create(&row).Error
	if err != nil {
		return err
	}

	status := t.Status
	if !validStatus(status) {
		status = model.DroneFlying
	}
	if err := s.SetStatus(ctx, droneID, status); err != nil {
		return err
	}

	s.BroadcastSnapshot(ctx)
	return nil
}

// SetStatus updates a drone's operational state. Unknown states are
// rejected.
func (s *Service) SetStatus(ctx context.Context, droneID int64, status string) error {
	if !validStatus(status) {
		return fmt.Errorf("fleet: invalid status %q", status)
	}
	return s.db.WithContext(ctx).Model(&model.Drone{}).
		Where("id = ?", droneID).
		Update("status", status).Error
}

// List returns all drones joined with their latest telemetry.
func (s *Service) List(ctx context.Context) ([]Record, error) {
	var records []Record
	err := s.db.WithContext(ctx).
		Table("drones").
		Select("drones.id, drones.name, drones.model, drones.status, "+
			"COALESCE(drone_telemetries.position_x, 0) AS position_x, "+
			"COALESCE(drone_telemetries.position_y, 0) AS position_y, "+
			"COALESCE(drone_telemetries.position_z, 0) AS position_z, "+
			"COALESCE(drone_telemetries.battery_level, 0) AS battery, "+
			"COALESCE(drone_telemetries.heading, 0) AS heading, "+
			"drone_telemetries.last_update AS last_seen").
		Joins("LEFT JOIN drone_telemetries ON drone_telemetries.drone_id = drones.id").
		Where("drones.active = ?", true).
		Order("drones.id").
		Scan(&records).Error
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []Record{}
	}
	return records, nil
}

// Get returns one drone record, or gorm.ErrRecordNotFound.
func (s *Service) Get(ctx context.Context, droneID int64) (*Record, error) {
	records, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range records {
		if records[i].ID == droneID {
			return &records[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

// MarkStaleOffline flips drones whose telemetry is older than maxAge to
// offline. Called periodically by the scheduler. Returns how many
// drones changed state.
func (s *Service) MarkStaleOffline(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := time.Now().Add(-maxAge)
	res := s.db.WithContext(ctx).Model(&model.Drone{}).
		Where("status <> ?", model.DroneOffline).
		Where("id IN (?)", s.db.Model(&model.DroneTelemetry{}).
			Select("drone_id").
			Where("last_update < ?", cutoff)).
		Update("status", model.DroneOffline)
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected > 0 {
		s.logger.Info("stale drones marked offline", zap.Int64("count", res.RowsAffected))
		s.BroadcastSnapshot(ctx)
	}
	return res.RowsAffected, nil
}

// MarkOffline flips one drone offline (used on WS disconnect) and
// notifies the dashboard.
func (s *Service) MarkOffline(ctx context.Context, droneID int64) {
	if err := s.SetStatus(ctx, droneID, model.DroneOffline); err != nil {
		s.logger.Warn("mark offline failed", zap.Int64("drone_id", droneID), zap.Error(err))
		return
	}
	s.hub.BroadcastEvent("drone_offline", map[string]interface{}{"drone_id": droneID})
	s.BroadcastSnapshot(ctx)
}

// BroadcastSnapshot ships the full drone list to the dashboard.
func (s *Service) BroadcastSnapshot(ctx context.Context) {
	records, err := s.List(ctx)
	if err != nil {
		s.logger.Error("drone snapshot failed", zap.Error(err))
		return
	}
	s.hub.BroadcastEvent("drones", records)
}

func validStatus(status string) bool {
	switch status {
	case model.DroneOffline, model.DroneIdle, model.DroneFlying, model.DroneScanning, model.DroneError:
		return true
	}
	return false
}
