package model

import "time"

// Drone operational states.
const (
	DroneOffline  = "offline"
	DroneIdle     = "idle"
	DroneFlying   = "flying"
	DroneScanning = "scanning"
	DroneError    = "error"
)

// Drone represents one registered inventory drone.
type Drone struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name         string    `gorm:"uniqueIndex;size:50;not null" json:"name"`
	SerialNumber string    `gorm:"uniqueIndex;size:100" json:"serial_number"`
	OwnerID      int64     `gorm:"index;not null" json:"owner_id"`
	Model        string    `gorm:"size:100" json:"model"`
	Status       string    `gorm:"size:20;default:offline" json:"status"` // offline, idle, flying, scanning, error
	Active       bool      `gorm:"default:true" json:"active"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// DroneTelemetry is the latest telemetry sample, one row per drone.
type DroneTelemetry struct {
	DroneID        int64     `gorm:"primaryKey" json:"drone_id"`
	PositionX      float64   `gorm:"default:0" json:"position_x"`
	PositionY      float64   `gorm:"default:0" json:"position_y"`
	PositionZ      float64   `gorm:"default:0" json:"position_z"`
	VelocityX      float64   `gorm:"default:0" json:"velocity_x"`
	VelocityY      float64   `gorm:"default:0" json:"velocity_y"`
	VelocityZ      float64   `gorm:"default:0" json:"velocity_z"`
	BatteryLevel   float64   `json:"battery_level"`   // percent
	BatteryVoltage float64   `json:"battery_voltage"` // volts
	Heading        float64   `json:"heading"`         // yaw, degrees
	LastUpdate     time.Time `gorm:"autoUpdateTime" json:"last_update"`
}
