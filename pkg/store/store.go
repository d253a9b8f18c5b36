package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound indicates no record exists for the id.
	ErrNotFound = errors.New("record not found")
)

// Audio quality settings for a session.
const (
	QualityLowLatency  = "low_latency"
	QualityBalanced    = "balanced"
	QualityHighQuality = "high_quality"
)

// Defaults applied on record creation.
const (
	DefaultDeviceVolume      = 75
	DefaultSessionBufferSize = 256
)

// Device is a persisted accessory record. Its integer id is a separate
// identity space from the live registry's string ids; the bridge
// between them is the address.
type Device struct {
	ID             int64      `json:"id"`
	Name           string     `json:"name"`
	Address        string     `json:"address"`
	DeviceType     string     `json:"deviceType"`
	IsConnected    bool       `json:"isConnected"`
	Volume         int        `json:"volume"`
	BatteryLevel   *int       `json:"batteryLevel"`
	SignalStrength *int       `json:"signalStrength"`
	LastConnected  *time.Time `json:"lastConnected"`
}

// Session is a persisted capture-to-device streaming session.
type Session struct {
	ID           int64      `json:"id"`
	DeviceID     *int64     `json:"deviceId"`
	IsActive     bool       `json:"isActive"`
	AudioQuality string     `json:"audioQuality"`
	BufferSize   int        `json:"bufferSize"`
	Latency      *int       `json:"latency"`
	StartTime    time.Time  `json:"startTime"`
	EndTime      *time.Time `json:"endTime"`
}

// DeviceInsert is the creatable subset of Device. Id and lastConnected
// are owned by the store.
type DeviceInsert struct {
	Name           string `json:"name"`
	Address        string `json:"address"`
	DeviceType     string `json:"deviceType"`
	IsConnected    *bool  `json:"isConnected"`
	Volume         *int   `json:"volume"`
	BatteryLevel   *int   `json:"batteryLevel"`
	SignalStrength *int   `json:"signalStrength"`
}

// SessionInsert is the creatable subset of Session. Id and both
// timestamps are owned by the store.
type SessionInsert struct {
	DeviceID     *int64  `json:"deviceId"`
	IsActive     *bool   `json:"isActive"`
	AudioQuality *string `json:"audioQuality"`
	BufferSize   *int    `json:"bufferSize"`
	Latency      *int    `json:"latency"`
}

// DeviceUpdate is a partial update; nil fields are left unchanged.
// Setting IsConnected to true stamps lastConnected.
type DeviceUpdate struct {
	Name           *string `json:"name"`
	Address        *string `json:"address"`
	DeviceType     *string `json:"deviceType"`
	IsConnected    *bool   `json:"isConnected"`
	Volume         *int    `json:"volume"`
	BatteryLevel   *int    `json:"batteryLevel"`
	SignalStrength *int    `json:"signalStrength"`
}

// SessionUpdate is a partial update; nil fields are left unchanged.
// Setting IsActive to false on an active session stamps endTime.
type SessionUpdate struct {
	DeviceID     *int64  `json:"deviceId"`
	IsActive     *bool   `json:"isActive"`
	AudioQuality *string `json:"audioQuality"`
	BufferSize   *int    `json:"bufferSize"`
	Latency      *int    `json:"latency"`
}

// Store persists device and session metadata behind the CRUD API.
// It is not in the capture hot path.
type Store interface {
	GetAllDevices(ctx context.Context) ([]Device, error)
	GetDevice(ctx context.Context, id int64) (*Device, error)
	GetDeviceByAddress(ctx context.Context, address string) (*Device, error)
	CreateDevice(ctx context.Context, insert DeviceInsert) (*Device, error)
	UpdateDevice(ctx context.Context, id int64, update DeviceUpdate) (*Device, error)
	DeleteDevice(ctx context.Context, id int64) error

	GetAllSessions(ctx context.Context) ([]Session, error)
	GetSession(ctx context.Context, id int64) (*Session, error)
	CreateSession(ctx context.Context, insert SessionInsert) (*Session, error)
	UpdateSession(ctx context.Context, id int64, update SessionUpdate) (*Session, error)
	GetDeviceSessions(ctx context.Context, deviceID int64) ([]Session, error)
	GetActiveSessions(ctx context.Context) ([]Session, error)

	Close() error
}
