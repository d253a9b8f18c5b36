package bluetooth

import "time"

// DeviceType classifies an accessory for display purposes only.
type DeviceType string

const (
	DeviceTypeHeadphones DeviceType = "headphones"
	DeviceTypeSpeaker    DeviceType = "speaker"
	DeviceTypeAudio      DeviceType = "audio"
	DeviceTypeOther      DeviceType = "other"
)

// DefaultVolume is assigned to newly discovered devices.
const DefaultVolume = 75

// DefaultName is used when the platform reports no device name.
const DefaultName = "Unknown Device"

// Device is a live accessory record in the registry. Its ID is an
// opaque string from the transport and is unrelated to persisted
// record ids.
type Device struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Address        string     `json:"address"`
	DeviceType     DeviceType `json:"deviceType"`
	IsConnected    bool       `json:"isConnected"`
	Volume         int        `json:"volume"`
	BatteryLevel   *int       `json:"batteryLevel,omitempty"`
	SignalStrength *int       `json:"signalStrength,omitempty"`
	LastConnected  *time.Time `json:"lastConnected,omitempty"`
}

// EventType identifies a registry event.
type EventType string

const (
	EventDeviceDiscovered   EventType = "device_discovered"
	EventDeviceConnected    EventType = "device_connected"
	EventDeviceDisconnected EventType = "device_disconnected"
	EventVolumeChanged      EventType = "volume_changed"
)

// Event is published to subscribers on registry state changes.
type Event struct {
	Type      EventType `json:"type"`
	Device    *Device   `json:"device,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
