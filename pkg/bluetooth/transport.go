package bluetooth

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

// Peripheral is what a transport reports about one accessory.
type Peripheral struct {
	ID             string
	Name           string
	Address        string
	BatteryLevel   *int
	SignalStrength *int
}

// DisconnectHandler is invoked by a transport when the platform reports
// an unexpected disconnect.
type DisconnectHandler func(id string)

// Transport is the platform Bluetooth boundary. The real audio path
// (A2DP/AVRCP) is out of scope, so StartAudioStream and SetVolume are
// capability hooks a concrete transport fills in later.
type Transport interface {
	// Supported reports whether the platform has Bluetooth at all.
	Supported() bool

	// RequestDevice surfaces the platform device picker; at most one
	// device is returned per invocation.
	RequestDevice(ctx context.Context) (*Peripheral, error)

	// Connect establishes a link to the device.
	Connect(ctx context.Context, id string) error

	// Disconnect tears the link down.
	Disconnect(ctx context.Context, id string) error

	// StartAudioStream begins routing captured audio to the device.
	StartAudioStream(ctx context.Context, id string) error

	// SetVolume pushes a volume level (0-100) to the device.
	SetVolume(ctx context.Context, id string, volume int) error

	// SetDisconnectHandler registers the unexpected-disconnect callback.
	SetDisconnectHandler(fn DisconnectHandler)
}

// LogTransport is the stub transport: every audio-path call logs and
// succeeds. RequestDevice hands out a fixed roster of demo peripherals,
// one per call, so the rest of the system can be exercised without a
// Bluetooth stack.
type LogTransport struct {
	mu      sync.Mutex
	next    int
	handler DisconnectHandler
	roster  []Peripheral
}

// NewLogTransport returns a stub transport with the demo roster.
func NewLogTransport() *LogTransport {
	battery := func(v int) *int { return &v }
	signal := func(v int) *int { return &v }
	return &LogTransport{
		roster: []Peripheral{
			{ID: "demo-airpods", Name: "AirPods Pro", Address: "AA:BB:CC:DD:EE:01", BatteryLevel: battery(85), SignalStrength: signal(-45)},
			{ID: "demo-speaker", Name: "JBL Flip 5", Address: "AA:BB:CC:DD:EE:02", BatteryLevel: battery(70), SignalStrength: signal(-38)},
			{ID: "demo-headphones", Name: "Sony WH-1000XM4", Address: "AA:BB:CC:DD:EE:03", BatteryLevel: battery(92), SignalStrength: signal(-42)},
		},
	}
}

func (t *LogTransport) Supported() bool { return true }

func (t *LogTransport) RequestDevice(ctx context.Context) (*Peripheral, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.next >= len(t.roster) {
		return nil, ErrNoDeviceFound
	}
	p := t.roster[t.next]
	t.next++
	log.Info().Str("device", p.Name).Msg("Transport: device picked")
	return &p, nil
}

func (t *LogTransport) Connect(ctx context.Context, id string) error {
	log.Info().Str("id", id).Msg("Transport: connect")
	return nil
}

func (t *LogTransport) Disconnect(ctx context.Context, id string) error {
	log.Info().Str("id", id).Msg("Transport: disconnect")
	return nil
}

func (t *LogTransport) StartAudioStream(ctx context.Context, id string) error {
	// A real transport would negotiate the audio profile here.
	log.Info().Str("id", id).Msg("Transport: start audio stream")
	return nil
}

func (t *LogTransport) SetVolume(ctx context.Context, id string, volume int) error {
	log.Info().Str("id", id).Int("volume", volume).Msg("Transport: set volume")
	return nil
}

func (t *LogTransport) SetDisconnectHandler(fn DisconnectHandler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handler = fn
}

// ReportDisconnect simulates a platform-initiated disconnect.
func (t *LogTransport) ReportDisconnect(id string) {
	t.mu.Lock()
	fn := t.handler
	t.mu.Unlock()
	if fn != nil {
		fn(id)
	}
}

// UnsupportedTransport represents a platform without Bluetooth.
type UnsupportedTransport struct{}

func (UnsupportedTransport) Supported() bool { return false }

func (UnsupportedTransport) RequestDevice(ctx context.Context) (*Peripheral, error) {
	return nil, ErrUnsupported
}

func (UnsupportedTransport) Connect(ctx context.Context, id string) error    { return ErrUnsupported }
func (UnsupportedTransport) Disconnect(ctx context.Context, id string) error { return ErrUnsupported }
func (UnsupportedTransport) StartAudioStream(ctx context.Context, id string) error {
	return ErrUnsupported
}
func (UnsupportedTransport) SetVolume(ctx context.Context, id string, volume int) error {
	return ErrUnsupported
}
func (UnsupportedTransport) SetDisconnectHandler(fn DisconnectHandler) {}
