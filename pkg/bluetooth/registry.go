package bluetooth

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Registry tracks discovered and connected accessories. A device id is
// a member of exactly one of the available/connected sets at any time;
// every move between them goes through a single transition helper, so
// transport-initiated disconnects and user-initiated ones cannot leave
// the two views inconsistent.
type Registry struct {
	transport Transport

	mu        sync.Mutex
	available map[string]*Device
	connected map[string]*Device
	scanning  bool

	subscribersMu sync.Mutex
	subscribers   []chan Event
}

// NewRegistry creates a registry over the given transport and wires the
// transport's disconnect callback into the registry's state machine.
func NewRegistry(transport Transport) *Registry {
	r := &Registry{
		transport: transport,
		available: make(map[string]*Device),
		connected: make(map[string]*Device),
	}
	transport.SetDisconnectHandler(r.handleTransportDisconnect)
	return r
}

// Supported reports whether the platform has Bluetooth capability.
func (r *Registry) Supported() bool {
	return r.transport.Supported()
}

// IsScanning reports whether a scan is in flight. The flag is owned
// here; callers treat it as read-only.
func (r *Registry) IsScanning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.scanning
}

// Scan surfaces the platform device picker and adds the picked device
// to the available set with the default volume.
func (r *Registry) Scan(ctx context.Context) (*Device, error) {
	if !r.transport.Supported() {
		return nil, ErrUnsupported
	}

	r.mu.Lock()
	if r.scanning {
		r.mu.Unlock()
		return nil, ErrScanInProgress
	}
	r.scanning = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.scanning = false
		r.mu.Unlock()
	}()

	p, err := r.transport.RequestDevice(ctx)
	if err != nil {
		return nil, err
	}

	d := &Device{
		ID:             p.ID,
		Name:           p.Name,
		Address:        p.Address,
		DeviceType:     DeviceTypeAudio,
		Volume:         DefaultVolume,
		BatteryLevel:   p.BatteryLevel,
		SignalStrength: p.SignalStrength,
	}
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.Name == "" {
		d.Name = DefaultName
	}
	if d.Address == "" {
		d.Address = d.ID
	}

	r.mu.Lock()
	if _, ok := r.connected[d.ID]; ok {
		// Already connected; the picker returned a known device.
		r.mu.Unlock()
		return r.snapshot(d), nil
	}
	r.available[d.ID] = d
	r.mu.Unlock()

	log.Info().Str("id", d.ID).Str("name", d.Name).Msg("Device discovered")
	r.publish(Event{Type: EventDeviceDiscovered, Device: r.snapshot(d), Timestamp: time.Now()})
	return r.snapshot(d), nil
}

// Connect moves a device from available to connected and starts the
// (stubbed) audio stream to it. The sets are not mutated if the
// transport call fails.
func (r *Registry) Connect(ctx context.Context, id string) error {
	r.mu.Lock()
	d, ok := r.available[id]
	r.mu.Unlock()
	if !ok {
		return ErrNotFound
	}

	if err := r.transport.Connect(ctx, id); err != nil {
		return fmt.Errorf("%w: %s", ErrConnectFailed, err)
	}

	r.moveToConnected(id)

	if err := r.transport.StartAudioStream(ctx, id); err != nil {
		log.Warn().Err(err).Str("id", id).Msg("Failed to start audio stream")
	}

	log.Info().Str("id", id).Str("name", d.Name).Msg("Device connected")
	r.publish(Event{Type: EventDeviceConnected, Device: r.snapshot(d), Timestamp: time.Now()})
	return nil
}

// Disconnect moves a device from connected back to available.
func (r *Registry) Disconnect(ctx context.Context, id string) error {
	r.mu.Lock()
	_, ok := r.connected[id]
	r.mu.Unlock()
	if !ok {
		return ErrNotFound
	}

	if err := r.transport.Disconnect(ctx, id); err != nil {
		return fmt.Errorf("failed to disconnect device: %w", err)
	}

	d := r.moveToAvailable(id)
	if d != nil {
		log.Info().Str("id", id).Str("name", d.Name).Msg("Device disconnected")
		r.publish(Event{Type: EventDeviceDisconnected, Device: r.snapshot(d), Timestamp: time.Now()})
	}
	return nil
}

// SetVolume updates a connected device's volume and pushes it to the
// transport. A device that is not connected is left untouched.
func (r *Registry) SetVolume(ctx context.Context, id string, volume int) error {
	r.mu.Lock()
	d, ok := r.connected[id]
	if !ok {
		r.mu.Unlock()
		return nil
	}
	d.Volume = volume
	r.mu.Unlock()

	if err := r.transport.SetVolume(ctx, id, volume); err != nil {
		return fmt.Errorf("failed to set device volume: %w", err)
	}

	r.publish(Event{Type: EventVolumeChanged, Device: r.snapshot(d), Timestamp: time.Now()})
	return nil
}

// Available returns a copy of the available set, sorted by name.
func (r *Registry) Available() []Device {
	r.mu.Lock()
	defer r.mu.Unlock()
	return sortedCopies(r.available)
}

// Connected returns a copy of the connected set, sorted by name.
func (r *Registry) Connected() []Device {
	r.mu.Lock()
	defer r.mu.Unlock()
	return sortedCopies(r.connected)
}

// Get returns a copy of the device from whichever set holds it.
func (r *Registry) Get(id string) (*Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d, ok := r.connected[id]; ok {
		c := *d
		return &c, nil
	}
	if d, ok := r.available[id]; ok {
		c := *d
		return &c, nil
	}
	return nil, ErrNotFound
}

// Subscribe returns a channel receiving registry events. Publishing is
// non-blocking; slow subscribers miss events.
func (r *Registry) Subscribe() chan Event {
	ch := make(chan Event, 16)
	r.subscribersMu.Lock()
	r.subscribers = append(r.subscribers, ch)
	r.subscribersMu.Unlock()
	return ch
}

// Unsubscribe removes a subscription and closes its channel.
func (r *Registry) Unsubscribe(ch chan Event) {
	r.subscribersMu.Lock()
	defer r.subscribersMu.Unlock()
	for i, sub := range r.subscribers {
		if sub == ch {
			r.subscribers = append(r.subscribers[:i], r.subscribers[i+1:]...)
			close(ch)
			return
		}
	}
}

// handleTransportDisconnect reacts to a platform-reported disconnect by
// running the same transition as an explicit Disconnect.
func (r *Registry) handleTransportDisconnect(id string) {
	d := r.moveToAvailable(id)
	if d == nil {
		return
	}
	log.Warn().Str("id", id).Str("name", d.Name).Msg("Device disconnected by platform")
	r.publish(Event{Type: EventDeviceDisconnected, Device: r.snapshot(d), Timestamp: time.Now()})
}

// moveToConnected is the single available->connected transition.
func (r *Registry) moveToConnected(id string) *Device {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.available[id]
	if !ok {
		return nil
	}
	delete(r.available, id)
	now := time.Now()
	d.IsConnected = true
	d.LastConnected = &now
	r.connected[id] = d
	return d
}

// moveToAvailable is the single connected->available transition.
func (r *Registry) moveToAvailable(id string) *Device {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.connected[id]
	if !ok {
		return nil
	}
	delete(r.connected, id)
	d.IsConnected = false
	r.available[id] = d
	return d
}

func (r *Registry) publish(evt Event) {
	r.subscribersMu.Lock()
	defer r.subscribersMu.Unlock()
	for _, ch := range r.subscribers {
		select {
		case ch <- evt:
		default:
		}
	}
}

// snapshot copies a device so subscribers and callers never see
// registry-internal pointers.
func (r *Registry) snapshot(d *Device) *Device {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *d
	return &c
}

func sortedCopies(m map[string]*Device) []Device {
	out := make([]Device, 0, len(m))
	for _, d := range m {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
