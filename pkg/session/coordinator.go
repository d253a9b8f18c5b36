// Package session glues the capture engine, the device registry and the
// persistence store together: it translates user intents into engine and
// registry calls, surfaces failures as notifications, and keeps the
// persisted device/session records consistent with live state.
package session

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"

	"aircast/pkg/bluetooth"
	"aircast/pkg/store"
)

// CaptureEngine is the coordinator's view of the capture side.
// *audio.Engine satisfies it.
type CaptureEngine interface {
	StartCapture(ctx context.Context) error
	StopCapture()
	Capturing() bool
	Level() float64
	SetGain(v float64)
	SourceLabel() string
}

// defaultMasterVolume is the initial master output volume.
const defaultMasterVolume = 85

// Options configure the metadata recorded for capture sessions.
type Options struct {
	AudioQuality string
	BufferSize   int
}

// Status is a snapshot of the capture side for the control surface.
type Status struct {
	Capturing    bool    `json:"capturing"`
	Level        float64 `json:"level"`
	MasterVolume int     `json:"masterVolume"`
	Source       string  `json:"source,omitempty"`
	SessionID    int64   `json:"sessionId,omitempty"`
}

// Coordinator owns master volume and the link between the live capture
// session and its persisted record. All fallible calls are wrapped; a
// failure produces a notification and leaves prior state untouched.
type Coordinator struct {
	engine   CaptureEngine
	registry *bluetooth.Registry
	store    store.Store
	notifier Notifier
	opts     Options

	mu           sync.Mutex
	masterVolume int
	sessionID    int64

	watchStop   func()
	watchDone   chan struct{}
	watchEvents chan bluetooth.Event
}

// New creates a coordinator. Call Start to begin reconciling registry
// events into the store.
func New(engine CaptureEngine, registry *bluetooth.Registry, st store.Store, notifier Notifier, opts Options) *Coordinator {
	if notifier == nil {
		notifier = LogNotifier{}
	}
	if opts.AudioQuality == "" {
		opts.AudioQuality = store.QualityBalanced
	}
	if opts.BufferSize == 0 {
		opts.BufferSize = store.DefaultSessionBufferSize
	}
	c := &Coordinator{
		engine:   engine,
		registry: registry,
		store:    st,
		notifier: notifier,
		opts:     opts,
	}
	c.SetMasterVolume(defaultMasterVolume)
	return c
}

// Start subscribes to registry events and mirrors them into persisted
// device records. Platform-initiated disconnects flow through the same
// path as explicit ones.
func (c *Coordinator) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	c.watchStop = cancel
	c.watchDone = make(chan struct{})
	c.watchEvents = c.registry.Subscribe()
	go c.watch(ctx)
}

// Close stops the event watcher and any active capture.
func (c *Coordinator) Close() {
	if c.watchStop != nil {
		c.watchStop()
		<-c.watchDone
		c.registry.Unsubscribe(c.watchEvents)
	}
	c.StopCapture(context.Background())
}

// StartCapture starts the engine and opens a persisted session record.
func (c *Coordinator) StartCapture(ctx context.Context) error {
	if err := c.engine.StartCapture(ctx); err != nil {
		c.notifier.Notify(Notification{
			Severity: SeverityError,
			Title:    "Capture failed",
			Message:  err.Error(),
		})
		return err
	}

	sess, err := c.store.CreateSession(ctx, store.SessionInsert{
		AudioQuality: &c.opts.AudioQuality,
		BufferSize:   &c.opts.BufferSize,
	})
	if err != nil {
		// Capture keeps running; only the metadata record is missing.
		log.Warn().Err(err).Msg("Failed to persist capture session")
	} else {
		c.mu.Lock()
		c.sessionID = sess.ID
		c.mu.Unlock()
	}

	c.notifier.Notify(Notification{
		Severity: SeverityInfo,
		Title:    "Capture started",
		Message:  "Capturing " + c.engine.SourceLabel() + " audio",
	})
	return nil
}

// StopCapture stops the engine and closes the persisted session.
// Safe to call when not capturing.
func (c *Coordinator) StopCapture(ctx context.Context) {
	wasCapturing := c.engine.Capturing()
	c.engine.StopCapture()

	c.mu.Lock()
	sessionID := c.sessionID
	c.sessionID = 0
	c.mu.Unlock()

	if sessionID != 0 {
		inactive := false
		if _, err := c.store.UpdateSession(ctx, sessionID, store.SessionUpdate{IsActive: &inactive}); err != nil {
			log.Warn().Err(err).Int64("session", sessionID).Msg("Failed to close capture session")
		}
	}

	if wasCapturing {
		c.notifier.Notify(Notification{
			Severity: SeverityInfo,
			Title:    "Capture stopped",
			Message:  "Audio capture has been stopped",
		})
	}
}

// Scan surfaces the device picker and reports the outcome.
func (c *Coordinator) Scan(ctx context.Context) (*bluetooth.Device, error) {
	d, err := c.registry.Scan(ctx)
	if err != nil {
		c.notifier.Notify(Notification{
			Severity: SeverityError,
			Title:    "Scan failed",
			Message:  err.Error(),
		})
		return nil, err
	}
	c.notifier.Notify(Notification{
		Severity: SeverityInfo,
		Title:    "Device found",
		Message:  d.Name + " is ready to connect",
	})
	return d, nil
}

// ConnectDevice connects a discovered device.
func (c *Coordinator) ConnectDevice(ctx context.Context, id string) error {
	if err := c.registry.Connect(ctx, id); err != nil {
		c.notifier.Notify(Notification{
			Severity: SeverityError,
			Title:    "Connection failed",
			Message:  err.Error(),
		})
		return err
	}
	return nil
}

// DisconnectDevice disconnects a connected device.
func (c *Coordinator) DisconnectDevice(ctx context.Context, id string) error {
	if err := c.registry.Disconnect(ctx, id); err != nil {
		c.notifier.Notify(Notification{
			Severity: SeverityError,
			Title:    "Disconnect failed",
			Message:  err.Error(),
		})
		return err
	}
	return nil
}

// SetDeviceVolume clamps the volume to [0,100] and routes it to the
// registry.
func (c *Coordinator) SetDeviceVolume(ctx context.Context, id string, volume int) error {
	if err := c.registry.SetVolume(ctx, id, clampVolume(volume)); err != nil {
		c.notifier.Notify(Notification{
			Severity: SeverityError,
			Title:    "Volume change failed",
			Message:  err.Error(),
		})
		return err
	}
	return nil
}

// SetMasterVolume sets the master volume (0-100) and drives the
// engine's gain stage with it.
func (c *Coordinator) SetMasterVolume(volume int) {
	volume = clampVolume(volume)
	c.mu.Lock()
	c.masterVolume = volume
	c.mu.Unlock()
	c.engine.SetGain(float64(volume) / 100)
}

// MasterVolume returns the current master volume.
func (c *Coordinator) MasterVolume() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.masterVolume
}

// Status snapshots the capture side.
func (c *Coordinator) Status() Status {
	c.mu.Lock()
	sessionID := c.sessionID
	masterVolume := c.masterVolume
	c.mu.Unlock()

	s := Status{
		Capturing:    c.engine.Capturing(),
		Level:        c.engine.Level(),
		MasterVolume: masterVolume,
		SessionID:    sessionID,
	}
	if s.Capturing {
		s.Source = c.engine.SourceLabel()
	}
	return s
}

func (c *Coordinator) watch(ctx context.Context) {
	defer close(c.watchDone)
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-c.watchEvents:
			if !ok {
				return
			}
			c.reconcile(ctx, evt)
		}
	}
}

// reconcile mirrors a registry event into the persisted device record,
// bridging the live string-id space to the integer-id space by address.
func (c *Coordinator) reconcile(ctx context.Context, evt bluetooth.Event) {
	if evt.Device == nil {
		return
	}
	d := evt.Device

	switch evt.Type {
	case bluetooth.EventDeviceConnected:
		c.upsertDevice(ctx, d, true)
	case bluetooth.EventDeviceDisconnected:
		c.upsertDevice(ctx, d, false)
	case bluetooth.EventVolumeChanged:
		persisted, err := c.store.GetDeviceByAddress(ctx, d.Address)
		if err != nil {
			return
		}
		if _, err := c.store.UpdateDevice(ctx, persisted.ID, store.DeviceUpdate{Volume: &d.Volume}); err != nil {
			log.Warn().Err(err).Str("address", d.Address).Msg("Failed to persist device volume")
		}
	}
}

func (c *Coordinator) upsertDevice(ctx context.Context, d *bluetooth.Device, connected bool) {
	persisted, err := c.store.GetDeviceByAddress(ctx, d.Address)
	if errors.Is(err, store.ErrNotFound) {
		insert := store.DeviceInsert{
			Name:           d.Name,
			Address:        d.Address,
			DeviceType:     string(d.DeviceType),
			IsConnected:    &connected,
			Volume:         &d.Volume,
			BatteryLevel:   d.BatteryLevel,
			SignalStrength: d.SignalStrength,
		}
		if _, err := c.store.CreateDevice(ctx, insert); err != nil {
			log.Warn().Err(err).Str("address", d.Address).Msg("Failed to persist device")
		}
		return
	}
	if err != nil {
		log.Warn().Err(err).Str("address", d.Address).Msg("Failed to look up persisted device")
		return
	}

	update := store.DeviceUpdate{
		IsConnected:    &connected,
		Volume:         &d.Volume,
		BatteryLevel:   d.BatteryLevel,
		SignalStrength: d.SignalStrength,
	}
	if _, err := c.store.UpdateDevice(ctx, persisted.ID, update); err != nil {
		log.Warn().Err(err).Str("address", d.Address).Msg("Failed to update persisted device")
	}
}

func clampVolume(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
