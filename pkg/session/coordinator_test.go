package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"aircast/pkg/bluetooth"
	"aircast/pkg/store"
)

type fakeEngine struct {
	mu        sync.Mutex
	capturing bool
	gain      float64
	startErr  error
}

func (f *fakeEngine) StartCapture(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return f.startErr
	}
	f.capturing = true
	return nil
}

func (f *fakeEngine) StopCapture() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.capturing = false
}

func (f *fakeEngine) Capturing() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.capturing
}

func (f *fakeEngine) Level() float64 { return 0 }

func (f *fakeEngine) SetGain(v float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gain = v
}

func (f *fakeEngine) SourceLabel() string { return "System Audio" }

type recordingNotifier struct {
	mu    sync.Mutex
	notes []Notification
}

func (r *recordingNotifier) Notify(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, n)
}

func (r *recordingNotifier) severities() []Severity {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Severity, len(r.notes))
	for i, n := range r.notes {
		out[i] = n.Severity
	}
	return out
}

func newTestCoordinator(t *testing.T, engine *fakeEngine) (*Coordinator, *bluetooth.Registry, store.Store, *recordingNotifier) {
	t.Helper()
	registry := bluetooth.NewRegistry(bluetooth.NewLogTransport())
	st := store.NewMemStore()
	notifier := &recordingNotifier{}
	c := New(engine, registry, st, notifier, Options{})
	return c, registry, st, notifier
}

func TestStartCapture_PersistsSession(t *testing.T) {
	engine := &fakeEngine{}
	c, _, st, _ := newTestCoordinator(t, engine)

	ctx := context.Background()
	if err := c.StartCapture(ctx); err != nil {
		t.Fatalf("StartCapture: %v", err)
	}
	if !engine.Capturing() {
		t.Fatal("engine should be capturing")
	}

	active, err := st.GetActiveSessions(ctx)
	if err != nil {
		t.Fatalf("GetActiveSessions: %v", err)
	}
	if len(active) != 1 {
		t.Fatalf("expected 1 active session, got %d", len(active))
	}
	if active[0].AudioQuality != store.QualityBalanced {
		t.Fatalf("audioQuality = %q", active[0].AudioQuality)
	}
	if active[0].BufferSize != store.DefaultSessionBufferSize {
		t.Fatalf("bufferSize = %d", active[0].BufferSize)
	}
}

func TestStopCapture_ClosesSession(t *testing.T) {
	engine := &fakeEngine{}
	c, _, st, _ := newTestCoordinator(t, engine)

	ctx := context.Background()
	if err := c.StartCapture(ctx); err != nil {
		t.Fatalf("StartCapture: %v", err)
	}
	c.StopCapture(ctx)

	if engine.Capturing() {
		t.Fatal("engine should be stopped")
	}
	active, err := st.GetActiveSessions(ctx)
	if err != nil {
		t.Fatalf("GetActiveSessions: %v", err)
	}
	if len(active) != 0 {
		t.Fatalf("expected no active sessions, got %d", len(active))
	}

	all, err := st.GetAllSessions(ctx)
	if err != nil {
		t.Fatalf("GetAllSessions: %v", err)
	}
	if len(all) != 1 || all[0].EndTime == nil {
		t.Fatal("stopped session should carry an end time")
	}
}

func TestStopCapture_WithoutStartIsNoop(t *testing.T) {
	engine := &fakeEngine{}
	c, _, st, notifier := newTestCoordinator(t, engine)

	ctx := context.Background()
	c.StopCapture(ctx)

	all, err := st.GetAllSessions(ctx)
	if err != nil {
		t.Fatalf("GetAllSessions: %v", err)
	}
	if len(all) != 0 {
		t.Fatalf("expected no sessions, got %d", len(all))
	}
	if len(notifier.severities()) != 0 {
		t.Fatal("no notifications expected for a no-op stop")
	}
}

func TestStartCapture_EngineFailureNotifies(t *testing.T) {
	engine := &fakeEngine{startErr: errors.New("no capture source")}
	c, _, st, notifier := newTestCoordinator(t, engine)

	ctx := context.Background()
	if err := c.StartCapture(ctx); err == nil {
		t.Fatal("expected error")
	}

	all, err := st.GetAllSessions(ctx)
	if err != nil {
		t.Fatalf("GetAllSessions: %v", err)
	}
	if len(all) != 0 {
		t.Fatal("failed start must not persist a session")
	}
	sevs := notifier.severities()
	if len(sevs) != 1 || sevs[0] != SeverityError {
		t.Fatalf("expected a single error notification, got %v", sevs)
	}
}

func TestSetMasterVolume_DrivesGain(t *testing.T) {
	engine := &fakeEngine{}
	c, _, _, _ := newTestCoordinator(t, engine)

	if got := c.MasterVolume(); got != 85 {
		t.Fatalf("default MasterVolume = %d, want 85", got)
	}
	engine.mu.Lock()
	initial := engine.gain
	engine.mu.Unlock()
	if initial != 0.85 {
		t.Fatalf("initial gain = %v, want 0.85", initial)
	}

	c.SetMasterVolume(50)
	if got := c.MasterVolume(); got != 50 {
		t.Fatalf("MasterVolume = %d", got)
	}
	engine.mu.Lock()
	gain := engine.gain
	engine.mu.Unlock()
	if gain != 0.5 {
		t.Fatalf("gain = %v, want 0.5", gain)
	}

	c.SetMasterVolume(150)
	if got := c.MasterVolume(); got != 100 {
		t.Fatalf("MasterVolume after clamp = %d", got)
	}
	c.SetMasterVolume(-5)
	if got := c.MasterVolume(); got != 0 {
		t.Fatalf("MasterVolume after clamp = %d", got)
	}
}

func TestConnect_PersistsDeviceByAddress(t *testing.T) {
	engine := &fakeEngine{}
	c, registry, st, _ := newTestCoordinator(t, engine)
	c.Start()
	defer c.Close()

	ctx := context.Background()
	d, err := c.Scan(ctx)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if err := c.ConnectDevice(ctx, d.ID); err != nil {
		t.Fatalf("ConnectDevice: %v", err)
	}

	persisted := waitForDevice(t, st, d.Address)
	if !persisted.IsConnected {
		t.Fatal("persisted device should be connected")
	}
	if persisted.LastConnected == nil {
		t.Fatal("lastConnected should be stamped")
	}

	if err := c.DisconnectDevice(ctx, d.ID); err != nil {
		t.Fatalf("DisconnectDevice: %v", err)
	}
	waitFor(t, func() bool {
		got, err := st.GetDeviceByAddress(ctx, d.Address)
		return err == nil && !got.IsConnected
	})

	if len(registry.Connected()) != 0 {
		t.Fatal("registry should have no connected devices")
	}
}

func TestVolumeChange_MirroredToStore(t *testing.T) {
	engine := &fakeEngine{}
	c, _, st, _ := newTestCoordinator(t, engine)
	c.Start()
	defer c.Close()

	ctx := context.Background()
	d, err := c.Scan(ctx)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if err := c.ConnectDevice(ctx, d.ID); err != nil {
		t.Fatalf("ConnectDevice: %v", err)
	}
	waitForDevice(t, st, d.Address)

	if err := c.SetDeviceVolume(ctx, d.ID, 40); err != nil {
		t.Fatalf("SetDeviceVolume: %v", err)
	}
	waitFor(t, func() bool {
		got, err := st.GetDeviceByAddress(ctx, d.Address)
		return err == nil && got.Volume == 40
	})
}

func TestStatus_ReflectsCapture(t *testing.T) {
	engine := &fakeEngine{}
	c, _, _, _ := newTestCoordinator(t, engine)

	s := c.Status()
	if s.Capturing || s.Source != "" {
		t.Fatalf("idle status = %+v", s)
	}
	if s.MasterVolume != 85 {
		t.Fatalf("default master volume = %d", s.MasterVolume)
	}

	ctx := context.Background()
	if err := c.StartCapture(ctx); err != nil {
		t.Fatalf("StartCapture: %v", err)
	}
	s = c.Status()
	if !s.Capturing || s.Source != "System Audio" {
		t.Fatalf("capturing status = %+v", s)
	}
	if s.SessionID == 0 {
		t.Fatal("status should carry the session id")
	}
}

func waitForDevice(t *testing.T, st store.Store, address string) *store.Device {
	t.Helper()
	var got *store.Device
	waitFor(t, func() bool {
		d, err := st.GetDeviceByAddress(context.Background(), address)
		if err != nil {
			return false
		}
		got = d
		return true
	})
	return got
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}
