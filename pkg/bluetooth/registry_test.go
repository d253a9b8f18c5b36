package bluetooth

import (
	"context"
	"errors"
	"testing"
)

func scanOne(t *testing.T, r *Registry) *Device {
	t.Helper()
	d, err := r.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	return d
}

func TestScan_AddsAvailableWithDefaults(t *testing.T) {
	r := NewRegistry(NewLogTransport())

	d := scanOne(t, r)
	if d.Volume != DefaultVolume {
		t.Errorf("volume = %d, want %d", d.Volume, DefaultVolume)
	}
	if d.IsConnected {
		t.Error("scanned device must not be connected")
	}
	if len(r.Available()) != 1 {
		t.Errorf("available = %d, want 1", len(r.Available()))
	}
	if r.IsScanning() {
		t.Error("scanning flag must be cleared after scan")
	}
}

func TestScan_Unsupported(t *testing.T) {
	r := NewRegistry(UnsupportedTransport{})
	if _, err := r.Scan(context.Background()); !errors.Is(err, ErrUnsupported) {
		t.Errorf("want ErrUnsupported, got %v", err)
	}
}

func TestScan_Exhausted(t *testing.T) {
	r := NewRegistry(NewLogTransport())
	for i := 0; i < 3; i++ {
		scanOne(t, r)
	}
	if _, err := r.Scan(context.Background()); !errors.Is(err, ErrNoDeviceFound) {
		t.Errorf("want ErrNoDeviceFound, got %v", err)
	}
}

func TestConnect_MovesExactlyOnce(t *testing.T) {
	r := NewRegistry(NewLogTransport())
	d := scanOne(t, r)

	if err := r.Connect(context.Background(), d.ID); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	for _, a := range r.Available() {
		if a.ID == d.ID {
			t.Error("connected device still in available set")
		}
	}
	connected := r.Connected()
	if len(connected) != 1 || connected[0].ID != d.ID {
		t.Fatalf("connected set = %v", connected)
	}
	if !connected[0].IsConnected {
		t.Error("isConnected not set")
	}
	if connected[0].LastConnected == nil {
		t.Error("lastConnected not stamped")
	}

	// Connecting again must fail: the id left the available set.
	if err := r.Connect(context.Background(), d.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second connect: want ErrNotFound, got %v", err)
	}
}

func TestConnect_UnknownID(t *testing.T) {
	r := NewRegistry(NewLogTransport())
	if err := r.Connect(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("want ErrNotFound, got %v", err)
	}
}

// failingTransport wraps LogTransport but refuses connections.
type failingTransport struct {
	*LogTransport
}

func (f *failingTransport) Connect(ctx context.Context, id string) error {
	return errors.New("link failure")
}

func TestConnect_TransportFailureMutatesNothing(t *testing.T) {
	r := NewRegistry(&failingTransport{NewLogTransport()})
	d := scanOne(t, r)

	err := r.Connect(context.Background(), d.ID)
	if !errors.Is(err, ErrConnectFailed) {
		t.Fatalf("want ErrConnectFailed, got %v", err)
	}
	if len(r.Available()) != 1 {
		t.Error("failed connect removed the device from available")
	}
	if len(r.Connected()) != 0 {
		t.Error("failed connect added the device to connected")
	}
}

func TestDisconnect_ReturnsToAvailable(t *testing.T) {
	r := NewRegistry(NewLogTransport())
	d := scanOne(t, r)
	if err := r.Connect(context.Background(), d.ID); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	if err := r.Disconnect(context.Background(), d.ID); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}

	if len(r.Connected()) != 0 {
		t.Error("device still in connected set")
	}
	available := r.Available()
	if len(available) != 1 || available[0].ID != d.ID {
		t.Fatalf("available set = %v", available)
	}
	if available[0].IsConnected {
		t.Error("isConnected still set after disconnect")
	}
}

func TestDisconnect_NotConnected(t *testing.T) {
	r := NewRegistry(NewLogTransport())
	d := scanOne(t, r)

	if err := r.Disconnect(context.Background(), d.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("want ErrNotFound, got %v", err)
	}
	if len(r.Available()) != 1 {
		t.Error("failed disconnect mutated the available set")
	}
}

func TestSetVolume_OnlyTargetChanges(t *testing.T) {
	r := NewRegistry(NewLogTransport())
	a := scanOne(t, r)
	b := scanOne(t, r)
	for _, d := range []*Device{a, b} {
		if err := r.Connect(context.Background(), d.ID); err != nil {
			t.Fatalf("Connect: %v", err)
		}
	}

	if err := r.SetVolume(context.Background(), a.ID, 30); err != nil {
		t.Fatalf("SetVolume: %v", err)
	}

	for _, d := range r.Connected() {
		switch d.ID {
		case a.ID:
			if d.Volume != 30 {
				t.Errorf("target volume = %d, want 30", d.Volume)
			}
		case b.ID:
			if d.Volume != DefaultVolume {
				t.Errorf("other device volume = %d, want %d", d.Volume, DefaultVolume)
			}
		}
	}
}

func TestSetVolume_NotConnectedIsNoop(t *testing.T) {
	r := NewRegistry(NewLogTransport())
	d := scanOne(t, r)

	if err := r.SetVolume(context.Background(), d.ID, 10); err != nil {
		t.Fatalf("SetVolume: %v", err)
	}
	if got := r.Available()[0].Volume; got != DefaultVolume {
		t.Errorf("volume = %d, want untouched %d", got, DefaultVolume)
	}
}

func TestTransportDisconnect_ReconcilesSets(t *testing.T) {
	transport := NewLogTransport()
	r := NewRegistry(transport)
	d := scanOne(t, r)
	if err := r.Connect(context.Background(), d.ID); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	transport.ReportDisconnect(d.ID)

	if len(r.Connected()) != 0 {
		t.Error("platform disconnect left device in connected set")
	}
	available := r.Available()
	if len(available) != 1 || available[0].ID != d.ID || available[0].IsConnected {
		t.Fatalf("platform disconnect did not return device to available: %v", available)
	}
}

func TestSubscribe_ReceivesLifecycleEvents(t *testing.T) {
	r := NewRegistry(NewLogTransport())
	ch := r.Subscribe()
	defer r.Unsubscribe(ch)

	d := scanOne(t, r)
	if err := r.Connect(context.Background(), d.ID); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := r.Disconnect(context.Background(), d.ID); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}

	want := []EventType{EventDeviceDiscovered, EventDeviceConnected, EventDeviceDisconnected}
	for _, w := range want {
		evt := <-ch
		if evt.Type != w {
			t.Errorf("event = %s, want %s", evt.Type, w)
		}
		if evt.Device == nil {
			t.Error("event without device")
		}
	}
}
