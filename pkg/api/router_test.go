package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"aircast/pkg/api/schema"
	"aircast/pkg/bluetooth"
	"aircast/pkg/session"
	"aircast/pkg/store"
)

type stubEngine struct {
	capturing bool
	startErr  error
}

func (s *stubEngine) StartCapture(ctx context.Context) error {
	if s.startErr != nil {
		return s.startErr
	}
	s.capturing = true
	return nil
}
func (s *stubEngine) StopCapture()        { s.capturing = false }
func (s *stubEngine) Capturing() bool     { return s.capturing }
func (s *stubEngine) Level() float64      { return 0 }
func (s *stubEngine) SetGain(float64)     {}
func (s *stubEngine) SourceLabel() string { return "System Audio" }

type testServer struct {
	router *Router
	store  store.Store
	engine *stubEngine
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	validator, err := schema.NewValidator()
	if err != nil {
		t.Fatalf("NewValidator: %v", err)
	}

	st := store.NewMemStore()
	registry := bluetooth.NewRegistry(bluetooth.NewLogTransport())
	engine := &stubEngine{}
	coordinator := session.New(engine, registry, st, session.LogNotifier{}, session.Options{})

	return &testServer{
		router: NewRouter(st, coordinator, registry, validator),
		store:  st,
		engine: engine,
	}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.Handler().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return v
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodGet, "/api/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := decode[map[string]any](t, w)
	if body["status"] != "ok" {
		t.Fatalf("status field = %v", body["status"])
	}
	if body["timestamp"] == nil {
		t.Fatal("timestamp missing")
	}
}

func TestCreateDevice_RoundTrip(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/devices", map[string]any{
		"name":       "Kitchen Speaker",
		"address":    "AA:BB:CC:DD:EE:10",
		"deviceType": "speaker",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("create status = %d: %s", w.Code, w.Body.String())
	}
	created := decode[store.Device](t, w)
	if created.ID == 0 || created.Volume != store.DefaultDeviceVolume {
		t.Fatalf("created = %+v", created)
	}

	w = s.do(t, http.MethodGet, "/api/devices", nil)
	list := decode[[]store.Device](t, w)
	if len(list) != 1 || list[0].Name != "Kitchen Speaker" {
		t.Fatalf("list = %+v", list)
	}
}

func TestCreateDevice_MissingNameRejected(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/devices", map[string]any{
		"address":    "AA:BB:CC:DD:EE:10",
		"deviceType": "speaker",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	body := decode[map[string]any](t, w)
	if body["error"] != "Invalid device data" {
		t.Fatalf("error = %v", body["error"])
	}
	details, ok := body["details"].([]any)
	if !ok || len(details) == 0 {
		t.Fatalf("details = %v", body["details"])
	}

	w = s.do(t, http.MethodGet, "/api/devices", nil)
	if list := decode[[]store.Device](t, w); len(list) != 0 {
		t.Fatalf("rejected create must not persist, list = %+v", list)
	}
}

func TestUpdateDevice_MergesPartial(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/devices", map[string]any{
		"name":       "Desk",
		"address":    "AA:BB:CC:DD:EE:11",
		"deviceType": "headphones",
	})
	created := decode[store.Device](t, w)

	w = s.do(t, http.MethodPut, "/api/devices/"+itoa(created.ID), map[string]any{"volume": 30})
	if w.Code != http.StatusOK {
		t.Fatalf("update status = %d", w.Code)
	}
	updated := decode[store.Device](t, w)
	if updated.Volume != 30 || updated.Name != "Desk" {
		t.Fatalf("updated = %+v", updated)
	}
}

func TestUpdateDevice_UnknownID(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodPut, "/api/devices/99", map[string]any{"volume": 30})
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d", w.Code)
	}
	body := decode[map[string]any](t, w)
	if body["error"] != "Device not found" {
		t.Fatalf("error = %v", body["error"])
	}
}

func TestDeleteDevice(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/devices", map[string]any{
		"name":       "Desk",
		"address":    "AA:BB:CC:DD:EE:12",
		"deviceType": "headphones",
	})
	created := decode[store.Device](t, w)

	w = s.do(t, http.MethodDelete, "/api/devices/"+itoa(created.ID), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete status = %d", w.Code)
	}
	if body := decode[map[string]any](t, w); body["success"] != true {
		t.Fatalf("body = %v", body)
	}

	w = s.do(t, http.MethodDelete, "/api/devices/"+itoa(created.ID), nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("second delete status = %d", w.Code)
	}

	w = s.do(t, http.MethodGet, "/api/devices", nil)
	if list := decode[[]store.Device](t, w); len(list) != 0 {
		t.Fatalf("list after delete = %+v", list)
	}
}

func TestSessions_DeactivateStampsEndTime(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/sessions", map[string]any{})
	if w.Code != http.StatusOK {
		t.Fatalf("create status = %d: %s", w.Code, w.Body.String())
	}
	created := decode[store.Session](t, w)
	if !created.IsActive || created.AudioQuality != store.QualityBalanced {
		t.Fatalf("created = %+v", created)
	}

	w = s.do(t, http.MethodPut, "/api/sessions/"+itoa(created.ID), map[string]any{"isActive": false})
	updated := decode[store.Session](t, w)
	if updated.IsActive {
		t.Fatal("session should be inactive")
	}
	if updated.EndTime == nil || updated.EndTime.Before(updated.StartTime) {
		t.Fatalf("endTime = %v", updated.EndTime)
	}
	if updated.AudioQuality != created.AudioQuality || updated.BufferSize != created.BufferSize {
		t.Fatalf("unrelated fields changed: %+v", updated)
	}

	w = s.do(t, http.MethodGet, "/api/sessions/active", nil)
	if active := decode[[]store.Session](t, w); len(active) != 0 {
		t.Fatalf("active = %+v", active)
	}
}

func TestCreateSession_BadQualityRejected(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodPost, "/api/sessions", map[string]any{"audioQuality": "ultra"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	body := decode[map[string]any](t, w)
	if body["error"] != "Invalid session data" {
		t.Fatalf("error = %v", body["error"])
	}
}

func TestSessionLists_EmptyIsArrayNotNull(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/devices", map[string]any{
		"name":       "Desk",
		"address":    "AA:BB:CC:DD:EE:14",
		"deviceType": "headphones",
	})
	created := decode[store.Device](t, w)

	// Array-iterating clients break on a literal null body.
	for _, path := range []string{
		"/api/devices/" + itoa(created.ID) + "/sessions",
		"/api/sessions/active",
		"/api/sessions",
	} {
		w := s.do(t, http.MethodGet, path, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("GET %s status = %d", path, w.Code)
		}
		if body := strings.TrimSpace(w.Body.String()); body != "[]" {
			t.Errorf("GET %s body = %q, want []", path, body)
		}
	}
}

func TestDeviceSessions_FiltersByDevice(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/devices", map[string]any{
		"name":       "Desk",
		"address":    "AA:BB:CC:DD:EE:13",
		"deviceType": "headphones",
	})
	created := decode[store.Device](t, w)

	s.do(t, http.MethodPost, "/api/sessions", map[string]any{"deviceId": created.ID})
	s.do(t, http.MethodPost, "/api/sessions", map[string]any{})

	w = s.do(t, http.MethodGet, "/api/devices/"+itoa(created.ID)+"/sessions", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	sessions := decode[[]store.Session](t, w)
	if len(sessions) != 1 || sessions[0].DeviceID == nil || *sessions[0].DeviceID != created.ID {
		t.Fatalf("sessions = %+v", sessions)
	}
}

func TestBluetoothScanAndConnect(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/bluetooth/scan", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("scan status = %d: %s", w.Code, w.Body.String())
	}
	found := decode[bluetooth.Device](t, w)
	if found.ID == "" {
		t.Fatalf("found = %+v", found)
	}

	w = s.do(t, http.MethodPost, "/api/bluetooth/devices/"+found.ID+"/connect", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("connect status = %d: %s", w.Code, w.Body.String())
	}

	w = s.do(t, http.MethodGet, "/api/bluetooth/devices", nil)
	state := decode[map[string]any](t, w)
	connected, _ := state["connected"].([]any)
	if len(connected) != 1 {
		t.Fatalf("connected = %v", state["connected"])
	}

	w = s.do(t, http.MethodPut, "/api/bluetooth/devices/"+found.ID+"/volume", map[string]any{"volume": 40})
	if w.Code != http.StatusOK {
		t.Fatalf("volume status = %d", w.Code)
	}

	w = s.do(t, http.MethodPost, "/api/bluetooth/devices/"+found.ID+"/disconnect", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("disconnect status = %d", w.Code)
	}
}

func TestBluetoothConnect_UnknownID(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodPost, "/api/bluetooth/devices/nope/connect", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestCaptureLifecycle(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/api/capture", nil)
	status := decode[session.Status](t, w)
	if status.Capturing || status.MasterVolume != 85 {
		t.Fatalf("idle status = %+v", status)
	}

	w = s.do(t, http.MethodPost, "/api/capture/start", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("start status = %d: %s", w.Code, w.Body.String())
	}
	status = decode[session.Status](t, w)
	if !status.Capturing {
		t.Fatalf("status = %+v", status)
	}

	w = s.do(t, http.MethodPut, "/api/capture/volume", map[string]any{"volume": 55})
	status = decode[session.Status](t, w)
	if status.MasterVolume != 55 {
		t.Fatalf("master volume = %d", status.MasterVolume)
	}

	w = s.do(t, http.MethodPost, "/api/capture/stop", nil)
	status = decode[session.Status](t, w)
	if status.Capturing {
		t.Fatalf("status after stop = %+v", status)
	}
}

func TestCaptureVolume_MissingBody(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodPut, "/api/capture/volume", map[string]any{})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
