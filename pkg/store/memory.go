package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemStore keeps records in id-keyed maps with per-kind auto-increment
// counters. Process lifetime only; there is no durability.
type MemStore struct {
	mu             sync.RWMutex
	devices        map[int64]*Device
	sessions       map[int64]*Session
	deviceCounter  int64
	sessionCounter int64
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		devices:  make(map[int64]*Device),
		sessions: make(map[int64]*Session),
	}
}

func (s *MemStore) GetAllDevices(ctx context.Context) ([]Device, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Device, 0, len(s.devices))
	for _, d := range s.devices {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemStore) GetDevice(ctx context.Context, id int64) (*Device, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.devices[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := *d
	return &c, nil
}

func (s *MemStore) GetDeviceByAddress(ctx context.Context, address string) (*Device, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, d := range s.devices {
		if d.Address == address {
			c := *d
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemStore) CreateDevice(ctx context.Context, insert DeviceInsert) (*Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.deviceCounter++
	d := &Device{
		ID:             s.deviceCounter,
		Name:           insert.Name,
		Address:        insert.Address,
		DeviceType:     insert.DeviceType,
		Volume:         DefaultDeviceVolume,
		BatteryLevel:   insert.BatteryLevel,
		SignalStrength: insert.SignalStrength,
	}
	if insert.IsConnected != nil {
		d.IsConnected = *insert.IsConnected
	}
	if insert.Volume != nil {
		d.Volume = *insert.Volume
	}
	if d.IsConnected {
		now := time.Now()
		d.LastConnected = &now
	}

	s.devices[d.ID] = d
	c := *d
	return &c, nil
}

func (s *MemStore) UpdateDevice(ctx context.Context, id int64, update DeviceUpdate) (*Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.devices[id]
	if !ok {
		return nil, ErrNotFound
	}

	merged := *d
	applyDeviceUpdate(&merged, update)
	s.devices[id] = &merged

	c := merged
	return &c, nil
}

func (s *MemStore) DeleteDevice(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.devices[id]; !ok {
		return ErrNotFound
	}
	delete(s.devices, id)
	return nil
}

func (s *MemStore) GetAllSessions(ctx context.Context) ([]Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, *sess)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemStore) GetSession(ctx context.Context, id int64) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := *sess
	return &c, nil
}

func (s *MemStore) CreateSession(ctx context.Context, insert SessionInsert) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessionCounter++
	sess := &Session{
		ID:           s.sessionCounter,
		DeviceID:     insert.DeviceID,
		IsActive:     true,
		AudioQuality: QualityBalanced,
		BufferSize:   DefaultSessionBufferSize,
		Latency:      insert.Latency,
		StartTime:    time.Now(),
	}
	if insert.IsActive != nil {
		sess.IsActive = *insert.IsActive
	}
	if insert.AudioQuality != nil {
		sess.AudioQuality = *insert.AudioQuality
	}
	if insert.BufferSize != nil {
		sess.BufferSize = *insert.BufferSize
	}

	s.sessions[sess.ID] = sess
	c := *sess
	return &c, nil
}

func (s *MemStore) UpdateSession(ctx context.Context, id int64, update SessionUpdate) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}

	merged := *sess
	applySessionUpdate(&merged, update)
	s.sessions[id] = &merged

	c := merged
	return &c, nil
}

func (s *MemStore) GetDeviceSessions(ctx context.Context, deviceID int64) ([]Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Session, 0)
	for _, sess := range s.sessions {
		if sess.DeviceID != nil && *sess.DeviceID == deviceID {
			out = append(out, *sess)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemStore) GetActiveSessions(ctx context.Context) ([]Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Session, 0)
	for _, sess := range s.sessions {
		if sess.IsActive {
			out = append(out, *sess)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemStore) Close() error { return nil }

// applyDeviceUpdate merges non-nil fields. Connecting stamps
// lastConnected; an explicit disconnect keeps the old stamp.
func applyDeviceUpdate(d *Device, update DeviceUpdate) {
	if update.Name != nil {
		d.Name = *update.Name
	}
	if update.Address != nil {
		d.Address = *update.Address
	}
	if update.DeviceType != nil {
		d.DeviceType = *update.DeviceType
	}
	if update.Volume != nil {
		d.Volume = *update.Volume
	}
	if update.BatteryLevel != nil {
		d.BatteryLevel = update.BatteryLevel
	}
	if update.SignalStrength != nil {
		d.SignalStrength = update.SignalStrength
	}
	if update.IsConnected != nil {
		if *update.IsConnected {
			now := time.Now()
			d.LastConnected = &now
		}
		d.IsConnected = *update.IsConnected
	}
}

// applySessionUpdate merges non-nil fields. Deactivating an active
// session stamps endTime exactly once.
func applySessionUpdate(sess *Session, update SessionUpdate) {
	if update.DeviceID != nil {
		sess.DeviceID = update.DeviceID
	}
	if update.AudioQuality != nil {
		sess.AudioQuality = *update.AudioQuality
	}
	if update.BufferSize != nil {
		sess.BufferSize = *update.BufferSize
	}
	if update.Latency != nil {
		sess.Latency = update.Latency
	}
	if update.IsActive != nil {
		if sess.IsActive && !*update.IsActive {
			now := time.Now()
			sess.EndTime = &now
		}
		sess.IsActive = *update.IsActive
	}
}
