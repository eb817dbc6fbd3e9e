package admission

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/coder/quartz"
	"go.uber.org/zap"

	"zonarated-bot/internal/settings"
)

const DefaultMaintenanceTTL = 30 * time.Second

type MaintenanceSettings interface {
	Flag(ctx context.Context, key string) (bool, error)
	Time(ctx context.Context, key string) time.Time
	Set(ctx context.Context, key, value string) error
	SetTime(ctx context.Context, key string, t time.Time) error
}

type MaintenanceState struct {
	Enabled bool
	Start   time.Time
	End     time.Time
}

// ActiveAt reports whether the flag is on and now falls inside the optional
// window. An unset bound is open.
func (s MaintenanceState) ActiveAt(now time.Time) bool {
	if !s.Enabled {
		return false
	}
	if !s.Start.IsZero() && now.Before(s.Start) {
		return false
	}
	if !s.End.IsZero() && now.After(s.End) {
		return false
	}
	return true
}

// Maintenance caches the maintenance flag for a short TTL. Writes through
// Enable and Disable invalidate the cache immediately.
type Maintenance struct {
	settings MaintenanceSettings
	clock    quartz.Clock
	ttl      time.Duration
	logger   *zap.Logger

	mu        sync.Mutex
	state     MaintenanceState
	fetchedAt time.Time
	valid     bool
}

func NewMaintenance(s MaintenanceSettings, clock quartz.Clock, ttl time.Duration, logger *zap.Logger) *Maintenance {
	if ttl <= 0 {
		ttl = DefaultMaintenanceTTL
	}
	return &Maintenance{
		settings: s,
		clock:    clock,
		ttl:      ttl,
		logger:   logger.Named("maintenance"),
	}
}

// Status returns the cached state, refreshing it once the TTL has passed. A
// failed refresh keeps the last known state and is retried on the next call.
func (m *Maintenance) Status(ctx context.Context) MaintenanceState {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	if m.valid && now.Sub(m.fetchedAt) < m.ttl {
		return m.state
	}
	st, err := m.load(ctx)
	if err != nil {
		m.logger.Warn("failed to read maintenance state, keeping last known", zap.Error(err))
		return m.state
	}
	m.state = st
	m.fetchedAt = now
	m.valid = true
	return m.state
}

func (m *Maintenance) load(ctx context.Context) (MaintenanceState, error) {
	enabled, err := m.settings.Flag(ctx, settings.MaintenanceMode)
	if err != nil {
		return MaintenanceState{}, err
	}
	return MaintenanceState{
		Enabled: enabled,
		Start:   m.settings.Time(ctx, settings.MaintenanceStart),
		End:     m.settings.Time(ctx, settings.MaintenanceEnd),
	}, nil
}

// Active returns whether maintenance is in effect right now, with the state it
// was derived from.
func (m *Maintenance) Active(ctx context.Context) (bool, MaintenanceState) {
	st := m.Status(ctx)
	return st.ActiveAt(m.clock.Now()), st
}

// Enable starts maintenance now. A zero end leaves it open-ended.
func (m *Maintenance) Enable(ctx context.Context, end time.Time) error {
	defer m.Invalidate()

	if err := m.settings.SetTime(ctx, settings.MaintenanceStart, m.clock.Now()); err != nil {
		return err
	}
	if err := m.settings.SetTime(ctx, settings.MaintenanceEnd, end); err != nil {
		return err
	}
	if err := m.settings.Set(ctx, settings.MaintenanceMode, strconv.FormatBool(true)); err != nil {
		return err
	}
	m.logger.Info("maintenance enabled", zap.Time("end", end))
	return nil
}

func (m *Maintenance) Disable(ctx context.Context) error {
	defer m.Invalidate()

	if err := m.settings.Set(ctx, settings.MaintenanceMode, strconv.FormatBool(false)); err != nil {
		return err
	}
	if err := m.settings.SetTime(ctx, settings.MaintenanceStart, time.Time{}); err != nil {
		return err
	}
	if err := m.settings.SetTime(ctx, settings.MaintenanceEnd, time.Time{}); err != nil {
		return err
	}
	m.logger.Info("maintenance disabled")
	return nil
}

func (m *Maintenance) Invalidate() {
	m.mu.Lock()
	m.valid = false
	m.mu.Unlock()
}

// ExpireIfEnded turns maintenance off once its end time has passed. It reads
// the stored values directly rather than the cache.
func (m *Maintenance) ExpireIfEnded(ctx context.Context) (bool, error) {
	m.Invalidate()
	st, err := m.load(ctx)
	if err != nil {
		return false, err
	}
	if !st.Enabled || st.End.IsZero() || !m.clock.Now().After(st.End) {
		return false, nil
	}
	if err := m.Disable(ctx); err != nil {
		return false, err
	}
	return true, nil
}
