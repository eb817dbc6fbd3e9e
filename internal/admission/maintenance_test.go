package admission_test

import (
	"context"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"zonarated-bot/internal/admission"
	"zonarated-bot/internal/settings"
	"zonarated-bot/internal/store/storetest"
)

func newMaintenance(t *testing.T) (*admission.Maintenance, *settings.Service, *quartz.Mock) {
	t.Helper()
	logger := zaptest.NewLogger(t)
	svc := settings.New(storetest.New(t), logger)
	clock := quartz.NewMock(t)
	clock.Set(time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC))
	return admission.NewMaintenance(svc, clock, 30*time.Second, logger), svc, clock
}

func TestMaintenanceStateWindow(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name  string
		state admission.MaintenanceState
		want  bool
	}{
		{"disabled", admission.MaintenanceState{}, false},
		{"open ended", admission.MaintenanceState{Enabled: true}, true},
		{"before start", admission.MaintenanceState{Enabled: true, Start: now.Add(time.Hour)}, false},
		{"after end", admission.MaintenanceState{Enabled: true, End: now.Add(-time.Minute)}, false},
		{"inside window", admission.MaintenanceState{Enabled: true, Start: now.Add(-time.Hour), End: now.Add(time.Hour)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.state.ActiveAt(now))
		})
	}
}

func TestMaintenanceCacheTTLAndInvalidate(t *testing.T) {
	ctx := context.Background()
	m, svc, clock := newMaintenance(t)

	active, _ := m.Active(ctx)
	assert.False(t, active)

	// A write behind the cache's back is only seen after the TTL.
	require.NoError(t, svc.Set(ctx, settings.MaintenanceMode, "true"))
	active, _ = m.Active(ctx)
	assert.False(t, active)

	clock.Advance(31 * time.Second)
	active, _ = m.Active(ctx)
	assert.True(t, active)

	require.NoError(t, m.Disable(ctx))
	active, _ = m.Active(ctx)
	assert.False(t, active)
}

func TestMaintenanceExpiresAfterEnd(t *testing.T) {
	ctx := context.Background()
	m, _, clock := newMaintenance(t)

	end := clock.Now().Add(10 * time.Minute)
	require.NoError(t, m.Enable(ctx, end))

	active, st := m.Active(ctx)
	assert.True(t, active)
	assert.Equal(t, end, st.End)

	expired, err := m.ExpireIfEnded(ctx)
	require.NoError(t, err)
	assert.False(t, expired)

	clock.Advance(11 * time.Minute)
	expired, err = m.ExpireIfEnded(ctx)
	require.NoError(t, err)
	assert.True(t, expired)

	st = m.Status(ctx)
	assert.False(t, st.Enabled)
	assert.True(t, st.End.IsZero())
}

func TestMaintenanceReadFailureKeepsLastKnownState(t *testing.T) {
	ctx := context.Background()
	logger := zaptest.NewLogger(t)
	kv := &flakyKV{KV: storetest.New(t)}
	svc := settings.New(kv, logger)
	clock := quartz.NewMock(t)
	clock.Set(time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC))
	m := admission.NewMaintenance(svc, clock, 30*time.Second, logger)

	require.NoError(t, m.Enable(ctx, time.Time{}))
	active, _ := m.Active(ctx)
	require.True(t, active)

	kv.fail = true
	clock.Advance(time.Minute)
	active, _ = m.Active(ctx)
	assert.True(t, active)

	_, err := m.ExpireIfEnded(ctx)
	assert.Error(t, err)

	kv.fail = false
	require.NoError(t, m.Disable(ctx))
	active, _ = m.Active(ctx)
	assert.False(t, active)
}
