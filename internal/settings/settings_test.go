package settings

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"zonarated-bot/internal/apperror"
)

type memKV struct {
	values map[string]string
	err    error
}

func (m *memKV) GetSetting(_ context.Context, key string) (string, bool, error) {
	if m.err != nil {
		return "", false, m.err
	}
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *memKV) SetSetting(_ context.Context, key, value string) error {
	m.values[key] = value
	return nil
}

func (m *memKV) DeleteSetting(_ context.Context, key string) error {
	delete(m.values, key)
	return nil
}

func TestTypedAccessors(t *testing.T) {
	ctx := context.Background()
	kv := &memKV{values: map[string]string{
		RequiredReferrals:   "3",
		ShrinkMeEnabled:     "false",
		AdminIDs:            "1, 2,abc,3",
		InviteExpirySeconds: "oops",
	}}
	s := New(kv, zaptest.NewLogger(t))

	required, err := s.RequiredReferrals(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, required)
	assert.False(t, s.Bool(ctx, ShrinkMeEnabled, true))
	assert.Equal(t, []int64{1, 2, 3}, s.IntList(ctx, AdminIDs))
	assert.True(t, s.IsAdmin(ctx, 2))
	assert.False(t, s.IsAdmin(ctx, 4))
	assert.Equal(t, DefaultInviteExpiry, s.InviteExpiry(ctx))
	assert.Equal(t, DefaultSessionTTL, s.SessionTTL(ctx))
	assert.Equal(t, "fallback", s.String(ctx, AffiliateLink, "fallback"))
}

func TestStoreErrorOnlyFallsBackForNonSecuritySettings(t *testing.T) {
	ctx := context.Background()
	dbDown := errors.New("db down")
	s := New(&memKV{err: dbDown}, zaptest.NewLogger(t))

	assert.Equal(t, DefaultPublishBatch, s.PublishBatchSize(ctx))

	_, err := s.RequiredReferrals(ctx)
	assert.ErrorIs(t, err, dbDown)

	_, err = s.Flag(ctx, MaintenanceMode)
	assert.ErrorIs(t, err, dbDown)
}

func TestStrictAccessors(t *testing.T) {
	tests := []struct {
		name     string
		values   map[string]string
		required int
		reqErr   bool
		flag     bool
		flagErr  bool
	}{
		{"unset", map[string]string{}, 0, false, false, false},
		{"set", map[string]string{RequiredReferrals: " 4 ", MaintenanceMode: "on"}, 4, false, true, false},
		{"garbage", map[string]string{RequiredReferrals: "many", MaintenanceMode: "maybe"}, 0, true, false, true},
		{"negative threshold", map[string]string{RequiredReferrals: "-2"}, 0, true, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			s := New(&memKV{values: tt.values}, zaptest.NewLogger(t))

			required, err := s.RequiredReferrals(ctx)
			if tt.reqErr {
				assert.ErrorIs(t, err, apperror.ErrValidation)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.required, required)
			}

			flag, err := s.Flag(ctx, MaintenanceMode)
			if tt.flagErr {
				assert.ErrorIs(t, err, apperror.ErrValidation)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.flag, flag)
			}
		})
	}
}

func TestTimeRoundTrip(t *testing.T) {
	ctx := context.Background()
	kv := &memKV{values: map[string]string{}}
	s := New(kv, zaptest.NewLogger(t))

	end := time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC)
	require.NoError(t, s.SetTime(ctx, MaintenanceEnd, end))
	assert.Equal(t, end, s.Time(ctx, MaintenanceEnd))

	require.NoError(t, s.SetTime(ctx, MaintenanceEnd, time.Time{}))
	assert.True(t, s.Time(ctx, MaintenanceEnd).IsZero())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantErr bool
	}{
		{"referrals in range", RequiredReferrals, "10", false},
		{"referrals too high", RequiredReferrals, "11", true},
		{"referrals negative", RequiredReferrals, "-1", true},
		{"expiry too short", InviteExpirySeconds, "30", true},
		{"expiry ok", InviteExpirySeconds, "600", false},
		{"affiliate https", AffiliateLink, "https://example.com/x", false},
		{"affiliate empty clears", AffiliateLink, "", false},
		{"affiliate bad scheme", AffiliateLink, "ftp://example.com", true},
		{"redirect without host", RedirectBaseURL, "https://", true},
		{"unconstrained key", WelcomeMessage, "anything", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.key, tt.value)
			if tt.wantErr {
				assert.ErrorIs(t, err, apperror.ErrValidation)
				return
			}
			assert.NoError(t, err)
		})
	}
}
