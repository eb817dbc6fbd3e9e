package conversation

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zonarated-bot/internal/settings"
)

func TestNext(t *testing.T) {
	tests := []struct {
		name    string
		from    State
		event   Event
		want    State
		wantErr bool
	}{
		{"begin from idle", Idle, Event{Kind: Begin, Flow: AwaitingApproveID}, AwaitingApproveID, false},
		{"begin replaces flow", AwaitingBroadcast, Event{Kind: Begin, Flow: AwaitingSchedule}, AwaitingSchedule, false},
		{"begin idle is invalid", Idle, Event{Kind: Begin, Flow: Idle}, Idle, true},
		{"begin unknown flow", Idle, Event{Kind: Begin, Flow: "bogus"}, Idle, true},
		{"accepted returns to idle", AwaitingWelcome, Event{Kind: Accepted}, Idle, false},
		{"accepted without flow", Idle, Event{Kind: Accepted}, Idle, true},
		{"rejected keeps waiting", AwaitingReferralCount, Event{Kind: Rejected}, AwaitingReferralCount, false},
		{"cancel", AwaitingLookupID, Event{Kind: Cancel}, Idle, false},
		{"cancel when idle", Idle, Event{Kind: Cancel}, Idle, false},
		{"unknown state resets", "stale", Event{Kind: Cancel}, Idle, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Next(tt.from, tt.event)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSettingKey(t *testing.T) {
	k, ok := AwaitingReferralCount.SettingKey()
	assert.True(t, ok)
	assert.Equal(t, settings.RequiredReferrals, k)

	_, ok = AwaitingBroadcast.SettingKey()
	assert.False(t, ok)

	for st := range prompts {
		assert.NotEmpty(t, st.Prompt(), st)
	}
}

func TestStore(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	s := NewStore(rdb, 0)

	st, err := s.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, Idle, st)

	st, err = s.Apply(ctx, 1, Event{Kind: Begin, Flow: AwaitingApproveID})
	require.NoError(t, err)
	assert.Equal(t, AwaitingApproveID, st)
	assert.Equal(t, DefaultTTL, mr.TTL("conversation:1"))

	st, err = s.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, AwaitingApproveID, st)

	st, err = s.Apply(ctx, 1, Event{Kind: Accepted})
	require.NoError(t, err)
	assert.Equal(t, Idle, st)
	assert.False(t, mr.Exists("conversation:1"))

	_, err = s.Apply(ctx, 1, Event{Kind: Begin, Flow: AwaitingBroadcast})
	require.NoError(t, err)
	mr.FastForward(16 * time.Minute)
	st, err = s.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, Idle, st)
}
