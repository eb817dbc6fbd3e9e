package admission_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"zonarated-bot/internal/admission"
	"zonarated-bot/internal/apperror"
	"zonarated-bot/internal/models"
	"zonarated-bot/internal/settings"
	"zonarated-bot/internal/store"
	"zonarated-bot/internal/store/storetest"
)

type fakeMembership struct {
	mu        sync.Mutex
	issued    []string
	revoked   []string
	approved  []int64
	declined  []int64
	createErr error
}

func (f *fakeMembership) CreateInvite(_ context.Context, expireAt time.Time) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return "", f.createErr
	}
	link := fmt.Sprintf("https://t.me/+invite%d_%d", len(f.issued)+1, expireAt.Unix())
	f.issued = append(f.issued, link)
	return link, nil
}

func (f *fakeMembership) RevokeInvite(_ context.Context, link string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked = append(f.revoked, link)
	return nil
}

func (f *fakeMembership) Approve(_ context.Context, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.approved = append(f.approved, userID)
	return nil
}

func (f *fakeMembership) Decline(_ context.Context, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.declined = append(f.declined, userID)
	return nil
}

type fixture struct {
	store      *store.Store
	settings   *settings.Service
	membership *fakeMembership
	clock      *quartz.Mock
	controller *admission.Controller
}

func newFixture(t *testing.T, required int) *fixture {
	t.Helper()
	logger := zaptest.NewLogger(t)
	st := storetest.New(t)
	svc := settings.New(st, logger)
	require.NoError(t, svc.Set(context.Background(), settings.RequiredReferrals, fmt.Sprint(required)))

	clock := quartz.NewMock(t)
	clock.Set(time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC))

	m := &fakeMembership{}
	return &fixture{
		store:      st,
		settings:   svc,
		membership: m,
		clock:      clock,
		controller: admission.NewController(st, svc, m, clock, logger, nil),
	}
}

func (f *fixture) addUser(t *testing.T, id int64) {
	t.Helper()
	_, err := f.store.UpsertUser(context.Background(), models.User{ID: id, FirstName: fmt.Sprint("user", id)})
	require.NoError(t, err)
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name      string
		count     int
		threshold int
		eligible  bool
		missing   int
	}{
		{"zero threshold always eligible", 0, 0, true, 0},
		{"negative threshold treated as zero", 0, -3, true, 0},
		{"below threshold", 1, 3, false, 2},
		{"at threshold", 3, 3, true, 0},
		{"above threshold", 5, 3, true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := admission.Evaluate(models.User{ReferralCount: tt.count}, tt.threshold)
			assert.Equal(t, tt.eligible, ev.Eligible)
			assert.Equal(t, tt.missing, ev.Missing)
		})
	}
}

func TestCheckReportsEveryFailedPredicate(t *testing.T) {
	d := admission.Check(models.User{ReadyToJoin: true})
	assert.False(t, d.Approved)
	assert.Equal(t, []admission.Predicate{admission.PredicateVerified, admission.PredicateApproved}, d.Failed)
	assert.Equal(t, []string{"reason_not_verified", "reason_not_approved"}, d.ReasonKeys())

	d = admission.Check(models.User{VerificationComplete: true, ReadyToJoin: true, Approved: true})
	assert.True(t, d.Approved)
	assert.Empty(t, d.Failed)
}

func TestReferralThresholdScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 2)
	const x = int64(100)
	f.addUser(t, x)

	ev, _, err := f.controller.Evaluate(ctx, x)
	require.NoError(t, err)
	assert.Equal(t, 2, ev.Missing)

	_, err = f.controller.IssueCredential(ctx, x)
	assert.ErrorIs(t, err, apperror.ErrNotEligible)

	out, err := f.controller.RecordReferral(ctx, x, 201)
	require.NoError(t, err)
	assert.False(t, out.Reached)

	ev, _, err = f.controller.Evaluate(ctx, x)
	require.NoError(t, err)
	assert.Equal(t, 1, ev.Missing)

	out, err = f.controller.RecordReferral(ctx, x, 202)
	require.NoError(t, err)
	assert.True(t, out.Reached)
	assert.Equal(t, 2, out.Count)

	ev, _, err = f.controller.Evaluate(ctx, x)
	require.NoError(t, err)
	assert.True(t, ev.Eligible)

	cred, err := f.controller.IssueCredential(ctx, x)
	require.NoError(t, err)
	assert.Equal(t, f.clock.Now().Add(settings.DefaultInviteExpiry), cred.ExpiresAt)

	u, err := f.store.GetUser(ctx, x)
	require.NoError(t, err)
	assert.True(t, u.ReadyToJoin)
	assert.Equal(t, admission.StageReady, admission.StageOf(*u, 2))

	d, u, err := f.controller.OnConsumptionAttempt(ctx, x)
	require.NoError(t, err)
	assert.True(t, d.Approved)
	assert.True(t, u.JoinedGroup)
	assert.Equal(t, []int64{x}, f.membership.approved)

	u, err = f.store.GetUser(ctx, x)
	require.NoError(t, err)
	assert.Equal(t, admission.StageJoined, admission.StageOf(*u, 2))
}

func TestRecordReferralIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 5)
	f.addUser(t, 1)

	for i := 0; i < 3; i++ {
		_, err := f.controller.RecordReferral(ctx, 1, 2)
		require.NoError(t, err)
	}

	u, err := f.store.GetUser(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, u.ReferralCount)

	_, err = f.controller.RecordReferral(ctx, 1, 1)
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestIssueCredentialRetryableAndRevokesPrevious(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)
	f.addUser(t, 7)

	f.membership.createErr = errors.New("telegram unavailable")
	_, err := f.controller.IssueCredential(ctx, 7)
	require.ErrorIs(t, err, apperror.ErrIssueFailed)

	u, err := f.store.GetUser(ctx, 7)
	require.NoError(t, err)
	assert.True(t, u.VerificationComplete)
	assert.True(t, u.ReadyToJoin)

	f.membership.createErr = nil
	first, err := f.controller.IssueCredential(ctx, 7)
	require.NoError(t, err)

	f.clock.Advance(time.Minute)
	second, err := f.controller.IssueCredential(ctx, 7)
	require.NoError(t, err)

	assert.NotEqual(t, first.Link, second.Link)
	assert.Equal(t, []string{first.Link}, f.membership.revoked)
}

func TestConsumptionDeclinesStaleReadiness(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)
	f.addUser(t, 8)

	d, u, err := f.controller.OnConsumptionAttempt(ctx, 8)
	require.NoError(t, err)
	assert.False(t, d.Approved)
	assert.Len(t, d.Failed, 3)
	assert.False(t, u.JoinedGroup)
	assert.Equal(t, []int64{8}, f.membership.declined)

	_, err = f.controller.IssueCredential(ctx, 8)
	require.NoError(t, err)
	require.NoError(t, f.store.SetReadyToJoin(ctx, 8, false))

	d, _, err = f.controller.OnConsumptionAttempt(ctx, 8)
	require.NoError(t, err)
	assert.Equal(t, []admission.Predicate{admission.PredicateReady}, d.Failed)

	stored, err := f.store.GetUser(ctx, 8)
	require.NoError(t, err)
	assert.False(t, stored.JoinedGroup)
	assert.True(t, stored.VerificationComplete)
}

func TestConsumptionFromUnknownUser(t *testing.T) {
	f := newFixture(t, 0)

	d, u, err := f.controller.OnConsumptionAttempt(context.Background(), 999)
	require.NoError(t, err)
	assert.False(t, d.Approved)
	assert.Nil(t, u)
	assert.Equal(t, []int64{999}, f.membership.declined)
}

func TestManualApproveFlowsThroughRecheck(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 10)
	f.addUser(t, 9)

	u, err := f.controller.ManualApprove(ctx, 9)
	require.NoError(t, err)
	assert.True(t, u.ReadyToJoin)

	d, _, err := f.controller.OnConsumptionAttempt(ctx, 9)
	require.NoError(t, err)
	assert.True(t, d.Approved)

	_, err = f.controller.ManualApprove(ctx, 404)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestPromoteQualified(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 5)
	f.addUser(t, 1)
	f.addUser(t, 2)
	for i := int64(0); i < 2; i++ {
		_, err := f.controller.RecordReferral(ctx, 1, 100+i)
		require.NoError(t, err)
	}
	_, err := f.controller.RecordReferral(ctx, 2, 200)
	require.NoError(t, err)

	promoted, _, err := f.controller.PromoteQualified(ctx, 50)
	require.NoError(t, err)
	assert.Empty(t, promoted)

	// Lowering the threshold is what the sweep exists for.
	require.NoError(t, f.settings.Set(ctx, settings.RequiredReferrals, "2"))

	promoted, required, err := f.controller.PromoteQualified(ctx, 50)
	require.NoError(t, err)
	assert.Equal(t, 2, required)
	require.Len(t, promoted, 1)
	assert.Equal(t, int64(1), promoted[0].ID)

	promoted, _, err = f.controller.PromoteQualified(ctx, 50)
	require.NoError(t, err)
	assert.Empty(t, promoted)
}

func TestPromoteQualifiedSkipsAutoApprove(t *testing.T) {
	f := newFixture(t, 0)
	f.addUser(t, 1)

	promoted, required, err := f.controller.PromoteQualified(context.Background(), 50)
	require.NoError(t, err)
	assert.Zero(t, required)
	assert.Empty(t, promoted)
}

// flakyKV fails every settings read while fail is set.
type flakyKV struct {
	settings.KV
	fail bool
}

func (k *flakyKV) GetSetting(ctx context.Context, key string) (string, bool, error) {
	if k.fail {
		return "", false, errors.New("connection reset")
	}
	return k.KV.GetSetting(ctx, key)
}

func TestThresholdReadFailureDeniesAdmission(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 5)
	f.addUser(t, 11)

	kv := &flakyKV{KV: f.store}
	svc := settings.New(kv, zaptest.NewLogger(t))
	controller := admission.NewController(f.store, svc, f.membership, f.clock, zaptest.NewLogger(t), nil)

	_, err := controller.IssueCredential(ctx, 11)
	require.ErrorIs(t, err, apperror.ErrNotEligible)

	kv.fail = true
	cred, err := controller.IssueCredential(ctx, 11)
	require.Error(t, err)
	assert.Nil(t, cred)
	assert.Empty(t, f.membership.issued)

	_, _, err = controller.Evaluate(ctx, 11)
	assert.Error(t, err)

	_, _, err = controller.PromoteQualified(ctx, 50)
	assert.Error(t, err)

	kv.fail = false
	u, err := f.store.GetUser(ctx, 11)
	require.NoError(t, err)
	assert.False(t, u.VerificationComplete)
	assert.False(t, u.Approved)
	assert.False(t, u.ReadyToJoin)

	d, _, err := controller.OnConsumptionAttempt(ctx, 11)
	require.NoError(t, err)
	assert.False(t, d.Approved)
	assert.Empty(t, f.membership.approved)
}
