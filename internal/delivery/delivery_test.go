package delivery_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"zonarated-bot/internal/apperror"
	"zonarated-bot/internal/delivery"
	"zonarated-bot/internal/models"
	"zonarated-bot/internal/settings"
	"zonarated-bot/internal/store"
	"zonarated-bot/internal/store/storetest"
)

type fakeDeliverer struct {
	mu        sync.Mutex
	delivered []int64
	thumbnail string
	err       error
}

func (f *fakeDeliverer) Deliver(_ context.Context, u models.User, c models.Content) (delivery.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return delivery.Receipt{Kind: "video"}, f.err
	}
	f.delivered = append(f.delivered, c.ID)
	return delivery.Receipt{Kind: "video", ThumbnailFileID: f.thumbnail}, nil
}

type fixture struct {
	store      *store.Store
	settings   *settings.Service
	deliverer  *fakeDeliverer
	clock      *quartz.Mock
	controller *delivery.Controller
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	logger := zaptest.NewLogger(t)
	st := storetest.New(t)
	svc := settings.New(st, logger)

	clock := quartz.NewMock(t)
	clock.Set(time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC))

	_, err := st.UpsertUser(ctx, models.User{ID: 42, Language: "en"})
	require.NoError(t, err)
	require.NoError(t, st.MarkVerified(ctx, 42))
	_, err = st.UpsertUser(ctx, models.User{ID: 43})
	require.NoError(t, err)

	require.NoError(t, st.CreateContent(ctx, &models.Content{
		ID:      7,
		Code:    "Z-0007",
		Title:   "Clip seven",
		FileURL: "https://storage.example/clip7.mp4",
	}))

	d := &fakeDeliverer{}
	return &fixture{
		store:      st,
		settings:   svc,
		deliverer:  d,
		clock:      clock,
		controller: delivery.NewController(st, svc, d, clock, logger, nil),
	}
}

func TestResolveRedirect(t *testing.T) {
	tests := []struct {
		name    string
		content models.Content
		global  string
		want    string
	}{
		{"content override wins", models.Content{AffiliateLink: "https://a", ShortenedURL: "https://s", FileURL: "https://f"}, "https://g", "https://a"},
		{"global next", models.Content{ShortenedURL: "https://s", FileURL: "https://f"}, "https://g", "https://g"},
		{"shortened next", models.Content{ShortenedURL: "https://s", FileURL: "https://f"}, "", "https://s"},
		{"raw locator last", models.Content{FileURL: "https://f"}, "  ", "https://f"},
		{"nothing", models.Content{}, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, delivery.ResolveRedirect(tt.content, tt.global))
		})
	}
}

func TestTokenShape(t *testing.T) {
	tok := delivery.NewToken()
	assert.True(t, delivery.WellFormedToken(tok))
	assert.NotEqual(t, tok, delivery.NewToken())

	assert.False(t, delivery.WellFormedToken("short"))
	assert.False(t, delivery.WellFormedToken("ZZZZZZZZZZZZZZZZZZZZZZZZZZZZZZZZ"))
}

func TestCreateSessionRequiresVerifiedUser(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.controller.CreateSession(ctx, 43, 7)
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	_, err = f.controller.CreateSession(ctx, 999, 7)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = f.controller.CreateSession(ctx, 42, 8)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestConsumeOnceScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	offer, err := f.controller.CreateSession(ctx, 42, 7)
	require.NoError(t, err)
	assert.Equal(t, 10*time.Minute, offer.Session.ExpiresAt.Sub(offer.Session.CreatedAt))
	assert.Equal(t, "https://storage.example/clip7.mp4", offer.RedirectURL)

	res, err := f.controller.Consume(ctx, offer.Session.Token, delivery.ConsumeOptions{})
	require.NoError(t, err)
	assert.True(t, res.Session.ContentDelivered)
	assert.Equal(t, []int64{7}, f.deliverer.delivered)

	sess, err := f.store.GetSession(ctx, offer.Session.Token)
	require.NoError(t, err)
	assert.True(t, sess.ContentDelivered)
	assert.NotNil(t, sess.VisitedAt)

	content, err := f.store.GetContent(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 1, content.Downloads)
	assert.Equal(t, 1, content.Views)

	_, err = f.controller.Consume(ctx, offer.Session.Token, delivery.ConsumeOptions{})
	assert.ErrorIs(t, err, apperror.ErrAlreadyConsumed)
	assert.Len(t, f.deliverer.delivered, 1)
}

func TestConsumeErrors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.controller.Consume(ctx, delivery.NewToken(), delivery.ConsumeOptions{})
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	offer, err := f.controller.CreateSession(ctx, 42, 7)
	require.NoError(t, err)

	other := int64(43)
	_, err = f.controller.Consume(ctx, offer.Session.Token, delivery.ConsumeOptions{Entrypoint: delivery.EntryLegacy, UserID: &other})
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	owner := int64(42)
	_, err = f.controller.Consume(ctx, offer.Session.Token, delivery.ConsumeOptions{Entrypoint: delivery.EntryLegacy, UserID: &owner})
	assert.NoError(t, err)
}

func TestConsumeAfterExpiryAlwaysExpired(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	fresh, err := f.controller.CreateSession(ctx, 42, 7)
	require.NoError(t, err)
	used, err := f.controller.CreateSession(ctx, 42, 7)
	require.NoError(t, err)
	_, err = f.controller.Consume(ctx, used.Session.Token, delivery.ConsumeOptions{})
	require.NoError(t, err)

	f.clock.Advance(11 * time.Minute)

	_, err = f.controller.Consume(ctx, fresh.Session.Token, delivery.ConsumeOptions{})
	assert.ErrorIs(t, err, apperror.ErrExpired)
	_, err = f.controller.Consume(ctx, used.Session.Token, delivery.ConsumeOptions{})
	assert.ErrorIs(t, err, apperror.ErrExpired)
}

func TestConsumeConcurrentSingleWinner(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	offer, err := f.controller.CreateSession(ctx, 42, 7)
	require.NoError(t, err)

	const callers = 10
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		wins     int
		consumed int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.controller.Consume(ctx, offer.Session.Token, delivery.ConsumeOptions{})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, apperror.ErrAlreadyConsumed):
				consumed++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, callers-1, consumed)
	assert.Len(t, f.deliverer.delivered, 1)
}

func TestDeliveryFailureLeavesSessionVisited(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.deliverer.err = errors.New("bot was blocked by the user")

	offer, err := f.controller.CreateSession(ctx, 42, 7)
	require.NoError(t, err)

	res, err := f.controller.Consume(ctx, offer.Session.Token, delivery.ConsumeOptions{})
	require.ErrorIs(t, err, apperror.ErrDeliveryFailed)
	require.NotNil(t, res)
	assert.NotEmpty(t, res.RedirectURL)

	sess, err := f.store.GetSession(ctx, offer.Session.Token)
	require.NoError(t, err)
	assert.NotNil(t, sess.VisitedAt)
	assert.False(t, sess.ContentDelivered)

	f.deliverer.err = nil
	_, err = f.controller.Consume(ctx, offer.Session.Token, delivery.ConsumeOptions{})
	assert.ErrorIs(t, err, apperror.ErrAlreadyConsumed)
	assert.Empty(t, f.deliverer.delivered)
}

func TestThumbnailCachedOnFirstDelivery(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.deliverer.thumbnail = "AgACAgQAAxkBAAI"

	offer, err := f.controller.CreateSession(ctx, 42, 7)
	require.NoError(t, err)
	_, err = f.controller.Consume(ctx, offer.Session.Token, delivery.ConsumeOptions{})
	require.NoError(t, err)

	content, err := f.store.GetContent(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "AgACAgQAAxkBAAI", content.ThumbnailFileID)
}

func TestRedirectUsesGlobalAffiliate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.settings.Set(ctx, settings.AffiliateLink, "https://aff.example/go"))

	offer, err := f.controller.CreateSession(ctx, 42, 7)
	require.NoError(t, err)
	assert.Equal(t, "https://aff.example/go", offer.RedirectURL)
}

func TestParseContentID(t *testing.T) {
	id, err := delivery.ParseContentID("12")
	require.NoError(t, err)
	assert.Equal(t, int64(12), id)

	_, err = delivery.ParseContentID("abc")
	assert.ErrorIs(t, err, apperror.ErrValidation)
	_, err = delivery.ParseContentID("0")
	assert.ErrorIs(t, err, apperror.ErrValidation)
}
