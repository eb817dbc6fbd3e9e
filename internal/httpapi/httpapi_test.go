package httpapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"zonarated-bot/internal/apperror"
	"zonarated-bot/internal/delivery"
	"zonarated-bot/internal/models"
	"zonarated-bot/internal/notify"
)

const token = "0123456789abcdef0123456789abcdef"

type fakeConsumer struct {
	res   *delivery.Result
	err   error
	calls []string
}

func (f *fakeConsumer) Consume(_ context.Context, token string, opts delivery.ConsumeOptions) (*delivery.Result, error) {
	f.calls = append(f.calls, token+"/"+opts.Entrypoint)
	return f.res, f.err
}

type fakeNotifier struct {
	failed []int64
}

func (f *fakeNotifier) DownloadFailed(_ context.Context, userID int64, _ string) notify.Result {
	f.failed = append(f.failed, userID)
	return notify.Result{Status: notify.StatusSent}
}

func newTestServer(t *testing.T, consumer *fakeConsumer, notifier *fakeNotifier, cidrs []string) http.Handler {
	t.Helper()
	logger := zaptest.NewLogger(t)
	h := NewDownloadHandler(consumer, notifier, "zonarated_bot", logger)
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewCounter(prometheus.CounterOpts{Name: "test_total", Help: "test"}))
	return New(Config{MetricsAllowedCIDRs: cidrs}, h, reg, logger).Handler()
}

func TestHandleRedirect(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		res        *delivery.Result
		err        error
		wantStatus int
		wantTarget string
		wantNotify bool
	}{
		{
			name:       "success",
			path:       "/" + token,
			res:        &delivery.Result{RedirectURL: "https://aff.example/x"},
			wantStatus: http.StatusFound,
			wantTarget: "https://aff.example/x",
		},
		{
			name:       "malformed token",
			path:       "/not-a-token",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unknown",
			path:       "/" + token,
			err:        apperror.NotFound("download session", token),
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "expired",
			path:       "/" + token,
			err:        apperror.Expired("download session", token),
			wantStatus: http.StatusGone,
		},
		{
			name:       "already used",
			path:       "/" + token,
			err:        apperror.AlreadyConsumed("download session", token),
			wantStatus: http.StatusGone,
		},
		{
			name: "delivery failed still redirects",
			path: "/" + token,
			res: &delivery.Result{
				User:        &models.User{ID: 42, Language: "en"},
				RedirectURL: "https://aff.example/x",
			},
			err:        apperror.DeliveryFailed(token, errors.New("blocked")),
			wantStatus: http.StatusFound,
			wantTarget: "https://aff.example/x",
			wantNotify: true,
		},
		{
			name:       "empty target falls back to the bot",
			path:       "/" + token,
			res:        &delivery.Result{},
			wantStatus: http.StatusFound,
			wantTarget: "https://t.me/zonarated_bot",
		},
		{
			name:       "unexpected error",
			path:       "/" + token,
			err:        errors.New("db down"),
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			consumer := &fakeConsumer{res: tt.res, err: tt.err}
			notifier := &fakeNotifier{}
			srv := newTestServer(t, consumer, notifier, nil)

			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantTarget != "" {
				assert.Equal(t, tt.wantTarget, rec.Header().Get("Location"))
			}
			if tt.wantNotify {
				assert.Equal(t, []int64{42}, notifier.failed)
			} else {
				assert.Empty(t, notifier.failed)
			}
			if tt.wantStatus == http.StatusBadRequest {
				assert.Empty(t, consumer.calls)
			} else {
				assert.Equal(t, []string{token + "/" + delivery.EntryRedirect}, consumer.calls)
			}
		})
	}
}

func TestMetricsAllowlist(t *testing.T) {
	t.Run("open when unset", func(t *testing.T) {
		srv := newTestServer(t, &fakeConsumer{}, &fakeNotifier{}, nil)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "test_total")
	})

	t.Run("allowed address", func(t *testing.T) {
		srv := newTestServer(t, &fakeConsumer{}, &fakeNotifier{}, []string{"10.0.0.0/8"})
		req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
		req.RemoteAddr = "10.1.2.3:5555"
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("rejected address", func(t *testing.T) {
		consumer := &fakeConsumer{}
		srv := newTestServer(t, consumer, &fakeNotifier{}, []string{"10.0.0.0/8"})
		req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
		req.RemoteAddr = "192.0.2.1:5555"
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Empty(t, consumer.calls)
	})
}

func TestIsAllowedIP(t *testing.T) {
	cidrs := []string{"garbage", "127.0.0.0/8", "::1/128"}

	assert.True(t, IsAllowedIP("127.0.0.1", cidrs))
	assert.True(t, IsAllowedIP("::1", cidrs))
	assert.False(t, IsAllowedIP("8.8.8.8", cidrs))
	assert.False(t, IsAllowedIP("not-an-ip", cidrs))
}
