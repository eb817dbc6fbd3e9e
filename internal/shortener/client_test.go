package shortener

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShorten(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    string
		wantErr bool
	}{
		{"ok", http.StatusOK, "https://shrinkme.io/abc\n", "https://shrinkme.io/abc", false},
		{"error text", http.StatusOK, "Invalid API key", "", true},
		{"server error", http.StatusBadGateway, "bad gateway", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "key", r.URL.Query().Get("api"))
				assert.Equal(t, "https://cdn.example/a b.mp4", r.URL.Query().Get("url"))
				assert.Equal(t, "text", r.URL.Query().Get("format"))
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			got, err := NewClient(srv.URL).Shorten(context.Background(), "key", "https://cdn.example/a b.mp4")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestShortenWithoutKey(t *testing.T) {
	_, err := NewClient("http://unused").Shorten(context.Background(), "", "https://x")
	assert.ErrorIs(t, err, ErrNoAPIKey)
}
