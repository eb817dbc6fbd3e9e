package cdn

import (
	"crypto/md5"
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSign(t *testing.T) {
	s := NewSigner("https://zr.b-cdn.net/", "secret")
	now := time.Unix(1_700_000_000, 0)

	got, err := s.Sign("https://zr.b-cdn.net/videos/my%20clip.mp4", now, time.Hour)
	require.NoError(t, err)

	sum := md5.Sum([]byte("secret/videos/my clip.mp41700003600"))
	token := base64.RawURLEncoding.EncodeToString(sum[:])
	assert.Equal(t, "https://zr.b-cdn.net/videos/my%20clip.mp4?token="+token+"&expires=1700003600", got)
	assert.NotContains(t, token, "=")
}

func TestSignBarePath(t *testing.T) {
	s := NewSigner("https://zr.b-cdn.net", "k")
	now := time.Unix(100, 0)

	withSlash, err := s.Sign("/a.mp4", now, DefaultExpiry)
	require.NoError(t, err)
	withoutSlash, err := s.Sign("a.mp4", now, DefaultExpiry)
	require.NoError(t, err)
	assert.Equal(t, withSlash, withoutSlash)
}

func TestHandles(t *testing.T) {
	s := NewSigner("https://zr.b-cdn.net", "k")

	assert.True(t, s.Handles("https://ZR.b-cdn.net/x.mp4"))
	assert.False(t, s.Handles("https://other.example/x.mp4"))
	assert.False(t, NewSigner("", "k").Handles("https://zr.b-cdn.net/x.mp4"))

	var nilSigner *Signer
	assert.False(t, nilSigner.Enabled())
}
