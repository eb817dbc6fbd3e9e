// Package cdn signs Bunny CDN URLs with basic token authentication.
package cdn

import (
	"crypto/md5"
	"encoding/base64"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const DefaultExpiry = 4 * time.Hour

type Signer struct {
	Hostname string
	Key      string
}

func NewSigner(hostname, key string) *Signer {
	return &Signer{Hostname: strings.TrimRight(hostname, "/"), Key: key}
}

func (s *Signer) Enabled() bool {
	return s != nil && s.Hostname != "" && s.Key != ""
}

// Handles reports whether fileURL points at the configured CDN host.
func (s *Signer) Handles(fileURL string) bool {
	if !s.Enabled() {
		return false
	}
	u, err := url.Parse(fileURL)
	if err != nil {
		return false
	}
	cdnHost, err := url.Parse(s.Hostname)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, cdnHost.Host)
}

// Sign returns hostname+path?token=..&expires=.. where token is the unpadded
// URL-safe base64 of md5(key + decoded path + expiry). fileURL may be a full
// URL or a bare path.
func (s *Signer) Sign(fileURL string, now time.Time, ttl time.Duration) (string, error) {
	encodedPath := fileURL
	if strings.HasPrefix(fileURL, "http://") || strings.HasPrefix(fileURL, "https://") {
		u, err := url.Parse(fileURL)
		if err != nil {
			return "", fmt.Errorf("parse file url: %w", err)
		}
		encodedPath = u.EscapedPath()
	} else if !strings.HasPrefix(encodedPath, "/") {
		encodedPath = "/" + encodedPath
	}

	decodedPath, err := url.PathUnescape(encodedPath)
	if err != nil {
		return "", fmt.Errorf("decode path: %w", err)
	}

	expires := strconv.FormatInt(now.Add(ttl).Unix(), 10)
	sum := md5.Sum([]byte(s.Key + decodedPath + expires))
	token := base64.RawURLEncoding.EncodeToString(sum[:])

	return fmt.Sprintf("%s%s?token=%s&expires=%s", s.Hostname, encodedPath, token, expires), nil
}
