package httpapi

import (
	"net"
	"net/http"

	"go.uber.org/zap"
)

// IsAllowedIP reports whether ip falls inside one of the CIDR blocks.
// Invalid blocks are skipped.
func IsAllowedIP(ip string, allowedCIDRs []string) bool {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}

	for _, cidr := range allowedCIDRs {
		_, netblock, err := net.ParseCIDR(cidr)
		if err != nil {
			continue
		}
		if netblock.Contains(parsed) {
			return true
		}
	}
	return false
}

// remoteIP strips the port chi's RealIP may or may not have left on RemoteAddr.
func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// AllowCIDRs rejects requests from outside allowedCIDRs with 403. An empty
// list lets everything through.
func AllowCIDRs(allowedCIDRs []string, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(allowedCIDRs) > 0 {
				ip := remoteIP(r)
				if !IsAllowedIP(ip, allowedCIDRs) {
					logger.Warn("rejected request from disallowed address",
						zap.String("ip", ip),
						zap.String("path", r.URL.Path))
					http.Error(w, "Forbidden", http.StatusForbidden)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
