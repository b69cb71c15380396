package httputil

import (
	"crypto/sha256"
	"encoding/hex"
	"net"
	"net/http"
	"strings"
)

// DeviceIDHeader lets native clients send a stable installation identifier.
const DeviceIDHeader = "X-Device-Id"

// DeviceMeta is the caller supplied metadata used to fingerprint a device.
type DeviceMeta struct {
	UserAgent      string
	DeviceID       string
	AcceptLanguage string
}

// NewDeviceMeta extracts device metadata from r.
func NewDeviceMeta(r *http.Request) DeviceMeta {
	return DeviceMeta{
		UserAgent:      r.Header.Get("User-Agent"),
		DeviceID:       r.Header.Get(DeviceIDHeader),
		AcceptLanguage: r.Header.Get("Accept-Language"),
	}
}

// Fingerprint returns the SHA-256 hex digest of the metadata fields joined by
// newlines. Equal metadata always yields the same fingerprint.
func (m DeviceMeta) Fingerprint() string {
	sum := sha256.Sum256([]byte(m.UserAgent + "\n" + m.DeviceID + "\n" + m.AcceptLanguage))
	return hex.EncodeToString(sum[:])
}

// GetClientIP returns the caller address without port.
// When trustProxy is set, X-Forwarded-For (first entry) and X-Real-IP are honored
// before falling back to RemoteAddr.
//
// Example X-Forwarded-For: "203.0.113.195, 70.41.3.18"
// Returns: "203.0.113.195"
func GetClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
		if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
			return xri
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
