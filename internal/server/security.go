package server

import (
	"crypto/subtle"
	"log/slog"
	"net"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"

	"github.com/osse101/ChannelPointsMiner_Go/internal/logger"
)

// AuthMiddleware validates the X-API-Key header. An empty apiKey disables
// authentication.
func AuthMiddleware(apiKey string, trustedProxies []string, detector *SuspiciousActivityDetector) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if apiKey == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, path := range PublicPaths {
				if strings.HasPrefix(r.URL.Path, path) {
					next.ServeHTTP(w, r)
					return
				}
			}

			providedKey := r.Header.Get(HeaderAPIKey)
			if subtle.ConstantTimeCompare([]byte(providedKey), []byte(apiKey)) != 1 {
				ip := extractIP(r, trustedProxies)
				detector.RecordFailedAuth(ip)

				log := logger.FromContext(r.Context())
				log.Warn(LogMsgAuthFailed,
					"remote_addr", r.RemoteAddr,
					"path", r.URL.Path,
					"has_key", providedKey != "",
					"ip", ip)

				http.Error(w, ErrMsgUnauthorized, http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequestSizeLimitMiddleware limits request body size
func RequestSizeLimitMiddleware(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

// SuspiciousActivityDetector tracks failed logins per IP over a fixed
// window and gives each IP a token bucket of RequestRateLimit requests
// that refills over DetectorWindow.
type SuspiciousActivityDetector struct {
	mu             sync.Mutex
	clock          clockwork.Clock
	failedAuthByIP map[string]int
	limiters       map[string]*ipLimiter
	windowStart    time.Time
}

type ipLimiter struct {
	bucket  *rate.Limiter
	blocked int
}

// NewSuspiciousActivityDetector creates a detector; a nil clock uses the
// real one.
func NewSuspiciousActivityDetector(clock clockwork.Clock) *SuspiciousActivityDetector {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &SuspiciousActivityDetector{
		clock:          clock,
		failedAuthByIP: make(map[string]int),
		limiters:       make(map[string]*ipLimiter),
		windowStart:    clock.Now(),
	}
}

func (s *SuspiciousActivityDetector) RecordFailedAuth(ip string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rollWindow(s.clock.Now())
	s.failedAuthByIP[ip]++
	if n := s.failedAuthByIP[ip]; n >= FailedAuthThreshold {
		slog.Warn(SecurityAlertFailedAuth, "ip", ip, "count", n)
	}
}

// RecordRequest takes a token from ip's bucket and reports whether the
// request may proceed.
func (s *SuspiciousActivityDetector) RecordRequest(ip string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	s.rollWindow(now)

	l, ok := s.limiters[ip]
	if !ok {
		l = &ipLimiter{bucket: rate.NewLimiter(requestRefill, RequestRateLimit)}
		s.limiters[ip] = l
	}
	if l.bucket.AllowN(now, 1) {
		return true
	}
	l.blocked++
	if l.blocked%RateLogInterval == 1 {
		slog.Warn(SecurityAlertHighRate, "ip", ip, "blocked", l.blocked)
	}
	return false
}

var requestRefill = rate.Limit(float64(RequestRateLimit) / DetectorWindow.Seconds())

// rollWindow clears failed-auth counts once per window and forgets IPs
// whose buckets have refilled. Caller must hold the mutex.
func (s *SuspiciousActivityDetector) rollWindow(now time.Time) {
	if now.Sub(s.windowStart) <= DetectorWindow {
		return
	}
	s.failedAuthByIP = make(map[string]int)
	for ip, l := range s.limiters {
		if l.bucket.TokensAt(now) >= RequestRateLimit {
			delete(s.limiters, ip)
		}
	}
	s.windowStart = now
}

// SecurityLoggingMiddleware enhances logging with security information and enforces rate limits
func SecurityLoggingMiddleware(trustedProxies []string, detector *SuspiciousActivityDetector) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := extractIP(r, trustedProxies)
			if !detector.RecordRequest(ip) {
				http.Error(w, ErrMsgTooManyRequests, http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// extractIP gets the client IP address from request.
// It only trusts X-Forwarded-For if the request comes from a trusted proxy.
func extractIP(r *http.Request, trustedProxies []string) string {
	remoteIP, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		remoteIP = r.RemoteAddr
	}

	if !slices.Contains(trustedProxies, remoteIP) {
		return remoteIP
	}
	// Rightmost hop is the one our trusted proxy saw.
	if forwarded := r.Header.Get(HeaderForwardedFor); forwarded != "" {
		ips := strings.Split(forwarded, ",")
		return strings.TrimSpace(ips[len(ips)-1])
	}
	return remoteIP
}

// SecurityHeadersMiddleware adds security headers to responses
func SecurityHeadersMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set(HeaderContentType, HeaderValueNoSniff)
			h.Set(HeaderFrameOptions, HeaderValueSameOrigin)
			h.Set(HeaderXSSProtection, HeaderValueXSSBlock)
			h.Set(HeaderReferrerPolicy, HeaderValueReferrerStrictOrigin)

			next.ServeHTTP(w, r)
		})
	}
}
