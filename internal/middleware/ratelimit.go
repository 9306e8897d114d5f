package middleware

import (
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultGeneralRPM = 100
	defaultAuthRPM    = 10
	clientIdleTTL     = 10 * time.Minute
	gcThreshold       = 1000
)

type clientLimiter struct {
	general  *rate.Limiter
	auth     *rate.Limiter
	lastSeen time.Time
}

// RateLimitMiddleware keeps one token bucket pair per client IP. Login and
// registration share the stricter auth bucket to slow down credential stuffing.
// The client IP is the TCP peer unless that peer is a trusted proxy.
type RateLimitMiddleware struct {
	generalRPM     int
	authRPM        int
	trustedProxies []netip.Prefix
	mu             sync.Mutex
	clients        map[string]*clientLimiter
	now            func() time.Time
}

func NewRateLimitMiddleware(generalRPM int, authRPM int, trustedProxies []netip.Prefix) *RateLimitMiddleware {
	if generalRPM <= 0 {
		generalRPM = defaultGeneralRPM
	}
	if authRPM <= 0 {
		authRPM = defaultAuthRPM
	}

	return &RateLimitMiddleware{
		generalRPM:     generalRPM,
		authRPM:        authRPM,
		trustedProxies: trustedProxies,
		clients:        map[string]*clientLimiter{},
		now:            time.Now,
	}
}

func (m *RateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limiter := m.getLimiter(m.clientIP(r))

		target := limiter.general
		if isCredentialPath(r.URL.Path) {
			target = limiter.auth
		}

		if !target.Allow() {
			w.Header().Set("Retry-After", strconv.Itoa(int(time.Minute.Seconds())))
			writeJSONError(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func isCredentialPath(path string) bool {
	p := strings.TrimSuffix(strings.ToLower(path), "/")
	return strings.HasSuffix(p, "/login") || strings.HasSuffix(p, "/register") || strings.HasSuffix(p, "/me/password")
}

func (m *RateLimitMiddleware) getLimiter(clientIP string) *clientLimiter {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if limiter, exists := m.clients[clientIP]; exists {
		limiter.lastSeen = now
		return limiter
	}

	m.gcLocked(now)
	created := &clientLimiter{
		general:  rate.NewLimiter(rate.Every(time.Minute/time.Duration(m.generalRPM)), m.generalRPM),
		auth:     rate.NewLimiter(rate.Every(time.Minute/time.Duration(m.authRPM)), m.authRPM),
		lastSeen: now,
	}
	m.clients[clientIP] = created

	return created
}

func (m *RateLimitMiddleware) gcLocked(now time.Time) {
	if len(m.clients) < gcThreshold {
		return
	}

	cutoff := now.Add(-clientIdleTTL)
	for ip, limiter := range m.clients {
		if limiter.lastSeen.Before(cutoff) {
			delete(m.clients, ip)
		}
	}
}

// clientIP walks X-Forwarded-For from the right, skipping trusted hops, and
// only when the request arrived from a trusted proxy.
func (m *RateLimitMiddleware) clientIP(r *http.Request) string {
	peer := remoteHost(r.RemoteAddr)
	if !m.isTrusted(peer) {
		return peer
	}

	hops := strings.Split(r.Header.Get("X-Forwarded-For"), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		if hop == "" {
			continue
		}
		if !m.isTrusted(hop) {
			return hop
		}
	}

	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}

	return peer
}

func (m *RateLimitMiddleware) isTrusted(ip string) bool {
	if len(m.trustedProxies) == 0 {
		return false
	}

	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()

	for _, prefix := range m.trustedProxies {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

func remoteHost(remoteAddr string) string {
	remoteAddr = strings.TrimSpace(remoteAddr)
	if remoteAddr == "" {
		return "unknown"
	}

	host, _, err := net.SplitHostPort(remoteAddr)
	if err == nil && host != "" {
		return host
	}

	return remoteAddr
}
