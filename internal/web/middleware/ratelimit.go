package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// Face identification attempt limits per client
const (
	DefaultMaxAttempts   = 5
	DefaultAttemptWindow = 5 * time.Minute
	DefaultLockout       = 15 * time.Minute
)

type attempts struct {
	failures    int
	windowStart time.Time
	lockedUntil time.Time
}

// AttemptLimiter locks a client out after too many failed identifications
// within a window.
type AttemptLimiter struct {
	max     int
	window  time.Duration
	lockout time.Duration

	trusted []netip.Prefix

	mu      sync.Mutex
	clients map[string]*attempts
	now     func() time.Time
}

// NewAttemptLimiter creates a limiter allowing maxFailures failures per window.
func NewAttemptLimiter(maxFailures int, window, lockout time.Duration) *AttemptLimiter {
	return &AttemptLimiter{
		max:     maxFailures,
		window:  window,
		lockout: lockout,
		clients: make(map[string]*attempts),
		now:     time.Now,
	}
}

// Locked returns how long key stays locked out, or zero.
func (l *AttemptLimiter) Locked(key string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	a, ok := l.clients[key]
	if !ok {
		return 0
	}
	if left := a.lockedUntil.Sub(l.now()); left > 0 {
		return left
	}
	return 0
}

// Fail records a failed attempt for key.
func (l *AttemptLimiter) Fail(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	a, ok := l.clients[key]
	if !ok || now.Sub(a.windowStart) > l.window {
		a = &attempts{windowStart: now}
		l.clients[key] = a
	}
	a.failures++
	if a.failures >= l.max {
		a.lockedUntil = now.Add(l.lockout)
		a.failures = 0
		a.windowStart = now
	}
}

// Reset forgets the failures of key.
func (l *AttemptLimiter) Reset(key string) {
	l.mu.Lock()
	delete(l.clients, key)
	l.mu.Unlock()
}

// Prune drops clients that are neither locked nor inside a window.
func (l *AttemptLimiter) Prune() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for k, a := range l.clients {
		if now.After(a.lockedUntil) && now.Sub(a.windowStart) > l.window {
			delete(l.clients, k)
		}
	}
}

// TrustProxies sets the proxies whose forwarded client address is used as the
// key. list holds IPs or CIDRs separated by commas. Requests from any other
// peer are keyed by the peer itself, whatever headers they carry.
func (l *AttemptLimiter) TrustProxies(list string) error {
	var prefixes []netip.Prefix
	for _, entry := range strings.Split(list, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if !strings.Contains(entry, "/") {
			addr, err := netip.ParseAddr(entry)
			if err != nil {
				return fmt.Errorf("invalid trusted proxy %q: %w", entry, err)
			}
			prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
			continue
		}
		prefix, err := netip.ParsePrefix(entry)
		if err != nil {
			return fmt.Errorf("invalid trusted proxy %q: %w", entry, err)
		}
		prefixes = append(prefixes, prefix.Masked())
	}
	l.trusted = prefixes
	return nil
}

func (l *AttemptLimiter) trustedPeer(host string) bool {
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range l.trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

type peerContextKey struct{}

// CapturePeer keeps the TCP peer address of the request. Mount it before
// RealIP, which replaces RemoteAddr with client supplied headers.
func CapturePeer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), peerContextKey{}, r.RemoteAddr)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func hostOf(addr string) string {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}

// clientKey is the TCP peer, or the forwarded client when the peer is a
// trusted proxy.
func (l *AttemptLimiter) clientKey(r *http.Request) string {
	peer, ok := r.Context().Value(peerContextKey{}).(string)
	if !ok {
		peer = r.RemoteAddr
	}
	host := hostOf(peer)
	if l.trustedPeer(host) {
		return hostOf(r.RemoteAddr)
	}
	return host
}

// LimitAttempts rejects locked-out clients with 429. A 401 from the wrapped
// handler counts as a failure, a 2xx clears the client's record.
func LimitAttempts(l *AttemptLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := l.clientKey(r)
			if left := l.Locked(key); left > 0 {
				w.Header().Set("Retry-After", strconv.Itoa(int(left.Seconds())+1))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"error":"too many failed attempts, try again later"}`))
				return
			}

			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			switch status := ww.Status(); {
			case status == http.StatusUnauthorized:
				l.Fail(key)
			case status >= 200 && status < 300:
				l.Reset(key)
			}
		})
	}
}
