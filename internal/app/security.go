package app

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"yomitore/internal/app/apiresp"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const csrfCookieName = "yomitore_csrf"
const csrfHeaderName = "X-CSRF-Token"
const adminTokenHeader = "X-Admin-Token"

// session ids are part of the limiter key, so expired buckets are swept once
// the map grows past this size
const maxRateBuckets = 10000

type rateBucket struct {
	Count      int
	WindowEnds time.Time
}

type IPRateLimiter struct {
	mu     sync.Mutex
	max    int
	window time.Duration
	store  map[string]rateBucket
}

func NewIPRateLimiter(max int, window time.Duration) *IPRateLimiter {
	if max <= 0 {
		max = 60
	}
	if window <= 0 {
		window = time.Minute
	}
	return &IPRateLimiter{
		max:    max,
		window: window,
		store:  make(map[string]rateBucket),
	}
}

func (l *IPRateLimiter) Allow(key string) bool {
	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.store) >= maxRateBuckets {
		for k, v := range l.store {
			if now.After(v.WindowEnds) {
				delete(l.store, k)
			}
		}
	}

	b := l.store[key]
	if now.After(b.WindowEnds) {
		b = rateBucket{Count: 0, WindowEnds: now.Add(l.window)}
	}
	if b.Count >= l.max {
		l.store[key] = b
		return false
	}
	b.Count++
	l.store[key] = b
	return true
}

func RateLimitMiddleware(l *IPRateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// state polling is read-only and runs at the reveal rate
			if r.Method == http.MethodGet || r.Method == http.MethodHead {
				next.ServeHTTP(w, r)
				return
			}
			ip := strings.TrimSpace(r.RemoteAddr)
			key := ip + "|" + r.Method + "|" + r.URL.Path
			if !l.Allow(key) {
				apiresp.WriteError(w, r, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func CSRFMiddleware(enforced bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !enforced {
				next.ServeHTTP(w, r)
				return
			}
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}

			c, err := r.Cookie(csrfCookieName)
			if err != nil || strings.TrimSpace(c.Value) == "" {
				apiresp.WriteError(w, r, http.StatusForbidden, "csrf token missing")
				return
			}
			h := strings.TrimSpace(r.Header.Get(csrfHeaderName))
			if h == "" || h != c.Value {
				apiresp.WriteError(w, r, http.StatusForbidden, "csrf token invalid")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AdminTokenMiddleware guards dataset administration. The token travels in
// X-Admin-Token and is checked against a bcrypt hash; an empty hash turns the
// routes off.
func AdminTokenMiddleware(hash string) func(http.Handler) http.Handler {
	hashed := []byte(strings.TrimSpace(hash))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(hashed) == 0 {
				apiresp.WriteError(w, r, http.StatusNotFound, "admin api disabled")
				return
			}
			token := strings.TrimSpace(r.Header.Get(adminTokenHeader))
			if token == "" {
				apiresp.WriteError(w, r, http.StatusUnauthorized, "admin token required")
				return
			}
			if err := bcrypt.CompareHashAndPassword(hashed, []byte(token)); err != nil {
				apiresp.WriteError(w, r, http.StatusForbidden, "admin token invalid")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CSRFCookieMiddleware issues the double-submit cookie that CSRFMiddleware
// checks, so the page script can echo it back.
func CSRFCookieMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie(csrfCookieName); err != nil || strings.TrimSpace(c.Value) == "" {
			http.SetCookie(w, &http.Cookie{
				Name:     csrfCookieName,
				Value:    uuid.NewString(),
				Path:     "/",
				SameSite: http.SameSiteStrictMode,
			})
		}
		next.ServeHTTP(w, r)
	})
}
