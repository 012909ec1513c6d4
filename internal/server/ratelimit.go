package server

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

// fixedWindowLimiter counts requests per key over fixed windows. Model calls
// are billed per request, so the agent endpoints get a hard per-window count
// instead of the token-bucket smoothing used on auth routes.
type fixedWindowLimiter struct {
	window time.Duration
	limit  int
	now    func() time.Time

	mu      sync.Mutex
	windows map[string]*requestWindow
}

type requestWindow struct {
	start time.Time
	count int
}

func newFixedWindowLimiter(window time.Duration, limit int) *fixedWindowLimiter {
	return &fixedWindowLimiter{
		window:  window,
		limit:   limit,
		now:     time.Now,
		windows: make(map[string]*requestWindow),
	}
}

// Allow reports whether the key may proceed, and on refusal how long until
// the current window resets.
func (l *fixedWindowLimiter) Allow(key string) (bool, time.Duration) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	win, ok := l.windows[key]
	if !ok || now.Sub(win.start) >= l.window {
		l.windows[key] = &requestWindow{start: now, count: 1}
		return true, 0
	}

	if win.count >= l.limit {
		return false, win.start.Add(l.window).Sub(now)
	}

	win.count++
	return true, 0
}

// Middleware limits requests per client IP and answers 429 with Retry-After
// when the window is exhausted.
func (l *fixedWindowLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ok, retryAfter := l.Allow(c.RealIP())
			if !ok {
				seconds := int(retryAfter.Seconds())
				if seconds < 1 {
					seconds = 1
				}
				c.Response().Header().Set("Retry-After", strconv.Itoa(seconds))
				return c.JSON(http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
			}
			return next(c)
		}
	}
}
