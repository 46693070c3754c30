package server

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"github.com/glimpse-search/glimpse/pkg/observability"
	"github.com/glimpse-search/glimpse/pkg/types"
)

// metricsMiddleware records one counter increment and one latency
// observation per request, labelled by the matched chi route pattern.
func metricsMiddleware(metrics observability.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)

			route := chi.RouteContext(r.Context()).RoutePattern()
			if route == "" {
				route = "unmatched"
			}
			metrics.RecordHTTPRequest(r.Context(), r.Method, route, ww.Status(), time.Since(start))
		})
	}
}

// clientLimiter hands out one token-bucket limiter per client address.
type clientLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	perMin   int
}

func newClientLimiter(perMin int) *clientLimiter {
	return &clientLimiter{
		limiters: make(map[string]*rate.Limiter),
		perMin:   perMin,
	}
}

func (c *clientLimiter) limiterFor(client string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()
	if l, ok := c.limiters[client]; ok {
		return l
	}
	l := rate.NewLimiter(rate.Limit(float64(c.perMin)/60.0), c.perMin)
	c.limiters[client] = l
	return l
}

// rateLimitMiddleware rejects clients above the configured per-minute
// budget with 429 and a Retry-After hint.
func rateLimitMiddleware(perMin int) func(http.Handler) http.Handler {
	limiter := newClientLimiter(perMin)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			client, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				client = r.RemoteAddr
			}

			l := limiter.limiterFor(client)
			res := l.Reserve()
			if !res.OK() || res.Delay() > 0 {
				if res.OK() {
					res.Cancel()
				}
				retry := res.Delay()
				if retry <= 0 {
					retry = time.Minute
				}
				writeError(w, types.NewError(types.KindRateLimited, "request budget exceeded").
					WithRetryAfter(retry))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
