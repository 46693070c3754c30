package metasearch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/cristalhq/hedgedhttp"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/glimpse-search/glimpse/internal/httpclient"
	"github.com/glimpse-search/glimpse/pkg/config"
	"github.com/glimpse-search/glimpse/pkg/engines"
	"github.com/glimpse-search/glimpse/pkg/types"
)

const (
	transportShards = 16
	maxBodyBytes    = 4 << 20
)

// Client issues engine-built requests. Transports are sharded by host
// so one slow upstream cannot exhaust the connection pool of another,
// outbound rate is limited per host, and each engine gets its own
// circuit breaker.
type Client struct {
	shards   [transportShards]*http.Client
	cfg      config.MetaSearchConfig
	breakers sync.Map // engine name -> *gobreaker.CircuitBreaker
	limiters sync.Map // host -> *rate.Limiter
}

// NewClient builds the sharded client from cfg.
func NewClient(cfg config.MetaSearchConfig) (*Client, error) {
	c := &Client{cfg: cfg}
	for i := range c.shards {
		transport := &http.Transport{
			MaxIdleConns:        32,
			MaxIdleConnsPerHost: 8,
			IdleConnTimeout:     90 * time.Second,
			ForceAttemptHTTP2:   true,
		}

		var rt http.RoundTripper = transport
		if cfg.Hedged {
			hedged, err := hedgedhttp.NewRoundTripper(
				time.Duration(cfg.HedgeDelayMs)*time.Millisecond, 2, transport)
			if err != nil {
				return nil, fmt.Errorf("hedged transport: %w", err)
			}
			rt = hedged
		}

		c.shards[i] = &http.Client{
			Transport: rt,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		}
	}
	return c, nil
}

func (c *Client) shardFor(host string) *http.Client {
	return c.shards[xxhash.Sum64String(host)%transportShards]
}

func (c *Client) limiterFor(host string) *rate.Limiter {
	if c.cfg.PerHostRPS <= 0 {
		return nil
	}
	if l, ok := c.limiters.Load(host); ok {
		return l.(*rate.Limiter)
	}
	l, _ := c.limiters.LoadOrStore(host,
		rate.NewLimiter(rate.Limit(c.cfg.PerHostRPS), int(c.cfg.PerHostRPS)+1))
	return l.(*rate.Limiter)
}

func (c *Client) breakerFor(engine string) *gobreaker.CircuitBreaker {
	if c.cfg.BreakerFailures <= 0 {
		return nil
	}
	if b, ok := c.breakers.Load(engine); ok {
		return b.(*gobreaker.CircuitBreaker)
	}
	threshold := uint32(c.cfg.BreakerFailures)
	b, _ := c.breakers.LoadOrStore(engine, gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        engine,
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
	}))
	return b.(*gobreaker.CircuitBreaker)
}

// Do issues the request rc on behalf of engine and returns the body.
func (c *Client) Do(ctx context.Context, engine string, rc *engines.RequestConfig) ([]byte, error) {
	u, err := url.Parse(rc.URL)
	if err != nil {
		return nil, types.WrapError(types.KindEngine, "bad engine url", err)
	}

	if l := c.limiterFor(u.Host); l != nil {
		if err := l.Wait(ctx); err != nil {
			return nil, types.WrapError(types.KindEngine, "rate limit wait", err)
		}
	}

	issue := func() ([]byte, error) { return c.roundTrip(ctx, u.Host, rc) }

	if b := c.breakerFor(engine); b != nil {
		body, err := b.Execute(func() (any, error) { return issue() })
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return nil, types.WrapError(types.KindEngine, "circuit open", err)
		}
		if err != nil {
			return nil, err
		}
		return body.([]byte), nil
	}
	return issue()
}

func (c *Client) roundTrip(ctx context.Context, host string, rc *engines.RequestConfig) ([]byte, error) {
	method := rc.Method
	if method == "" {
		method = http.MethodGet
	}
	var body io.Reader
	if len(rc.Body) > 0 {
		body = bytes.NewReader(rc.Body)
	}

	req, err := http.NewRequestWithContext(ctx, method, rc.URL, body)
	if err != nil {
		return nil, types.WrapError(types.KindEngine, "build request", err)
	}
	for key, values := range rc.Headers {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	for _, cookie := range rc.Cookies {
		req.AddCookie(cookie)
	}

	resp, err := c.shardFor(host).Do(req)
	if err != nil {
		return nil, types.WrapError(types.KindEngine, "upstream request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		info := httpclient.ParseRateLimitHeaders(resp.Header)
		return nil, types.WrapError(types.KindRateLimited, "upstream rate limited",
			&httpclient.RetryableError{
				StatusCode: resp.StatusCode,
				Message:    host,
				RetryAfter: info.RetryAfter,
			}).WithContext("host", host)
	}
	if resp.StatusCode >= 400 {
		return nil, types.NewError(types.KindEngine,
			fmt.Sprintf("upstream status %d", resp.StatusCode)).WithContext("host", host)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, types.WrapError(types.KindEngine, "read body", err)
	}
	return data, nil
}

// CloseIdleConnections drops idle connections across all shards.
func (c *Client) CloseIdleConnections() {
	for _, shard := range c.shards {
		shard.CloseIdleConnections()
	}
}
