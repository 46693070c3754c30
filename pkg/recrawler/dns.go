package recrawler

import (
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"time"
)

// domainEntry is the shared per-domain bookkeeping: resolved addresses,
// the consecutive failure counter, dead state, and the connection
// semaphore.
type domainEntry struct {
	mu      sync.Mutex
	ips     []string
	fails   int
	dead    bool
	reason  string
	succeed bool

	// sem bounds concurrent in-flight requests to the domain.
	sem chan struct{}

	// robotsOnce guards the lazy robots.txt fetch.
	robotsOnce sync.Once
	robots     robotsRules
}

// domainTable holds one entry per domain seen during a run.
type domainTable struct {
	mu            sync.RWMutex
	entries       map[string]*domainEntry
	failThreshold int
	maxConns      int
}

func newDomainTable(failThreshold, maxConns int) *domainTable {
	return &domainTable{
		entries:       make(map[string]*domainEntry),
		failThreshold: failThreshold,
		maxConns:      maxConns,
	}
}

func (t *domainTable) get(domain string) *domainEntry {
	t.mu.RLock()
	e, ok := t.entries[domain]
	t.mu.RUnlock()
	if ok {
		return e
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if e, ok = t.entries[domain]; ok {
		return e
	}
	e = &domainEntry{sem: make(chan struct{}, t.maxConns)}
	t.entries[domain] = e
	return e
}

// recordFailure bumps the consecutive-failure counter and kills the
// domain at the threshold. A domain that has succeeded at least once
// is immune to the timeout kill.
func (t *domainTable) recordFailure(domain, reason string) bool {
	e := t.get(domain)
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.succeed && reason == ReasonHTTPTimeout {
		return false
	}
	e.fails++
	if !e.dead && e.fails >= t.failThreshold {
		e.dead = true
		e.reason = reason
	}
	return e.dead
}

// recordSuccess resets the failure counter and marks the domain as
// having succeeded.
func (t *domainTable) recordSuccess(domain string) {
	e := t.get(domain)
	e.mu.Lock()
	e.fails = 0
	e.succeed = true
	e.mu.Unlock()
}

// kill marks a domain dead outright (nxdomain, failed probe).
func (t *domainTable) kill(domain, reason string) {
	e := t.get(domain)
	e.mu.Lock()
	if !e.dead {
		e.dead = true
		e.reason = reason
	}
	e.mu.Unlock()
}

func (t *domainTable) isDead(domain string) bool {
	e := t.get(domain)
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dead
}

func (t *domainTable) setIPs(domain string, ips []string) {
	e := t.get(domain)
	e.mu.Lock()
	e.ips = ips
	e.mu.Unlock()
}

// ip returns one cached address for direct-IP dialing, empty when the
// domain was never resolved.
func (t *domainTable) ip(domain string) string {
	e := t.get(domain)
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.ips) == 0 {
		return ""
	}
	return e.ips[0]
}

// deadCount reports how many domains were killed, by reason.
func (t *domainTable) deadCount() map[string]int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]int)
	for _, e := range t.entries {
		e.mu.Lock()
		if e.dead {
			out[e.reason]++
		}
		e.mu.Unlock()
	}
	return out
}

// dnsPool resolves unique domains ahead of the fetch stage, caching
// addresses and killing unresolvable domains early.
type dnsPool struct {
	table    *domainTable
	resolver *net.Resolver
	workers  int
	timeout  time.Duration
	stats    *Stats
}

func newDNSPool(table *domainTable, workers int, timeout time.Duration, stats *Stats) *dnsPool {
	return &dnsPool{
		table:    table,
		resolver: net.DefaultResolver,
		workers:  workers,
		timeout:  timeout,
		stats:    stats,
	}
}

// run resolves every domain from in. It returns when in is drained or
// ctx is cancelled.
func (p *dnsPool) run(ctx context.Context, in <-chan string) {
	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case domain, ok := <-in:
					if !ok {
						return
					}
					p.resolve(ctx, domain)
				case <-ctx.Done():
					return
				}
			}
		}()
	}
	wg.Wait()
}

func (p *dnsPool) resolve(ctx context.Context, domain string) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	ips, err := p.resolver.LookupHost(ctx, domain)
	if err != nil {
		p.stats.dnsFailed.Add(1)
		p.table.kill(domain, classifyDNSError(err))
		return
	}
	p.stats.dnsResolved.Add(1)
	p.table.setIPs(domain, ips)
}

func classifyDNSError(err error) string {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsNotFound {
			return ReasonDNSNXDomain
		}
		if dnsErr.IsTimeout {
			return ReasonDNSTimeout
		}
	}
	if strings.Contains(err.Error(), "context deadline exceeded") {
		return ReasonDNSTimeout
	}
	return ReasonDNSNXDomain
}
