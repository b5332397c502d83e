// Package proxy manages an optional pool of outbound proxies for article
// fetching, with simple failure-based cooldowns.
package proxy

import (
	"bufio"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"
)

// ErrNoProxies is returned by Next-like operations on an empty pool.
var ErrNoProxies = errors.New("proxy pool is empty")

type entry struct {
	url           *url.URL
	failures      int
	disabledUntil time.Time
}

// Pool rotates proxies round-robin, temporarily disabling ones that keep
// failing. Safe for concurrent use.
type Pool struct {
	mu          sync.Mutex
	entries     []*entry
	next        int
	maxFailures int
	cooldown    time.Duration
}

// Config tunes failure handling.
type Config struct {
	// MaxFailures before a proxy is benched.
	MaxFailures int
	// Cooldown is how long a benched proxy sits out.
	Cooldown time.Duration
}

// NewPool creates an empty pool with defaults applied.
func NewPool(cfg Config) *Pool {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 3
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 5 * time.Minute
	}
	return &Pool{maxFailures: cfg.MaxFailures, cooldown: cfg.Cooldown}
}

// Add registers proxy URLs. Invalid URLs fail the whole call.
func (p *Pool) Add(rawURLs ...string) error {
	parsed := make([]*entry, 0, len(rawURLs))
	for _, raw := range rawURLs {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid proxy url %q", raw)
		}
		parsed = append(parsed, &entry{url: u})
	}

	p.mu.Lock()
	p.entries = append(p.entries, parsed...)
	p.mu.Unlock()
	return nil
}

// LoadFile reads one proxy URL per line; blank lines and '#' comments are
// skipped.
func (p *Pool) LoadFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open proxy file: %w", err)
	}
	defer file.Close()

	var urls []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read proxy file: %w", err)
	}

	return p.Add(urls...)
}

// Next returns the next enabled proxy, or nil when none is available. A nil
// return means "go direct".
func (p *Pool) Next() *url.URL {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	for i := 0; i < len(p.entries); i++ {
		e := p.entries[p.next%len(p.entries)]
		p.next++
		if e.disabledUntil.After(now) {
			continue
		}
		return e.url
	}
	return nil
}

// MarkFailure records a failure; hitting the limit benches the proxy for
// the cooldown period.
func (p *Pool) MarkFailure(u *url.URL) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	e := p.find(u)
	if e == nil {
		return ErrNoProxies
	}

	e.failures++
	if e.failures >= p.maxFailures {
		e.disabledUntil = time.Now().Add(p.cooldown)
		e.failures = 0
	}
	return nil
}

// MarkSuccess resets the failure count for a proxy.
func (p *Pool) MarkSuccess(u *url.URL) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	e := p.find(u)
	if e == nil {
		return ErrNoProxies
	}
	e.failures = 0
	return nil
}

// Size reports the number of registered proxies, benched ones included.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

func (p *Pool) find(u *url.URL) *entry {
	for _, e := range p.entries {
		if e.url.String() == u.String() {
			return e
		}
	}
	return nil
}
