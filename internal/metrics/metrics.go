package metrics

import (
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
)

// Collector holds all metrics
type Collector struct {
	requestsTotal    map[string]*atomic.Int64 // by processing mode
	providerFailures map[string]*atomic.Int64 // by provider name
	cacheHits        atomic.Int64
	cacheMisses      atomic.Int64
	queuedTotal      atomic.Int64
	drainedTotal     atomic.Int64
	queueDepth       atomic.Int64
	tokensUsed       atomic.Int64
	mu               sync.RWMutex
}

// NewCollector creates a new metrics collector
func NewCollector() *Collector {
	return &Collector{
		requestsTotal:    make(map[string]*atomic.Int64),
		providerFailures: make(map[string]*atomic.Int64),
	}
}

func (c *Collector) counter(m map[string]*atomic.Int64, key string) *atomic.Int64 {
	c.mu.Lock()
	counter, ok := m[key]
	if !ok {
		counter = &atomic.Int64{}
		m[key] = counter
	}
	c.mu.Unlock()
	return counter
}

// IncRequests increments the request counter for a processing mode
func (c *Collector) IncRequests(mode string) {
	c.counter(c.requestsTotal, mode).Add(1)
}

// IncProviderFailure increments the failure counter for a provider
func (c *Collector) IncProviderFailure(provider string) {
	c.counter(c.providerFailures, provider).Add(1)
}

// IncCacheHit records a response served from cache
func (c *Collector) IncCacheHit() { c.cacheHits.Add(1) }

// IncCacheMiss records a cache miss
func (c *Collector) IncCacheMiss() { c.cacheMisses.Add(1) }

// IncQueued records a request deferred to the queue
func (c *Collector) IncQueued() { c.queuedTotal.Add(1) }

// IncDrained records a queued request resolved by a drain
func (c *Collector) IncDrained() { c.drainedTotal.Add(1) }

// SetQueueDepth sets the current number of queued requests
func (c *Collector) SetQueueDepth(n int) { c.queueDepth.Store(int64(n)) }

// AddTokens adds provider-reported token usage
func (c *Collector) AddTokens(n int) { c.tokensUsed.Add(int64(n)) }

// GetRequestsTotal returns request counts by processing mode
func (c *Collector) GetRequestsTotal() map[string]int64 {
	return c.snapshot(c.requestsTotal)
}

// GetProviderFailures returns failure counts by provider
func (c *Collector) GetProviderFailures() map[string]int64 {
	return c.snapshot(c.providerFailures)
}

// GetCacheStats returns cache hit and miss counts
func (c *Collector) GetCacheStats() (hits, misses int64) {
	return c.cacheHits.Load(), c.cacheMisses.Load()
}

// GetQueueDepth returns the current queue depth gauge
func (c *Collector) GetQueueDepth() int64 { return c.queueDepth.Load() }

func (c *Collector) snapshot(m map[string]*atomic.Int64) map[string]int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	result := make(map[string]int64)
	for k, counter := range m {
		result[k] = counter.Load()
	}
	return result
}

// WritePrometheus writes metrics in Prometheus text format
func (c *Collector) WritePrometheus(w io.Writer) {
	fmt.Fprintln(w, "# HELP shikshasetu_requests_total Requests by processing mode")
	fmt.Fprintln(w, "# TYPE shikshasetu_requests_total counter")
	requests := c.GetRequestsTotal()
	for _, mode := range sortedKeys(requests) {
		fmt.Fprintf(w, "shikshasetu_requests_total{mode=%q} %d\n", mode, requests[mode])
	}

	fmt.Fprintln(w)

	fmt.Fprintln(w, "# HELP shikshasetu_provider_failures_total Cloud provider failures")
	fmt.Fprintln(w, "# TYPE shikshasetu_provider_failures_total counter")
	failures := c.GetProviderFailures()
	for _, name := range sortedKeys(failures) {
		fmt.Fprintf(w, "shikshasetu_provider_failures_total{provider=%q} %d\n", name, failures[name])
	}

	fmt.Fprintln(w)

	hits, misses := c.GetCacheStats()
	fmt.Fprintln(w, "# HELP shikshasetu_cache_total Response cache lookups")
	fmt.Fprintln(w, "# TYPE shikshasetu_cache_total counter")
	fmt.Fprintf(w, "shikshasetu_cache_total{result=\"hit\"} %d\n", hits)
	fmt.Fprintf(w, "shikshasetu_cache_total{result=\"miss\"} %d\n", misses)

	fmt.Fprintln(w)

	fmt.Fprintln(w, "# HELP shikshasetu_queued_total Requests deferred while connectivity was limited")
	fmt.Fprintln(w, "# TYPE shikshasetu_queued_total counter")
	fmt.Fprintf(w, "shikshasetu_queued_total %d\n", c.queuedTotal.Load())

	fmt.Fprintln(w, "# HELP shikshasetu_drained_total Queued requests resolved by a drain")
	fmt.Fprintln(w, "# TYPE shikshasetu_drained_total counter")
	fmt.Fprintf(w, "shikshasetu_drained_total %d\n", c.drainedTotal.Load())

	fmt.Fprintln(w)

	fmt.Fprintln(w, "# HELP shikshasetu_queue_depth Requests currently queued")
	fmt.Fprintln(w, "# TYPE shikshasetu_queue_depth gauge")
	fmt.Fprintf(w, "shikshasetu_queue_depth %d\n", c.queueDepth.Load())

	fmt.Fprintln(w)

	fmt.Fprintln(w, "# HELP shikshasetu_tokens_total Provider-reported tokens used")
	fmt.Fprintln(w, "# TYPE shikshasetu_tokens_total counter")
	fmt.Fprintf(w, "shikshasetu_tokens_total %d\n", c.tokensUsed.Load())
}

// sortedKeys returns sorted keys of a map
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Handler returns an HTTP handler for the metrics endpoint
func (c *Collector) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		c.WritePrometheus(w)
	}
}

// Global collector instance
var defaultCollector = NewCollector()

// Default returns the default metrics collector
func Default() *Collector {
	return defaultCollector
}
