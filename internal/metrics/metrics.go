package metrics

import (
	"sync"
	"time"
)

// Collector tracks delivery counters for the /metrics endpoint.
// This implementation uses manual metric tracking without external dependencies.
// For production, consider integrating prometheus/client_golang.
type Collector struct {
	mu sync.RWMutex

	// Delivery metrics
	deliveries        map[string]int64 // by transport (sse, buffered)
	deliveryDur       map[string]int64 // total duration in ms by transport
	deliveryErrors    map[string]int64 // by error kind (validation, rate_limit, service, internal)
	streamsInProgress int64

	// Rate limit metrics
	rateLimitHits int64

	// Chunk and token metrics
	totalChunks   int64
	totalTokens   int64
	tokensByModel map[string]int64

	// System metrics
	startTime time.Time
}

// NewCollector creates a new metrics collector.
func NewCollector() *Collector {
	return &Collector{
		deliveries:     make(map[string]int64),
		deliveryDur:    make(map[string]int64),
		deliveryErrors: make(map[string]int64),
		tokensByModel:  make(map[string]int64),
		startTime:      time.Now(),
	}
}

// RecordDelivery records a completed delivery on the given transport.
func (c *Collector) RecordDelivery(transport string, chunks int, duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.deliveries[transport]++
	c.deliveryDur[transport] += duration.Milliseconds()
	c.totalChunks += int64(chunks)
}

// RecordError records a failed delivery by error kind.
func (c *Collector) RecordError(kind string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.deliveryErrors[kind]++
}

// RecordStreamStart increments in-flight push streams.
func (c *Collector) RecordStreamStart() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.streamsInProgress++
}

// RecordStreamEnd decrements in-flight push streams.
func (c *Collector) RecordStreamEnd() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.streamsInProgress--
}

// RecordRateLimitHit records a rate limit rejection.
func (c *Collector) RecordRateLimitHit() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.rateLimitHits++
}

// RecordTokenUsage records generator token consumption.
func (c *Collector) RecordTokenUsage(model string, tokens int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.totalTokens += tokens
	if model != "" {
		c.tokensByModel[model] += tokens
	}
}

// Snapshot is a point-in-time copy of all metrics.
type Snapshot struct {
	Uptime            int64
	Deliveries        map[string]int64
	DeliveryDur       map[string]int64
	DeliveryErrors    map[string]int64
	StreamsInProgress int64
	RateLimitHits     int64
	TotalChunks       int64
	TotalTokens       int64
	TokensByModel     map[string]int64
}

// GetSnapshot returns a snapshot of current metrics.
func (c *Collector) GetSnapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return Snapshot{
		Uptime:            int64(time.Since(c.startTime).Seconds()),
		Deliveries:        copyMap(c.deliveries),
		DeliveryDur:       copyMap(c.deliveryDur),
		DeliveryErrors:    copyMap(c.deliveryErrors),
		StreamsInProgress: c.streamsInProgress,
		RateLimitHits:     c.rateLimitHits,
		TotalChunks:       c.totalChunks,
		TotalTokens:       c.totalTokens,
		TokensByModel:     copyMap(c.tokensByModel),
	}
}

func copyMap(m map[string]int64) map[string]int64 {
	result := make(map[string]int64, len(m))
	for k, v := range m {
		result[k] = v
	}
	return result
}
