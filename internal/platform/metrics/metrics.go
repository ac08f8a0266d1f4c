package metrics

import (
	"sync/atomic"
	"time"
)

// Collector keeps process-wide request counters for the /metrics endpoint.
type Collector struct {
	startedAt       time.Time
	totalRequests   atomic.Uint64
	clientErrors    atomic.Uint64
	serverErrors    atomic.Uint64
	rateLimited     atomic.Uint64
	totalDurationMs atomic.Uint64
	maxDurationMs   atomic.Uint64
}

type Snapshot struct {
	UptimeSeconds    int64   `json:"uptimeSeconds"`
	RequestsTotal    uint64  `json:"requestsTotal"`
	ClientErrors     uint64  `json:"clientErrorsTotal"`
	ServerErrors     uint64  `json:"serverErrorsTotal"`
	RateLimitedTotal uint64  `json:"rateLimitedTotal"`
	AvgDurationMs    float64 `json:"avgDurationMs"`
	MaxDurationMs    uint64  `json:"maxDurationMs"`
}

func New() *Collector {
	return &Collector{startedAt: time.Now()}
}

func (c *Collector) Record(status int, duration time.Duration) {
	c.totalRequests.Add(1)
	switch {
	case status >= 500:
		c.serverErrors.Add(1)
	case status == 429:
		c.rateLimited.Add(1)
		c.clientErrors.Add(1)
	case status >= 400:
		c.clientErrors.Add(1)
	}
	ms := uint64(max(duration.Milliseconds(), 0))
	c.totalDurationMs.Add(ms)
	for {
		current := c.maxDurationMs.Load()
		if ms <= current || c.maxDurationMs.CompareAndSwap(current, ms) {
			break
		}
	}
}

func (c *Collector) Snapshot() Snapshot {
	total := c.totalRequests.Load()
	totalMs := c.totalDurationMs.Load()
	avg := float64(0)
	if total > 0 {
		avg = float64(totalMs) / float64(total)
	}
	return Snapshot{
		UptimeSeconds:    int64(time.Since(c.startedAt).Seconds()),
		RequestsTotal:    total,
		ClientErrors:     c.clientErrors.Load(),
		ServerErrors:     c.serverErrors.Load(),
		RateLimitedTotal: c.rateLimited.Load(),
		AvgDurationMs:    avg,
		MaxDurationMs:    c.maxDurationMs.Load(),
	}
}
