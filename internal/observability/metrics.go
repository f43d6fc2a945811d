package observability

import (
	"strconv"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

// Metrics provides basic in-memory counters.
type Metrics struct {
	requestCount *xsync.MapOf[string, *xsync.Counter]
	errorCount   *xsync.MapOf[string, *xsync.Counter]
	authOutcomes *xsync.MapOf[string, *xsync.Counter]
	wsSessions   *xsync.Counter
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount: xsync.NewMapOf[string, *xsync.Counter](),
		errorCount:   xsync.NewMapOf[string, *xsync.Counter](),
		authOutcomes: xsync.NewMapOf[string, *xsync.Counter](),
		wsSessions:   xsync.NewCounter(),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, _ time.Duration) {
	if m == nil {
		return
	}
	incr(m.requestCount, path+"|"+method+"|"+strconv.Itoa(status))
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	incr(m.errorCount, path+"|"+method+"|"+code)
}

// RecordAuthOutcome counts request authentication results per credential kind.
func (m *Metrics) RecordAuthOutcome(outcome, kind string) {
	if m == nil {
		return
	}
	incr(m.authOutcomes, outcome+"|"+kind)
}

// SessionOpened tracks a live websocket session.
func (m *Metrics) SessionOpened() {
	if m != nil {
		m.wsSessions.Inc()
	}
}

// SessionClosed releases a live websocket session.
func (m *Metrics) SessionClosed() {
	if m != nil {
		m.wsSessions.Dec()
	}
}

// Snapshot copies the current counter values.
func (m *Metrics) Snapshot() map[string]map[string]int64 {
	if m == nil {
		return map[string]map[string]int64{}
	}
	out := map[string]map[string]int64{
		"requests":      collect(m.requestCount),
		"errors":        collect(m.errorCount),
		"auth_outcomes": collect(m.authOutcomes),
		"ws_sessions":   {"open": m.wsSessions.Value()},
	}
	return out
}

func incr(counters *xsync.MapOf[string, *xsync.Counter], key string) {
	c, _ := counters.LoadOrCompute(key, xsync.NewCounter)
	c.Inc()
}

func collect(counters *xsync.MapOf[string, *xsync.Counter]) map[string]int64 {
	out := make(map[string]int64, counters.Size())
	counters.Range(func(key string, c *xsync.Counter) bool {
		out[key] = c.Value()
		return true
	})
	return out
}
