package observability

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMetricsCountsConcurrently(t *testing.T) {
	m := NewMetrics()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.RecordAuthOutcome("authenticated", "signed")
			m.RecordError("/api/v1/auth/me", "GET", "UNAUTHORIZED")
		}()
	}
	wg.Wait()

	m.SessionOpened()
	m.SessionOpened()
	m.SessionClosed()

	snap := m.Snapshot()
	assert.Equal(t, int64(50), snap["auth_outcomes"]["authenticated|signed"])
	assert.Equal(t, int64(50), snap["errors"]["/api/v1/auth/me|GET|UNAUTHORIZED"])
	assert.Equal(t, int64(1), snap["ws_sessions"]["open"])
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordAuthOutcome("invalid", "signed")
		m.RecordRequest("/", "GET", 200, 0)
		m.SessionOpened()
		m.SessionClosed()
		m.RecordError("/", "GET", "INTERNAL_ERROR")
		assert.Empty(t, m.Snapshot())
	})
}
