package observability

import (
	"strconv"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters for the HTTP surface and
// the sweeper.
type Metrics struct {
	mu            sync.Mutex
	requestCount  map[string]int64
	errorCount    map[string]int64
	sweepRuns     int64
	sweepClosed   int64
	sweepArchived int64
	sweepFailed   int64
	lastSweepTook time.Duration
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount: make(map[string]int64),
		errorCount:   make(map[string]int64),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + strconv.Itoa(status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + code
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[key]++
}

// RecordSweep tracks one sweep cycle's outcome.
func (m *Metrics) RecordSweep(closed, archived, failed int, took time.Duration) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweepRuns++
	m.sweepClosed += int64(closed)
	m.sweepArchived += int64(archived)
	m.sweepFailed += int64(failed)
	m.lastSweepTook = took
}

// SweepTotals returns cumulative sweep counters.
func (m *Metrics) SweepTotals() (runs, closed, archived, failed int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sweepRuns, m.sweepClosed, m.sweepArchived, m.sweepFailed
}
