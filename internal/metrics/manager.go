// Package metrics records how long speech jobs take and how often they fail,
// per pipeline and engine. Counters live in memory and can be persisted to SQLite.
package metrics

import (
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MetricsManager holds all metrics, keyed by "topic/function" path.
type MetricsManager struct {
	mu          sync.RWMutex
	timings     map[string]*TimingMetric
	successFail map[string]*SuccessFailMetric

	db *sql.DB // nil until Open
}

var (
	instance *MetricsManager
	once     sync.Once
)

// GetInstance returns the process-wide metrics manager.
func GetInstance() *MetricsManager {
	once.Do(func() {
		instance = NewManager()
	})
	return instance
}

// NewManager returns an empty in-memory manager.
func NewManager() *MetricsManager {
	return &MetricsManager{
		timings:     make(map[string]*TimingMetric),
		successFail: make(map[string]*SuccessFailMetric),
	}
}

// buildPath creates a normalized path from topic and function
func buildPath(topic, function string) string {
	if function == "" {
		return topic
	}
	return fmt.Sprintf("%s/%s", topic, function)
}

// RecordDuration records a duration directly
func (m *MetricsManager) RecordDuration(topic, function string, duration time.Duration) {
	path := buildPath(topic, function)

	m.mu.Lock()
	metric, exists := m.timings[path]
	if !exists {
		metric = &TimingMetric{Min: duration, Max: duration}
		m.timings[path] = metric
	}
	m.mu.Unlock()

	metric.mu.Lock()
	defer metric.mu.Unlock()

	metric.Count++
	metric.Total += duration
	metric.Last = duration
	if duration < metric.Min {
		metric.Min = duration
	}
	if duration > metric.Max {
		metric.Max = duration
	}
}

func (m *MetricsManager) successFailFor(path string) *SuccessFailMetric {
	m.mu.Lock()
	defer m.mu.Unlock()
	metric, exists := m.successFail[path]
	if !exists {
		metric = &SuccessFailMetric{FailureReasons: make(map[string]int64)}
		m.successFail[path] = metric
	}
	return metric
}

// RecordSuccess records a successful operation
func (m *MetricsManager) RecordSuccess(topic, function string) {
	metric := m.successFailFor(buildPath(topic, function))

	metric.mu.Lock()
	defer metric.mu.Unlock()
	metric.Success++
	metric.LastSuccess = time.Now()
}

// RecordFailure records a failed operation
func (m *MetricsManager) RecordFailure(topic, function, reason string) {
	metric := m.successFailFor(buildPath(topic, function))

	metric.mu.Lock()
	defer metric.mu.Unlock()
	metric.Failures++
	metric.LastFailure = time.Now()
	if reason != "" {
		metric.FailureReasons[reason]++
	}
}

// GetSnapshot returns every metric, sorted by path then type.
func (m *MetricsManager) GetSnapshot() []Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Snapshot, 0, len(m.timings)+len(m.successFail))
	for path, t := range m.timings {
		t.mu.RLock()
		s := Snapshot{
			Path:   path,
			Type:   TypeTiming,
			Count:  t.Count,
			MinMs:  ms(t.Min),
			MaxMs:  ms(t.Max),
			LastMs: ms(t.Last),
		}
		if t.Count > 0 {
			s.AvgMs = ms(t.Total) / float64(t.Count)
		}
		t.mu.RUnlock()
		out = append(out, s)
	}
	for path, sf := range m.successFail {
		sf.mu.RLock()
		s := Snapshot{
			Path:     path,
			Type:     TypeSuccessFail,
			Success:  sf.Success,
			Failures: sf.Failures,
		}
		if total := sf.Success + sf.Failures; total > 0 {
			s.SuccessRate = float64(sf.Success) / float64(total) * 100
		}
		var top int64
		for reason, n := range sf.FailureReasons {
			if n > top || (n == top && reason < s.TopFailure) {
				top, s.TopFailure = n, reason
			}
		}
		sf.mu.RUnlock()
		out = append(out, s)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Path != out[j].Path {
			return out[i].Path < out[j].Path
		}
		return out[i].Type < out[j].Type
	})
	return out
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
