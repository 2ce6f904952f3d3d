package metrics

import (
	"sync"
	"time"
)

// MetricType represents the type of metric
type MetricType string

const (
	TypeTiming      MetricType = "timing"
	TypeSuccessFail MetricType = "success_fail"
)

// TimingMetric tracks timing statistics
type TimingMetric struct {
	mu    sync.RWMutex
	Count int64
	Total time.Duration
	Min   time.Duration
	Max   time.Duration
	Last  time.Duration
}

// SuccessFailMetric tracks success and failure counts
type SuccessFailMetric struct {
	mu             sync.RWMutex
	Success        int64
	Failures       int64
	LastSuccess    time.Time
	LastFailure    time.Time
	FailureReasons map[string]int64 // reason -> count
}

// Snapshot is a point-in-time copy of one metric, flattened for display.
type Snapshot struct {
	Path string
	Type MetricType

	// Timing
	Count  int64
	AvgMs  float64
	MinMs  float64
	MaxMs  float64
	LastMs float64

	// Success/failure
	Success     int64
	Failures    int64
	SuccessRate float64 // 0-100
	TopFailure  string  // most frequent failure reason
}
