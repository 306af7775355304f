// Package metrics provides latency tracking with percentile calculations.
package metrics

import (
	"sort"
	"sync"
	"time"
)

// LatencyTracker keeps a sliding window of recent latencies.
type LatencyTracker struct {
	mu         sync.Mutex
	samples    []int64 // microseconds, insertion order
	maxSamples int
}

func NewLatencyTracker(windowSize int) *LatencyTracker {
	if windowSize <= 0 {
		windowSize = 1000
	}
	return &LatencyTracker{
		samples:    make([]int64, 0, windowSize),
		maxSamples: windowSize,
	}
}

func (lt *LatencyTracker) Record(d time.Duration) {
	lt.mu.Lock()
	defer lt.mu.Unlock()

	// Drop the oldest 10% at capacity to avoid shifting on every call.
	if len(lt.samples) >= lt.maxSamples {
		removeCount := lt.maxSamples / 10
		if removeCount < 1 {
			removeCount = 1
		}
		lt.samples = append(lt.samples[:0], lt.samples[removeCount:]...)
	}
	lt.samples = append(lt.samples, d.Microseconds())
}

// Stats returns latency statistics including percentiles.
func (lt *LatencyTracker) Stats() LatencyStats {
	lt.mu.Lock()
	sorted := append([]int64(nil), lt.samples...)
	lt.mu.Unlock()

	n := len(sorted)
	if n == 0 {
		return LatencyStats{}
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var sum int64
	for _, v := range sorted {
		sum += v
	}
	at := func(p float64) time.Duration {
		return time.Duration(sorted[int(float64(n-1)*p)]) * time.Microsecond
	}

	return LatencyStats{
		Count: n,
		Min:   time.Duration(sorted[0]) * time.Microsecond,
		Max:   time.Duration(sorted[n-1]) * time.Microsecond,
		Avg:   time.Duration(sum/int64(n)) * time.Microsecond,
		P50:   at(0.50),
		P95:   at(0.95),
		P99:   at(0.99),
	}
}

type LatencyStats struct {
	Count int
	Min   time.Duration
	Max   time.Duration
	Avg   time.Duration
	P50   time.Duration
	P95   time.Duration
	P99   time.Duration
}

// ToMap renders durations as fractional milliseconds.
func (s LatencyStats) ToMap() map[string]any {
	ms := func(d time.Duration) float64 { return float64(d.Microseconds()) / 1000 }
	return map[string]any{
		"count":  s.Count,
		"min_ms": ms(s.Min),
		"max_ms": ms(s.Max),
		"avg_ms": ms(s.Avg),
		"p50_ms": ms(s.P50),
		"p95_ms": ms(s.P95),
		"p99_ms": ms(s.P99),
	}
}

// LatencyRegistry manages one tracker per route.
type LatencyRegistry struct {
	mu       sync.RWMutex
	trackers map[string]*LatencyTracker
	window   int
}

func NewLatencyRegistry(windowSize int) *LatencyRegistry {
	return &LatencyRegistry{
		trackers: make(map[string]*LatencyTracker),
		window:   windowSize,
	}
}

func (r *LatencyRegistry) Record(endpoint string, d time.Duration) {
	r.mu.RLock()
	tracker, ok := r.trackers[endpoint]
	r.mu.RUnlock()

	if !ok {
		r.mu.Lock()
		// Double-check after acquiring write lock
		if tracker, ok = r.trackers[endpoint]; !ok {
			tracker = NewLatencyTracker(r.window)
			r.trackers[endpoint] = tracker
		}
		r.mu.Unlock()
	}

	tracker.Record(d)
}

func (r *LatencyRegistry) Stats(endpoint string) LatencyStats {
	r.mu.RLock()
	tracker, ok := r.trackers[endpoint]
	r.mu.RUnlock()

	if !ok {
		return LatencyStats{}
	}
	return tracker.Stats()
}

func (r *LatencyRegistry) AllStats() map[string]LatencyStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string]LatencyStats, len(r.trackers))
	for name, tracker := range r.trackers {
		result[name] = tracker.Stats()
	}
	return result
}
