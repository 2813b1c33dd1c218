// Package stats keeps per-connection call statistics for the console.
package stats

import (
	"math"
	"sort"
	"sync"
	"time"
)

// TailLatency holds p50, p95, p99, and max latency values.
type TailLatency struct {
	P50, P95, P99, Max time.Duration
}

// CalculateTailLatency computes tail latency percentiles (P50, P95, P99, Max)
// from samples using the nearest-rank method. With few samples P95 and P99
// equal Max. The input slice is not modified.
func CalculateTailLatency(latencies []time.Duration) TailLatency {
	if len(latencies) == 0 {
		return TailLatency{}
	}

	sorted := make([]time.Duration, len(latencies))
	copy(sorted, latencies)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	return TailLatency{
		P50: Percentile(sorted, 0.50),
		P95: Percentile(sorted, 0.95),
		P99: Percentile(sorted, 0.99),
		Max: sorted[len(sorted)-1],
	}
}

// Percentile returns the value at percentile p (0..1) of an ascending slice.
// Formula: index = ceil(n * p) - 1, clamped to [0, n-1].
func Percentile(sorted []time.Duration, p float64) time.Duration {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	index := int(math.Ceil(float64(n)*p)) - 1
	if index >= n {
		index = n - 1
	}
	if index < 0 {
		index = 0
	}
	return sorted[index]
}

// maxSamples bounds the latency history kept by a Recorder.
const maxSamples = 1024

// Recorder accumulates the outcome of calls made through one client.
// The zero value is ready to use.
type Recorder struct {
	mu       sync.Mutex
	calls    int
	failures int
	samples  []time.Duration
	next     int
}

// Observe records one call.
func (r *Recorder) Observe(latency time.Duration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls++
	if err != nil {
		r.failures++
	}
	if len(r.samples) < maxSamples {
		r.samples = append(r.samples, latency)
		return
	}
	r.samples[r.next] = latency
	r.next = (r.next + 1) % maxSamples
}

// Summary is a point-in-time view of a Recorder.
type Summary struct {
	Calls    int
	Failures int
	Latency  TailLatency
}

// Summary returns the counters and tail latency of the retained samples.
func (r *Recorder) Summary() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()

	return Summary{
		Calls:    r.calls,
		Failures: r.failures,
		Latency:  CalculateTailLatency(r.samples),
	}
}
