package profiling

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/atomic"
)

// Lightweight per-frame CPU profiler plus monotonic counters.

var (
	mu          sync.Mutex
	frameTotals = make(map[string]time.Duration)

	countersMu sync.RWMutex
	counters   = make(map[string]*atomic.Int64)
)

// Track returns a stop function that records the elapsed time under the given name.
// Usage: defer profiling.Track("subsystem.Operation")()
func Track(name string) func() {
	start := time.Now()
	return func() {
		d := time.Since(start)
		mu.Lock()
		frameTotals[name] += d
		mu.Unlock()
	}
}

// ResetFrame clears current per-frame totals. Call at the start of each frame.
func ResetFrame() {
	mu.Lock()
	clear(frameTotals)
	mu.Unlock()
}

// Snapshot returns a copy of current per-frame totals.
func Snapshot() map[string]time.Duration {
	mu.Lock()
	defer mu.Unlock()
	out := make(map[string]time.Duration, len(frameTotals))
	for k, v := range frameTotals {
		out[k] = v
	}
	return out
}

// TopN formats top N durations from the current frame totals.
// Example: "world.ProcessQueue:4.2ms, meshing.Build:2.1ms"
func TopN(n int) string {
	ss := Snapshot()
	type pair struct {
		name string
		dur  time.Duration
	}
	list := make([]pair, 0, len(ss))
	for k, v := range ss {
		list = append(list, pair{name: k, dur: v})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].dur > list[j].dur })
	n = min(n, len(list))
	parts := make([]string, 0, n)
	for i := 0; i < n; i++ {
		ms := float64(list[i].dur.Microseconds()) / 1000.0
		parts = append(parts, fmt.Sprintf("%s:%.1fms", list[i].name, ms))
	}
	return strings.Join(parts, ", ")
}

func counter(name string) *atomic.Int64 {
	countersMu.RLock()
	c, ok := counters[name]
	countersMu.RUnlock()
	if ok {
		return c
	}
	countersMu.Lock()
	defer countersMu.Unlock()
	if c, ok := counters[name]; ok {
		return c
	}
	c = atomic.NewInt64(0)
	counters[name] = c
	return c
}

// Count adds delta to the named counter.
func Count(name string, delta int64) {
	counter(name).Add(delta)
}

// Counter returns the current value of the named counter.
func Counter(name string) int64 {
	return counter(name).Load()
}

// Counters returns a copy of every counter.
func Counters() map[string]int64 {
	countersMu.RLock()
	defer countersMu.RUnlock()
	out := make(map[string]int64, len(counters))
	for k, v := range counters {
		out[k] = v.Load()
	}
	return out
}
