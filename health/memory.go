package health

import (
	"context"
	"fmt"
	"runtime"
)

// MemoryCheckerConfig configures the memory health checker.
type MemoryCheckerConfig struct {
	// MaxHeapBytes is the heap budget. Zero disables the check, which then
	// always reports healthy.
	MaxHeapBytes uint64

	// WarningThreshold is the fraction of MaxHeapBytes that degrades.
	// Default: 0.8
	WarningThreshold float64

	// CriticalThreshold is the fraction of MaxHeapBytes that fails readiness.
	// Default: 0.95
	CriticalThreshold float64
}

// MemoryChecker compares live heap against a configured budget. The
// household store is in-memory, so an unbounded heap is the gateway's
// main resource risk.
type MemoryChecker struct {
	config   MemoryCheckerConfig
	readHeap func() (heap uint64, goroutines int)
}

// NewMemoryChecker creates a new memory health checker.
func NewMemoryChecker(config MemoryCheckerConfig) *MemoryChecker {
	if config.WarningThreshold <= 0 || config.WarningThreshold >= 1 {
		config.WarningThreshold = 0.8
	}
	if config.CriticalThreshold <= config.WarningThreshold || config.CriticalThreshold > 1 {
		config.CriticalThreshold = max(0.95, config.WarningThreshold)
	}
	return &MemoryChecker{config: config, readHeap: readRuntimeHeap}
}

func readRuntimeHeap() (uint64, int) {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	return stats.HeapAlloc, runtime.NumGoroutine()
}

// Name returns "memory".
func (m *MemoryChecker) Name() string {
	return "memory"
}

// Check reports heap usage relative to the budget.
func (m *MemoryChecker) Check(ctx context.Context) Result {
	if err := ctx.Err(); err != nil {
		return Unhealthy("context cancelled", err)
	}

	heap, goroutines := m.readHeap()
	details := map[string]any{
		"heap_bytes": heap,
		"goroutines": goroutines,
	}
	if m.config.MaxHeapBytes == 0 {
		return Healthy("no heap budget configured").WithDetails(details)
	}

	ratio := float64(heap) / float64(m.config.MaxHeapBytes)
	details["max_heap_bytes"] = m.config.MaxHeapBytes
	details["usage_percent"] = ratio * 100

	switch {
	case ratio >= m.config.CriticalThreshold:
		return Unhealthy(fmt.Sprintf("heap usage critical: %.1f%%", ratio*100), ErrCheckFailed).WithDetails(details)
	case ratio >= m.config.WarningThreshold:
		return Degraded(fmt.Sprintf("heap usage high: %.1f%%", ratio*100)).WithDetails(details)
	default:
		return Healthy(fmt.Sprintf("heap usage normal: %.1f%%", ratio*100)).WithDetails(details)
	}
}

var _ Checker = (*MemoryChecker)(nil)
