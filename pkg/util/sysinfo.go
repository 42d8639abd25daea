// Package util provides host-capacity probing used to size the worker pool
// and conversion batches.
package util

import (
	"log/slog"
	"runtime"

	"github.com/shirou/gopsutil/v4/mem"
)

const (
	// minWorkers and maxWorkers bound the conversion worker pool. The
	// external converter is the bottleneck; beyond a handful of parallel
	// instances it contends with itself.
	minWorkers = 2
	maxWorkers = 4

	// defaultBatchSize applies when system memory cannot be determined.
	defaultBatchSize = 20
)

const gib = 1 << 30

// OptimalWorkers returns the worker count for the conversion pool: half the
// logical CPUs, clamped to [minWorkers, maxWorkers].
func OptimalWorkers() int {
	n := runtime.NumCPU() / 2
	if n < minWorkers {
		n = minWorkers
	}
	if n > maxWorkers {
		n = maxWorkers
	}
	return n
}

// OptimalBatchSize returns how many documents to convert between converter
// resets, tiered by total system memory. Larger batches amortize the reset
// cost; smaller ones keep the external converter's footprint in check on
// constrained hosts.
func OptimalBatchSize(logger *slog.Logger) int {
	vm, err := mem.VirtualMemory()
	if err != nil {
		logger.Warn("Could not determine system memory, using default batch size",
			slog.Int("batchSize", defaultBatchSize), slog.Any("error", err))
		return defaultBatchSize
	}

	var size int
	switch {
	case vm.Total < 4*gib:
		size = 10
	case vm.Total < 8*gib:
		size = 20
	case vm.Total < 16*gib:
		size = 50
	default:
		size = 100
	}
	logger.Debug("Sized conversion batches from system memory",
		slog.Uint64("totalBytes", vm.Total), slog.Int("batchSize", size))
	return size
}
