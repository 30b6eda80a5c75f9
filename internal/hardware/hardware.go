// Package hardware rates the host so concurrency limits and refresh caps
// can scale with the machine.
package hardware

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
)

// Rater reports a host performance rating in [0, 1].
type Rater interface {
	PerformanceRating() float64
}

// Static is a fixed rating, used when probing is undesirable.
type Static float64

// PerformanceRating returns the fixed rating.
func (s Static) PerformanceRating() float64 { return clamp(float64(s)) }

const (
	referenceCores  = 16
	referenceMemory = 16 << 30
	cpuWeight       = 0.6
	memoryWeight    = 0.4
	fallbackRating  = 0.5
	probeTimeout    = 2 * time.Second
)

// Host probes CPU and memory once and caches the rating.
type Host struct {
	once   sync.Once
	rating float64
	probe  func(ctx context.Context) (cores int, memory uint64, err error)
}

// NewHost returns a Rater backed by gopsutil.
func NewHost() *Host {
	return &Host{probe: probeHost}
}

// PerformanceRating returns the cached rating, probing on first use. Probe
// failures yield a middle-of-the-road rating.
func (h *Host) PerformanceRating() float64 {
	h.once.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
		defer cancel()
		cores, memory, err := h.probe(ctx)
		if err != nil {
			h.rating = fallbackRating
			return
		}
		h.rating = Rate(cores, memory)
	})
	return h.rating
}

// Rate combines logical core count and total memory into a rating.
func Rate(cores int, memory uint64) float64 {
	c := math.Min(float64(cores)/referenceCores, 1)
	m := math.Min(float64(memory)/referenceMemory, 1)
	return clamp(c*cpuWeight + m*memoryWeight)
}

// LowEnd reports whether a rating describes a weak device.
func LowEnd(rating float64) bool {
	return rating < 0.35
}

func probeHost(ctx context.Context) (int, uint64, error) {
	cores, err := cpu.CountsWithContext(ctx, true)
	if err != nil {
		return 0, 0, err
	}
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return 0, 0, err
	}
	return cores, vm.Total, nil
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
