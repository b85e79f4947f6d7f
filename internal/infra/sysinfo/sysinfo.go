// Package sysinfo reports host CPU and memory utilisation from procfs.
package sysinfo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/procfs"
)

// DefaultSampleWindow is the gap between the two CPU samples.
const DefaultSampleWindow = time.Second

// ErrUnavailable is returned when procfs lacks a required field.
var ErrUnavailable = errors.New("system statistics unavailable")

// Stats is one utilisation reading, in percent.
type Stats struct {
	CPUPercent    float64
	MemoryPercent float64
}

// Sampler reads utilisation from a procfs mount.
type Sampler struct {
	fs     procfs.FS
	window time.Duration
	// wait is swapped in tests.
	wait func(ctx context.Context, d time.Duration) error
}

// NewSampler uses the default /proc mount.
func NewSampler() (*Sampler, error) {
	fs, err := procfs.NewDefaultFS()
	if err != nil {
		return nil, fmt.Errorf("open procfs: %w", err)
	}
	return newSampler(fs, DefaultSampleWindow), nil
}

// NewSamplerAt uses a procfs tree mounted at mountPoint.
func NewSamplerAt(mountPoint string, window time.Duration) (*Sampler, error) {
	fs, err := procfs.NewFS(mountPoint)
	if err != nil {
		return nil, fmt.Errorf("open procfs at %s: %w", mountPoint, err)
	}
	return newSampler(fs, window), nil
}

func newSampler(fs procfs.FS, window time.Duration) *Sampler {
	return &Sampler{fs: fs, window: window, wait: sleepContext}
}

// Sample blocks for the sample window and returns CPU utilisation over it
// together with current memory utilisation.
func (s *Sampler) Sample(ctx context.Context) (Stats, error) {
	before, err := s.fs.Stat()
	if err != nil {
		return Stats{}, fmt.Errorf("read cpu stat: %w", err)
	}
	if err := s.wait(ctx, s.window); err != nil {
		return Stats{}, err
	}
	after, err := s.fs.Stat()
	if err != nil {
		return Stats{}, fmt.Errorf("read cpu stat: %w", err)
	}

	mem, err := s.fs.Meminfo()
	if err != nil {
		return Stats{}, fmt.Errorf("read meminfo: %w", err)
	}
	memPct, err := memoryPercent(mem)
	if err != nil {
		return Stats{}, err
	}

	return Stats{
		CPUPercent:    cpuPercent(before.CPUTotal, after.CPUTotal),
		MemoryPercent: memPct,
	}, nil
}

// Usage returns CPU and memory utilisation in percent.
func (s *Sampler) Usage(ctx context.Context) (cpu, memory float64, err error) {
	st, err := s.Sample(ctx)
	if err != nil {
		return 0, 0, err
	}
	return st.CPUPercent, st.MemoryPercent, nil
}

func busyAndTotal(c procfs.CPUStat) (busy, total float64) {
	idle := c.Idle + c.Iowait
	total = c.User + c.Nice + c.System + c.Idle + c.Iowait + c.IRQ + c.SoftIRQ + c.Steal
	return total - idle, total
}

func cpuPercent(before, after procfs.CPUStat) float64 {
	b0, t0 := busyAndTotal(before)
	b1, t1 := busyAndTotal(after)
	dt := t1 - t0
	if dt <= 0 {
		return 0
	}
	pct := (b1 - b0) / dt * 100
	switch {
	case pct < 0:
		return 0
	case pct > 100:
		return 100
	}
	return pct
}

func memoryPercent(m procfs.Meminfo) (float64, error) {
	if m.MemTotal == nil || *m.MemTotal == 0 {
		return 0, fmt.Errorf("%w: MemTotal missing", ErrUnavailable)
	}
	total := float64(*m.MemTotal)

	var available float64
	switch {
	case m.MemAvailable != nil:
		available = float64(*m.MemAvailable)
	case m.MemFree != nil:
		// kernels before 3.14 have no MemAvailable
		available = float64(*m.MemFree)
		if m.Buffers != nil {
			available += float64(*m.Buffers)
		}
		if m.Cached != nil {
			available += float64(*m.Cached)
		}
	default:
		return 0, fmt.Errorf("%w: MemAvailable missing", ErrUnavailable)
	}
	return (total - available) / total * 100, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
