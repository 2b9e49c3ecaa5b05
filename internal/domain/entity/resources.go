package entity

import (
	"fmt"
	"strings"
)

const NoGPUSentinel = "No GPU found."

type GPUStat struct {
	ID          int
	Name        string
	Load        float64 // доля 0..1
	MemoryUsed  float64 // MB
	MemoryTotal float64 // MB
}

func (g GPUStat) String() string {
	return fmt.Sprintf("GPU %d: %s, Load: %.1f%%, Memory: %.0fMB/%.0fMB",
		g.ID, g.Name, g.Load*100, g.MemoryUsed, g.MemoryTotal)
}

// ResourceSnapshot — точечный срез загрузки CPU/RAM/GPU.
type ResourceSnapshot struct {
	CPUPercent float64
	RAMPercent float64
	RAMUsedMB  float64
	GPUs       []GPUStat
}

func (s ResourceSnapshot) GPUUsage() string {
	if len(s.GPUs) == 0 {
		return NoGPUSentinel
	}
	stats := make([]string, 0, len(s.GPUs))
	for _, gpu := range s.GPUs {
		stats = append(stats, gpu.String())
	}
	return strings.Join(stats, "; ")
}

func (s ResourceSnapshot) String() string {
	return fmt.Sprintf("CPU Usage: %.1f%%, RAM Usage: %.1f%% (%.1f MB), GPU Usage: %s",
		s.CPUPercent, s.RAMPercent, s.RAMUsedMB, s.GPUUsage())
}
