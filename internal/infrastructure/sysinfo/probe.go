package sysinfo

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"

	"bot-runner/internal/application/port/output"
	"bot-runner/internal/domain/entity"
)

var _ output.ResourceProbePort = (*Probe)(nil)

// Probe — точечный замер CPU/RAM/GPU. Замер CPU блокируется на интервал
// сэмплирования (секунда). GPU читается через nvidia-smi; отсутствие
// утилиты или устройств даёт пустой список.
type Probe struct {
	cpuInterval time.Duration
	gpuQuery    func(ctx context.Context) (string, error)
}

func NewProbe() *Probe {
	return &Probe{
		cpuInterval: time.Second,
		gpuQuery:    queryNvidiaSMI,
	}
}

func (p *Probe) Snapshot(ctx context.Context) (entity.ResourceSnapshot, error) {
	percents, err := cpu.PercentWithContext(ctx, p.cpuInterval, false)
	if err != nil {
		return entity.ResourceSnapshot{}, fmt.Errorf("sample cpu: %w", err)
	}
	var cpuPercent float64
	if len(percents) > 0 {
		cpuPercent = percents[0]
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return entity.ResourceSnapshot{}, fmt.Errorf("read virtual memory: %w", err)
	}

	snapshot := entity.ResourceSnapshot{
		CPUPercent: cpuPercent,
		RAMPercent: vm.UsedPercent,
		RAMUsedMB:  float64(vm.Used) / (1024 * 1024),
	}

	out, err := p.gpuQuery(ctx)
	if err == nil {
		snapshot.GPUs = parseGPUStats(out)
	}

	return snapshot, nil
}

func queryNvidiaSMI(ctx context.Context) (string, error) {
	cmd := exec.CommandContext(ctx, "nvidia-smi",
		"--query-gpu=index,name,utilization.gpu,memory.used,memory.total",
		"--format=csv,noheader,nounits")
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("nvidia-smi: %w", err)
	}
	return string(out), nil
}

// parseGPUStats разбирает CSV-вывод nvidia-smi. Некорректные строки
// пропускаются.
func parseGPUStats(out string) []entity.GPUStat {
	var stats []entity.GPUStat

	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		fields := strings.Split(line, ",")
		if len(fields) != 5 {
			continue
		}
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}

		id, err := strconv.Atoi(fields[0])
		if err != nil {
			continue
		}
		util, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			continue
		}
		memUsed, err := strconv.ParseFloat(fields[3], 64)
		if err != nil {
			continue
		}
		memTotal, err := strconv.ParseFloat(fields[4], 64)
		if err != nil {
			continue
		}

		stats = append(stats, entity.GPUStat{
			ID:          id,
			Name:        fields[1],
			Load:        util / 100,
			MemoryUsed:  memUsed,
			MemoryTotal: memTotal,
		})
	}

	return stats
}
