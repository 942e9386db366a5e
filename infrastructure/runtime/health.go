package runtime

import (
	"os"
	"time"

	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// HealthReport is a point-in-time snapshot of process resource usage, meant
// for an operator-facing health endpoint rather than a metrics pipeline.
type HealthReport struct {
	PID                     int32     `json:"pid"`
	UptimeSeconds           float64   `json:"uptime_seconds"`
	CPUPercent              float64   `json:"cpu_percent"`
	MemoryRSSBytes          uint64    `json:"memory_rss_bytes"`
	SystemMemoryUsedPercent float64   `json:"system_memory_used_percent"`
	CheckedAt               time.Time `json:"checked_at"`
}

var processStartedAt = time.Now()

// ReportHealth samples the current process's CPU and memory usage alongside
// system-wide memory pressure. It never returns an error: a sampling failure
// just leaves the corresponding field at its zero value, since a health
// endpoint should degrade gracefully rather than fail the whole response.
func ReportHealth() HealthReport {
	report := HealthReport{
		PID:           int32(os.Getpid()),
		UptimeSeconds: time.Since(processStartedAt).Seconds(),
		CheckedAt:     time.Now().UTC(),
	}

	if proc, err := process.NewProcess(report.PID); err == nil {
		if cpuPct, err := proc.CPUPercent(); err == nil {
			report.CPUPercent = cpuPct
		}
		if memInfo, err := proc.MemoryInfo(); err == nil && memInfo != nil {
			report.MemoryRSSBytes = memInfo.RSS
		}
	}

	if vm, err := mem.VirtualMemory(); err == nil && vm != nil {
		report.SystemMemoryUsedPercent = vm.UsedPercent
	}

	return report
}
