package workers

import (
	"chat-relay/contract"
	"context"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/process"
)

// StatsWorker periodically logs a health line: online users, goroutines, heap
// and process RSS/CPU. Purely observational.
type StatsWorker struct {
	log      *slog.Logger
	registry contract.IRegistry
	interval time.Duration
}

func NewStatsWorker(log *slog.Logger, registry contract.IRegistry, interval time.Duration) *StatsWorker {
	return &StatsWorker{log: log, registry: registry, interval: interval}
}

func (w *StatsWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.report(p)
		}
	}
}

func (w *StatsWorker) report(p *process.Process) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	attrs := []any{
		"online_users", len(w.registry.Members()),
		"goroutines", runtime.NumGoroutine(),
		"heap_alloc_mb", m.Alloc / 1024 / 1024,
		"num_gc", m.NumGC,
	}

	if memInfo, err := p.MemoryInfo(); err == nil {
		attrs = append(attrs, "rss_mb", memInfo.RSS/1024/1024)
	}
	if cpuPercent, err := p.CPUPercent(); err == nil {
		attrs = append(attrs, "cpu_percent", cpuPercent)
	}

	w.log.Info("Relay stats", attrs...)
}
