// Package stats exposes runtime diagnostics of a long mining or broadcast
// session: periodic memory usage logging and a dump of the process's
// Prometheus metrics on shutdown.
package stats

import (
	"bufio"
	"context"
	"os"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
)

const (
	BYTE = 1 << (10 * iota)
	KILOBYTE
	MEGABYTE
	GIGABYTE
)

// EnableMemoryStatistics starts a goroutine that periodically logs memory
// usage and goroutine count until the context is done, then dumps the
// registered Prometheus metrics to the given file.
func EnableMemoryStatistics(
	ctx context.Context, interval time.Duration, dumpPath string,
) {
	ticker := time.NewTicker(interval)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				LogMemoryStatistics()
				LogNumOfRoutines()
			case <-ctx.Done():
				if err := DumpPrometheusDefaults(dumpPath); err != nil {
					log.Warnf("stats: failed to dump metrics: %v", err)
				}
				return
			}
		}
	}()
}

func toGigabytes(bytes uint64) float64 {
	return float64(bytes) / GIGABYTE
}

// LogMemoryStatistics logs allocation counters of the go runtime.
func LogMemoryStatistics() {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	log.Infof(
		"total allocated: %.3fGB, heap allocated: %.3fGB, "+
			"allocated objects: %v, freed objects: %v",
		toGigabytes(memStats.TotalAlloc),
		toGigabytes(memStats.HeapAlloc),
		memStats.Mallocs,
		memStats.Frees,
	)
}

// LogNumOfRoutines logs the number of goroutines currently running.
func LogNumOfRoutines() {
	log.Infof("goroutines: %v", runtime.NumGoroutine())
}

// DumpPrometheusDefaults appends the current state of all registered
// Prometheus metrics to the file at the given path.
func DumpPrometheusDefaults(path string) error {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	metricFamilies, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		return err
	}
	for _, mf := range metricFamilies {
		if _, err := writer.WriteString(mf.String() + "\n"); err != nil {
			return err
		}
	}

	return writer.Flush()
}
