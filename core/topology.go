package core

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/shirou/gopsutil/cpu"
	"go.uber.org/automaxprocs/maxprocs"
)

var adjustMaxProcs sync.Once

// defaultWorkerCount is GOMAXPROCS after adjusting it to the container CPU quota.
func defaultWorkerCount(logger Logger) int {
	adjustMaxProcs.Do(func() {
		_, err := maxprocs.Set(maxprocs.Logger(func(format string, args ...any) {
			logger.Debug(fmt.Sprintf(format, args...))
		}))
		if err != nil {
			logger.Warn("failed to adjust GOMAXPROCS to CPU quota", F("error", err))
		}
	})
	return runtime.GOMAXPROCS(0)
}

// detectRegions counts distinct CPU packages. Any failure yields a single region.
func detectRegions() int {
	infos, err := cpu.Info()
	if err != nil || len(infos) == 0 {
		return 1
	}
	packages := make(map[string]struct{}, len(infos))
	for _, info := range infos {
		packages[info.PhysicalID] = struct{}{}
	}
	return len(packages)
}

// regionOf assigns worker i of n to one of regions contiguous blocks.
func regionOf(i, n, regions int) int {
	return i * regions / n
}

func cpuForWorker(i int) int {
	return i % runtime.NumCPU()
}
