package observability

import (
	"os"
	"runtime"

	"github.com/shirou/gopsutil/process"
)

// ProcessStats carries point-in-time self metrics of the server process.
type ProcessStats struct {
	PID        int     `json:"pid"`
	RSSBytes   uint64  `json:"rss_bytes"`
	CPUPercent float64 `json:"cpu_percent"`
	Status     string  `json:"status"`
	AllocMb    uint64  `json:"alloc_mb"`
	NumGC      uint32  `json:"num_gc"`
	Goroutines int     `json:"goroutines"`
}

// Collector samples process health through gopsutil plus the Go runtime.
type Collector struct {
	proc *process.Process
}

func NewCollector() (*Collector, error) {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, err
	}
	return &Collector{proc: p}, nil
}

// Sample retrieves technical metrics (memory, CPU and OS status) for the
// running process.
func (c *Collector) Sample() (ProcessStats, error) {
	memInfo, err := c.proc.MemoryInfo()
	if err != nil {
		return ProcessStats{}, err
	}
	cpuPercent, err := c.proc.CPUPercent()
	if err != nil {
		return ProcessStats{}, err
	}
	status, err := c.proc.Status()
	if err != nil {
		return ProcessStats{}, err
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return ProcessStats{
		PID:        os.Getpid(),
		RSSBytes:   memInfo.RSS,
		CPUPercent: cpuPercent,
		Status:     status,
		AllocMb:    m.Alloc / 1024 / 1024,
		NumGC:      m.NumGC,
		Goroutines: runtime.NumGoroutine(),
	}, nil
}
