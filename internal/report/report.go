// Package report appends run records to a CSV file and describes the host
// that produced them.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"sync"

	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/host"
	"github.com/shirou/gopsutil/mem"

	"github.com/hungkimanh/gatest/internal/cvrp"
)

// Header lists the CSV columns in order.
var Header = []string{
	"instance", "vehicles", "population", "generations", "run", "seed",
	"best_cost", "optimal", "gap_percent", "feasible", "duration_ms", "host", "cpu",
}

// SysInfo identifies the machine a run executed on.
type SysInfo struct {
	Host   string `json:"host"`
	OS     string `json:"os"`
	CPU    string `json:"cpu"`
	Cores  int    `json:"cores"`
	Memory string `json:"memory"`
}

var (
	sysOnce sync.Once
	sysInfo SysInfo
)

// System returns the host description. Lookups that fail leave their field
// empty; the result is computed once per process.
func System() SysInfo {
	sysOnce.Do(func() {
		if h, err := host.Info(); err == nil {
			sysInfo.Host = h.Hostname
			sysInfo.OS = h.Platform
		}
		if c, err := cpu.Info(); err == nil && len(c) > 0 {
			sysInfo.CPU = c[0].ModelName
		}
		if n, err := cpu.Counts(true); err == nil {
			sysInfo.Cores = n
		}
		if vm, err := mem.VirtualMemory(); err == nil {
			sysInfo.Memory = fmt.Sprintf("%d GB", vm.Total/1024/1024/1024)
		}
	})
	return sysInfo
}

// Record is one CSV row.
type Record struct {
	Instance    string
	Vehicles    int
	Population  int
	Generations int
	Run         int
	Seed        int64
	BestCost    float64
	// Optimal is -1 when unknown.
	Optimal    float64
	Feasible   bool
	DurationMS int64
	Host       string
	CPU        string
}

// Gap returns the relative distance to the optimum in percent, rounded to
// two decimals, or -1 when the optimum is unknown.
func (r Record) Gap() float64 {
	return Gap(r.BestCost, r.Optimal)
}

// Gap computes (best-optimal)/optimal*100. A non-positive optimal means
// unknown and yields -1.
func Gap(best, optimal float64) float64 {
	if optimal <= 0 {
		return -1
	}
	return cvrp.Round2((best - optimal) / optimal * 100)
}

// FromResult builds a record for run number run of res. optimal <= 0 marks
// the optimum as unknown.
func FromResult(res *cvrp.Result, run int, optimal float64, sys SysInfo) Record {
	if optimal <= 0 || math.IsNaN(optimal) {
		optimal = -1
	}
	return Record{
		Instance:    res.Instance,
		Vehicles:    res.Vehicles,
		Population:  res.PopulationSize,
		Generations: res.Generations,
		Run:         run,
		Seed:        res.Seed,
		BestCost:    res.Best.Cost,
		Optimal:     optimal,
		Feasible:    res.Best.Feasible,
		DurationMS:  res.Duration.Milliseconds(),
		Host:        sys.Host,
		CPU:         sys.CPU,
	}
}

func (r Record) row() []string {
	return []string{
		r.Instance,
		strconv.Itoa(r.Vehicles),
		strconv.Itoa(r.Population),
		strconv.Itoa(r.Generations),
		strconv.Itoa(r.Run),
		strconv.FormatInt(r.Seed, 10),
		strconv.FormatFloat(r.BestCost, 'f', 2, 64),
		strconv.FormatFloat(r.Optimal, 'f', 2, 64),
		strconv.FormatFloat(r.Gap(), 'f', 2, 64),
		strconv.FormatBool(r.Feasible),
		strconv.FormatInt(r.DurationMS, 10),
		r.Host,
		r.CPU,
	}
}

// Write emits records as CSV, preceded by the header when header is true.
func Write(w io.Writer, header bool, recs ...Record) error {
	cw := csv.NewWriter(w)
	if header {
		if err := cw.Write(Header); err != nil {
			return fmt.Errorf("report: write header: %w", err)
		}
	}
	for _, r := range recs {
		if err := cw.Write(r.row()); err != nil {
			return fmt.Errorf("report: write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Append adds records to the CSV file at path, creating it with a header
// when it does not exist or is empty.
func Append(path string, recs ...Record) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("report: open %q: %w", path, err)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("report: stat %q: %w", path, err)
	}
	if err := Write(f, st.Size() == 0, recs...); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
