package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hungkimanh/gatest/internal/config"
	"github.com/hungkimanh/gatest/internal/cvrp"
	"github.com/hungkimanh/gatest/internal/report"
)

func lineInstance() *cvrp.Instance {
	return &cvrp.Instance{
		Name:     "line",
		N:        4,
		Capacity: 10,
		Depot:    1,
		Coords:   []cvrp.Point{{}, {X: 0, Y: 0}, {X: 0, Y: 1}, {X: 0, Y: 2}, {X: 0, Y: 3}},
		Demand:   []int{0, 0, 3, 4, 5},
	}
}

func TestRunWritesReport(t *testing.T) {
	cfg := config.Default()
	cfg.Solver.Runs = 3
	cfg.Solver.Population = 5
	cfg.Solver.Seed = 11
	cfg.Optima["line"] = 8
	cfg.ReportPath = filepath.Join(t.TempDir(), "runs.csv")

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), cfg, lineInstance(), true, &out))

	text := out.String()
	assert.Equal(t, 3, strings.Count(text, "best routes:"))
	assert.Equal(t, 15, strings.Count(text, "  #"))
	assert.Contains(t, text, "run=2 seed=13")

	f, err := os.Open(cfg.ReportPath)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, report.Header, rows[0])
	assert.Equal(t, "8.00", rows[1][7])
}

func TestRunStdoutReport(t *testing.T) {
	cfg := config.Default()
	cfg.Solver.Population = 4
	cfg.ReportPath = "-"

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), cfg, lineInstance(), false, &out))
	assert.Contains(t, out.String(), strings.Join(report.Header, ","))
	assert.NotContains(t, out.String(), "  #")
}

func TestRunCanceled(t *testing.T) {
	cfg := config.Default()
	cfg.ReportPath = ""
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := run(ctx, cfg, lineInstance(), false, &bytes.Buffer{})
	require.ErrorIs(t, err, context.Canceled)
}

func TestOverrideSolver(t *testing.T) {
	s := config.Default().Solver
	overrideSolver(&s, -1, 0, -1, 0, 0, 0, false)
	assert.Equal(t, config.Default().Solver, s)

	overrideSolver(&s, 3, 20, 0, 4, 9, 2, true)
	assert.Equal(t, config.Solver{Vehicles: 3, Population: 20, Generations: 0, Runs: 4, Seed: 9, Workers: 2, PreferFeasible: true}, s)
}

func TestFormatRoutes(t *testing.T) {
	assert.Equal(t, "1-2-3-1 | 1-4-1", formatRoutes(cvrp.RouteSet{{1, 2, 3, 1}, {1, 4, 1}}))
	assert.Equal(t, "", formatRoutes(nil))
}
