// Command gatsp builds, repairs and ranks random populations for a TSPLIB
// CVRP instance and appends one CSV record per run.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/hungkimanh/gatest/internal/config"
	"github.com/hungkimanh/gatest/internal/cvrp"
	"github.com/hungkimanh/gatest/internal/report"
	"github.com/hungkimanh/gatest/internal/tsplib"
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("gatsp: ")

	var (
		cfgPath     = flag.String("config", "", "path to YAML config file")
		instance    = flag.String("instance", "", "path to a TSPLIB CVRP instance (or first argument)")
		vehicles    = flag.Int("vehicles", -1, "number of vehicles (default: instance hint or ceil(demand/capacity))")
		population  = flag.Int("population", 0, "population size")
		generations = flag.Int("generations", -1, "generations recorded in the report")
		runs        = flag.Int("runs", 0, "number of runs")
		seed        = flag.Int64("seed", 0, "base seed; run i uses seed+i (0 = clock)")
		workers     = flag.Int("workers", 0, "parallel workers for population construction")
		preferFeas  = flag.Bool("prefer-feasible", false, "rank feasible individuals before cheaper infeasible ones")
		csvPath     = flag.String("csv", "", "CSV report path (empty = config reportPath, - = stdout)")
		verbose     = flag.Bool("v", false, "print every individual and its cost")
	)
	flag.Parse()
	if *instance == "" && flag.NArg() > 0 {
		*instance = flag.Arg(0)
	}
	if *instance == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatal(err)
	}
	overrideSolver(&cfg.Solver, *vehicles, *population, *generations, *runs, *seed, *workers, *preferFeas)
	if *csvPath != "" {
		cfg.ReportPath = *csvPath
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	inst, err := tsplib.Load(*instance)
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := run(ctx, cfg, inst, *verbose, os.Stdout); err != nil {
		log.Fatal(err)
	}
}

func overrideSolver(s *config.Solver, vehicles, population, generations, runs int, seed int64, workers int, preferFeasible bool) {
	if vehicles >= 0 {
		s.Vehicles = vehicles
	}
	if population > 0 {
		s.Population = population
	}
	if generations >= 0 {
		s.Generations = generations
	}
	if runs > 0 {
		s.Runs = runs
	}
	if seed != 0 {
		s.Seed = seed
	}
	if workers > 0 {
		s.Workers = workers
	}
	if preferFeasible {
		s.PreferFeasible = true
	}
}

func run(ctx context.Context, cfg config.Config, inst *cvrp.Instance, verbose bool, out io.Writer) error {
	optimal, ok := cfg.Optimal(inst)
	if !ok {
		optimal = -1
	}
	sys := report.System()
	fmt.Fprintf(out, "instance=%s n=%d capacity=%d optimal=%.2f host=%s cpu=%q\n",
		inst.Name, inst.N, inst.Capacity, optimal, sys.Host, sys.CPU)

	records := make([]report.Record, 0, cfg.Solver.Runs)
	for i := 0; i < cfg.Solver.Runs; i++ {
		solver := cvrp.NewSolver(cfg.Solver.Options(int64(i)))
		res, err := solver.Run(ctx, inst)
		if err != nil {
			return fmt.Errorf("run %d: %w", i, err)
		}
		if verbose {
			printPopulation(out, res)
		}
		rec := report.FromResult(res, i, optimal, sys)
		fmt.Fprintf(out, "run=%d seed=%d vehicles=%d best_index=%d best_cost=%.2f feasible=%t feasible_count=%d/%d gap=%.2f%% dur=%dms\n",
			i, res.Seed, res.Vehicles, res.Best.Index, res.Best.Cost, res.Best.Feasible,
			res.Best.FeasibleCount(), len(res.Population), rec.Gap(), rec.DurationMS)
		fmt.Fprintf(out, "best routes: %s\n", formatRoutes(res.Best.Routes))
		records = append(records, rec)
	}

	switch cfg.ReportPath {
	case "":
		return nil
	case "-":
		return report.Write(out, true, records...)
	default:
		return report.Append(cfg.ReportPath, records...)
	}
}

func printPopulation(out io.Writer, res *cvrp.Result) {
	for i, seq := range res.Population {
		sc := res.Best.Scores[i]
		fmt.Fprintf(out, "  #%-3d cost=%10.2f feasible=%-5t %v\n", i, sc.Cost, sc.Feasible, []int(seq))
	}
}

func formatRoutes(routes cvrp.RouteSet) string {
	parts := make([]string, len(routes))
	for i, r := range routes {
		nodes := make([]string, len(r))
		for j, v := range r {
			nodes[j] = fmt.Sprint(v)
		}
		parts[i] = strings.Join(nodes, "-")
	}
	return strings.Join(parts, " | ")
}
