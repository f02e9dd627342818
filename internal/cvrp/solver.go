package cvrp

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/sourcegraph/conc/pool"
)

// Options configures a Solver run.
type Options struct {
	// Vehicles is the fleet size; 0 defers to Instance.VehicleCount.
	Vehicles       int
	PopulationSize int
	// Generations is recorded on the Result only; no evolutionary loop runs.
	Generations    int
	Seed           int64
	Workers        int
	PreferFeasible bool
}

// Observer receives every finished run, e.g. to export metrics.
type Observer interface {
	ObserveRun(inst *Instance, res *Result)
}

// Result describes one population construction and selection.
type Result struct {
	Instance       string        `json:"instance"`
	Vehicles       int           `json:"vehicles"`
	PopulationSize int           `json:"populationSize"`
	Generations    int           `json:"generations"`
	Seed           int64         `json:"seed"`
	Population     Population    `json:"population,omitempty"`
	Best           Selection     `json:"best"`
	Repairs        RepairStats   `json:"repairs"`
	Duration       time.Duration `json:"duration"`
}

// Solver builds, repairs and ranks populations for CVRP instances.
type Solver struct {
	Opts     Options
	Logger   *log.Logger
	Observer Observer
}

// NewSolver returns a Solver with opts.
func NewSolver(opts Options) *Solver {
	return &Solver{Opts: opts}
}

// Run constructs a population for inst, repairs every individual and selects
// the best one. Cancellation of ctx is checked between individuals.
func (s *Solver) Run(ctx context.Context, inst *Instance) (*Result, error) {
	if err := inst.Validate(); err != nil {
		return nil, fmt.Errorf("cvrp: run: %w", err)
	}
	start := time.Now()
	size := s.Opts.PopulationSize
	if size <= 0 {
		size = DefaultPopulationSize
	}
	seed := s.Opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	vehicles := inst.VehicleCount(s.Opts.Vehicles)

	pop, repairs, err := s.build(ctx, inst, vehicles, size, seed)
	if err != nil {
		return nil, fmt.Errorf("cvrp: run: %w", err)
	}

	dist := BuildDistanceMatrix(inst.Coords)
	best, err := Select(pop, inst, dist, SelectOptions{PreferFeasible: s.Opts.PreferFeasible})
	if err != nil {
		return nil, fmt.Errorf("cvrp: run: %w", err)
	}

	res := &Result{
		Instance:       inst.Name,
		Vehicles:       vehicles,
		PopulationSize: size,
		Generations:    s.Opts.Generations,
		Seed:           seed,
		Population:     pop,
		Best:           best,
		Repairs:        repairs,
		Duration:       time.Since(start),
	}
	if s.Logger != nil {
		s.Logger.Printf("instance=%s vehicles=%d population=%d seed=%d best_index=%d best_cost=%.2f feasible=%t feasible_count=%d dur=%dms",
			inst.Name, vehicles, size, seed, best.Index, best.Cost, best.Feasible, best.FeasibleCount(), res.Duration.Milliseconds())
	}
	if s.Observer != nil {
		s.Observer.ObserveRun(inst, res)
	}
	return res, nil
}

// build creates and repairs size individuals. Each individual owns a random
// stream derived from seed, so the population is the same for any worker
// count.
func (s *Solver) build(ctx context.Context, inst *Instance, vehicles, size int, seed int64) (Population, RepairStats, error) {
	seeds := streamSeeds(rand.New(rand.NewSource(seed)), size)
	pop := make(Population, size)
	stats := make([]RepairStats, size)

	one := func(i int) {
		seq := NewSequence(rand.New(rand.NewSource(seeds[i])), inst, vehicles)
		stats[i] = seq.Repair(vehicles, inst.N)
		pop[i] = seq
	}

	if s.Opts.Workers > 1 {
		p := pool.New().WithContext(ctx).WithMaxGoroutines(s.Opts.Workers)
		for i := range pop {
			p.Go(func(ctx context.Context) error {
				if err := ctx.Err(); err != nil {
					return err
				}
				one(i)
				return nil
			})
		}
		if err := p.Wait(); err != nil {
			return nil, RepairStats{}, err
		}
	} else {
		for i := range pop {
			if err := ctx.Err(); err != nil {
				return nil, RepairStats{}, err
			}
			one(i)
		}
	}

	var total RepairStats
	for _, st := range stats {
		total.Add(st)
	}
	return pop, total, nil
}
