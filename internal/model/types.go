package model

import (
	"fmt"
	"time"

	"github.com/hungkimanh/gatest/internal/cvrp"
)

// NodeIn is one vertex of an instance posted as JSON.
type NodeIn struct {
	ID     int     `json:"id"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Demand int     `json:"demand"`
}

// InstanceIn is the JSON form of a CVRP instance. Node ids run 1..len(Nodes)
// in any order.
type InstanceIn struct {
	Name     string   `json:"name"`
	Capacity int      `json:"capacity"`
	Depot    int      `json:"depot,omitempty"`
	Vehicles int      `json:"vehicles,omitempty"`
	Optimal  float64  `json:"optimal,omitempty"`
	Nodes    []NodeIn `json:"nodes"`
}

// ToInstance converts the request form into a validated cvrp.Instance.
func (in InstanceIn) ToInstance() (*cvrp.Instance, error) {
	n := len(in.Nodes)
	inst := &cvrp.Instance{
		Name:     in.Name,
		N:        n,
		Capacity: in.Capacity,
		Depot:    in.Depot,
		Vehicles: in.Vehicles,
		Optimal:  in.Optimal,
		Coords:   make([]cvrp.Point, n+1),
		Demand:   make([]int, n+1),
	}
	if inst.Depot == 0 {
		inst.Depot = cvrp.DefaultDepot
	}
	seen := make([]bool, n+1)
	for _, nd := range in.Nodes {
		if nd.ID < 1 || nd.ID > n {
			return nil, fmt.Errorf("node id %d outside 1..%d: %w", nd.ID, n, cvrp.ErrInvalidInstance)
		}
		if seen[nd.ID] {
			return nil, fmt.Errorf("duplicate node id %d: %w", nd.ID, cvrp.ErrInvalidInstance)
		}
		seen[nd.ID] = true
		inst.Coords[nd.ID] = cvrp.Point{X: nd.X, Y: nd.Y}
		inst.Demand[nd.ID] = nd.Demand
	}
	if err := inst.Validate(); err != nil {
		return nil, err
	}
	return inst, nil
}

// SolveRequest is the body of POST /v1/solve. Zero-valued parameters fall
// back to the server configuration.
type SolveRequest struct {
	Instance          *InstanceIn `json:"instance"`
	Vehicles          int         `json:"vehicles,omitempty"`
	Population        int         `json:"population,omitempty"`
	Generations       int         `json:"generations,omitempty"`
	Seed              int64       `json:"seed,omitempty"`
	PreferFeasible    *bool       `json:"preferFeasible,omitempty"`
	IncludePopulation bool        `json:"includePopulation,omitempty"`
}

// RunRecord is a persisted solver run.
type RunRecord struct {
	ID            string           `json:"id"`
	Instance      string           `json:"instance"`
	Vehicles      int              `json:"vehicles"`
	Population    int              `json:"population"`
	Generations   int              `json:"generations"`
	Seed          int64            `json:"seed"`
	BestIndex     int              `json:"bestIndex"`
	BestCost      float64          `json:"bestCost"`
	Feasible      bool             `json:"feasible"`
	FeasibleCount int              `json:"feasibleCount"`
	Routes        cvrp.RouteSet    `json:"routes"`
	Repairs       cvrp.RepairStats `json:"repairs"`
	// Optimal and Gap are -1 when the optimum is unknown.
	Optimal    float64   `json:"optimal"`
	Gap        float64   `json:"gapPercent"`
	DurationMs int64     `json:"durationMs"`
	CreatedAt  time.Time `json:"createdAt"`
}

// NewRunRecord summarizes res. ID and CreatedAt are assigned by the store.
func NewRunRecord(res *cvrp.Result, optimal, gap float64) RunRecord {
	return RunRecord{
		Instance:      res.Instance,
		Vehicles:      res.Vehicles,
		Population:    res.PopulationSize,
		Generations:   res.Generations,
		Seed:          res.Seed,
		BestIndex:     res.Best.Index,
		BestCost:      res.Best.Cost,
		Feasible:      res.Best.Feasible,
		FeasibleCount: res.Best.FeasibleCount(),
		Routes:        res.Best.Routes,
		Repairs:       res.Repairs,
		Optimal:       optimal,
		Gap:           gap,
		DurationMs:    res.Duration.Milliseconds(),
	}
}

// SolveResponse wraps a run, optionally with the full population.
type SolveResponse struct {
	Run        RunRecord       `json:"run"`
	Population cvrp.Population `json:"population,omitempty"`
	Scores     []cvrp.Score    `json:"scores,omitempty"`
}
