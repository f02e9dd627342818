// Package cvrp holds the solution encoding of the capacitated vehicle routing
// problem: flat customer/separator sequences, their construction and repair,
// decoding into depot-anchored routes, and cost/feasibility evaluation.
package cvrp

import (
	"errors"
	"fmt"
	"math"
)

// Separator marks a route boundary inside a Sequence.
const Separator = 0

// DefaultDepot is the customary depot id of TSPLIB CVRP files.
const DefaultDepot = 1

var (
	// ErrInvalidInstance is wrapped by every Instance.Validate failure.
	ErrInvalidInstance = errors.New("cvrp: invalid instance")
	// ErrEmptyPopulation is returned when there is nothing to select from.
	ErrEmptyPopulation = errors.New("cvrp: empty population")
)

// Point is a planar node coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Instance is an immutable CVRP problem. Coords and Demand are 1-indexed
// (index 0 is unused) and hold N+1 entries.
type Instance struct {
	Name     string  `json:"name,omitempty"`
	N        int     `json:"n"`
	Capacity int     `json:"capacity"`
	Coords   []Point `json:"coords"`
	Demand   []int   `json:"demand"`
	Depot    int     `json:"depot"`
	// Hints carried by some instance files; zero when unknown.
	Vehicles int     `json:"vehicles,omitempty"`
	Optimal  float64 `json:"optimal,omitempty"`
}

// Validate checks the shape invariants the core relies on.
func (in *Instance) Validate() error {
	if in == nil {
		return fmt.Errorf("%w: nil", ErrInvalidInstance)
	}
	if in.N < 2 {
		return fmt.Errorf("%w: n must be >= 2 (got %d)", ErrInvalidInstance, in.N)
	}
	if in.Capacity <= 0 {
		return fmt.Errorf("%w: capacity must be > 0 (got %d)", ErrInvalidInstance, in.Capacity)
	}
	// Customers are 2..N, so only node 1 can be the depot.
	if in.Depot != DefaultDepot {
		return fmt.Errorf("%w: depot must be node %d (got %d)", ErrInvalidInstance, DefaultDepot, in.Depot)
	}
	if len(in.Coords) != in.N+1 {
		return fmt.Errorf("%w: coords length must be n+1=%d (got %d)", ErrInvalidInstance, in.N+1, len(in.Coords))
	}
	if len(in.Demand) != in.N+1 {
		return fmt.Errorf("%w: demand length must be n+1=%d (got %d)", ErrInvalidInstance, in.N+1, len(in.Demand))
	}
	for i := 1; i <= in.N; i++ {
		if in.Demand[i] < 0 {
			return fmt.Errorf("%w: demand[%d] must be >= 0 (got %d)", ErrInvalidInstance, i, in.Demand[i])
		}
	}
	return nil
}

// Customers returns the customer ids 2..N in ascending order.
func (in *Instance) Customers() []int {
	out := make([]int, 0, in.N-1)
	for c := 2; c <= in.N; c++ {
		out = append(out, c)
	}
	return out
}

// TotalDemand sums the demand of every customer.
func (in *Instance) TotalDemand() int {
	sum := 0
	for c := 2; c <= in.N; c++ {
		sum += in.Demand[c]
	}
	return sum
}

// MinVehicles is the capacity lower bound ceil(total demand / capacity),
// never less than one.
func (in *Instance) MinVehicles() int {
	k := int(math.Ceil(float64(in.TotalDemand()) / float64(in.Capacity)))
	if k < 1 {
		k = 1
	}
	return k
}

// VehicleCount resolves the fleet size: an explicit request wins, then the
// instance hint, then the capacity lower bound.
func (in *Instance) VehicleCount(requested int) int {
	if requested > 0 {
		return requested
	}
	if in.Vehicles > 0 {
		return in.Vehicles
	}
	return in.MinVehicles()
}
