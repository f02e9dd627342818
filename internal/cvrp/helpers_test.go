package cvrp

import (
	"math/rand"
	"testing"
)

// lineInstance is the four-node instance used across the tests: depot at the
// origin and three customers one unit apart on the y axis.
func lineInstance() *Instance {
	return &Instance{
		Name:     "line4",
		N:        4,
		Capacity: 10,
		Depot:    1,
		Coords:   []Point{{}, {0, 0}, {0, 1}, {0, 2}, {0, 3}},
		Demand:   []int{0, 0, 3, 4, 5},
	}
}

func randomInstance(t *testing.T, n, capacity int, seed int64) *Instance {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	inst := &Instance{
		Name:     "random",
		N:        n,
		Capacity: capacity,
		Depot:    1,
		Coords:   make([]Point, n+1),
		Demand:   make([]int, n+1),
	}
	for i := 1; i <= n; i++ {
		inst.Coords[i] = Point{X: rng.Float64() * 100, Y: rng.Float64() * 100}
		if i != inst.Depot {
			inst.Demand[i] = 1 + rng.Intn(capacity/2)
		}
	}
	if err := inst.Validate(); err != nil {
		t.Fatalf("random instance invalid: %v", err)
	}
	return inst
}

func occurrences(seq Sequence) map[int]int {
	out := map[int]int{}
	for _, v := range seq {
		if v != Separator {
			out[v]++
		}
	}
	return out
}

func interiorNodes(routes RouteSet) []int {
	var out []int
	for _, r := range routes {
		out = append(out, r.Customers()...)
	}
	return out
}
