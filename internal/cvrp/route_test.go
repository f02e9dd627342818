package cvrp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouteMetricsLineExample(t *testing.T) {
	inst := lineInstance()
	dist := BuildDistanceMatrix(inst.Coords)

	routes := Decode(Sequence{2, 0, 3, 4}, inst.Depot)
	require.Equal(t, RouteSet{{1, 2, 1}, {1, 3, 4, 1}}, routes)

	assert.Equal(t, 3, RouteDemand(routes[0], inst.Demand))
	assert.Equal(t, 9, RouteDemand(routes[1], inst.Demand))
	assert.Equal(t, 2.0, RouteCost(routes[0], dist))
	assert.Equal(t, 6.0, RouteCost(routes[1], dist))
	assert.Equal(t, 8.0, TotalCost(routes, dist))
	assert.True(t, IsFeasible(routes, inst.Demand, inst.Capacity, inst.N))
}

func TestRouteMetricsDegenerateRoutes(t *testing.T) {
	inst := lineInstance()
	dist := BuildDistanceMatrix(inst.Coords)

	assert.Zero(t, RouteDemand(Route{1, 1}, inst.Demand))
	assert.Zero(t, RouteDemand(Route{}, inst.Demand))
	assert.Zero(t, RouteCost(Route{1}, dist))
	assert.Zero(t, RouteCost(Route{1, 1}, dist))
	assert.Zero(t, TotalCost(nil, dist))
}

func TestTotalCostIsSumOfRoundedRouteCosts(t *testing.T) {
	inst := randomInstance(t, 30, 40, 11)
	dist := BuildDistanceMatrix(inst.Coords)
	pop := InitPopulation(NewRand(3), inst, 5, 20)

	for _, seq := range pop {
		seq.Repair(5, inst.N)
		routes := Decode(seq, inst.Depot)
		sum := 0.0
		for _, r := range routes {
			c := RouteCost(r, dist)
			require.Equal(t, Round2(c), c)
			sum += c
		}
		assert.Equal(t, Round2(sum), TotalCost(routes, dist))
	}
}

func TestCheckRoutesViolations(t *testing.T) {
	inst := lineInstance()

	cases := []struct {
		name   string
		routes RouteSet
		want   Violations
	}{
		{"feasible", RouteSet{{1, 2, 1}, {1, 3, 4, 1}}, Violations{}},
		{"overloaded", RouteSet{{1, 2, 3, 4, 1}}, Violations{Overloaded: []int{0}}},
		{"duplicate", RouteSet{{1, 2, 3, 1}, {1, 3, 4, 1}}, Violations{Duplicated: []int{3}}},
		{"missing", RouteSet{{1, 2, 1}, {1, 4, 1}}, Violations{Missing: []int{3}}},
		{"unknown node", RouteSet{{1, 2, 7, 1}, {1, 3, 4, 1}}, Violations{Unknown: []int{7}}},
		{"empty route set", nil, Violations{Missing: []int{2, 3, 4}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := CheckRoutes(tc.routes, inst.Demand, inst.Capacity, inst.N)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.want.Feasible(), IsFeasible(tc.routes, inst.Demand, inst.Capacity, inst.N))
		})
	}
}

func TestIsFeasibleDeterministic(t *testing.T) {
	inst := lineInstance()
	routes := RouteSet{{1, 2, 3, 1}, {1, 4, 1}}
	first := IsFeasible(routes, inst.Demand, inst.Capacity, inst.N)
	for i := 0; i < 5; i++ {
		require.Equal(t, first, IsFeasible(routes, inst.Demand, inst.Capacity, inst.N))
	}
	require.Equal(t, RouteSet{{1, 2, 3, 1}, {1, 4, 1}}, routes, "inputs must not be mutated")
}
