package cvrp

// Route is a depot-anchored tour: depot, zero or more customers, depot.
type Route []int

// RouteSet is a decoded solution, one Route per vehicle used.
type RouteSet []Route

// Customers returns the interior nodes of r.
func (r Route) Customers() []int {
	if len(r) < 3 {
		return nil
	}
	return r[1 : len(r)-1]
}

// RouteDemand sums demand over the interior nodes of route.
func RouteDemand(route Route, demand []int) int {
	sum := 0
	for _, c := range route.Customers() {
		if c >= 0 && c < len(demand) {
			sum += demand[c]
		}
	}
	return sum
}

// RouteCost sums the edges between consecutive nodes, depot legs included.
func RouteCost(route Route, dist DistanceMatrix) float64 {
	if len(route) < 2 {
		return 0
	}
	cost := 0.0
	for i := 0; i < len(route)-1; i++ {
		cost += dist[route[i]][route[i+1]]
	}
	return Round2(cost)
}

// TotalCost is the sum of RouteCost over routes.
func TotalCost(routes RouteSet, dist DistanceMatrix) float64 {
	sum := 0.0
	for _, r := range routes {
		sum += RouteCost(r, dist)
	}
	return Round2(sum)
}

// Violations lists why a RouteSet is not feasible. The zero value means
// feasible.
type Violations struct {
	// Overloaded holds indices of routes whose demand exceeds capacity.
	Overloaded []int `json:"overloaded,omitempty"`
	Duplicated []int `json:"duplicated,omitempty"`
	Missing    []int `json:"missing,omitempty"`
	// Unknown holds interior node ids outside 2..n.
	Unknown []int `json:"unknown,omitempty"`
}

// Feasible reports whether no violation was found.
func (v Violations) Feasible() bool {
	return len(v.Overloaded) == 0 && len(v.Duplicated) == 0 && len(v.Missing) == 0 && len(v.Unknown) == 0
}

// CheckRoutes collects every capacity and coverage violation of routes for
// customers 2..n.
func CheckRoutes(routes RouteSet, demand []int, capacity, n int) Violations {
	var v Violations
	visited := make([]bool, n+1)
	for ri, r := range routes {
		if RouteDemand(r, demand) > capacity {
			v.Overloaded = append(v.Overloaded, ri)
		}
		for _, c := range r.Customers() {
			if c < 2 || c > n {
				v.Unknown = append(v.Unknown, c)
				continue
			}
			if visited[c] {
				v.Duplicated = append(v.Duplicated, c)
				continue
			}
			visited[c] = true
		}
	}
	for c := 2; c <= n; c++ {
		if !visited[c] {
			v.Missing = append(v.Missing, c)
		}
	}
	return v
}

// IsFeasible reports whether every route respects capacity and every
// customer in 2..n is served exactly once.
func IsFeasible(routes RouteSet, demand []int, capacity, n int) bool {
	return CheckRoutes(routes, demand, capacity, n).Feasible()
}
