package cvrp

// Score is the evaluation of one individual.
type Score struct {
	Cost     float64 `json:"cost"`
	Feasible bool    `json:"feasible"`
}

// Selection is the outcome of a best-of-population scan.
type Selection struct {
	Index    int      `json:"index"`
	Cost     float64  `json:"cost"`
	Routes   RouteSet `json:"routes"`
	Feasible bool     `json:"feasible"`
	Scores   []Score  `json:"scores"`
}

// FeasibleCount returns how many scored individuals were feasible.
func (s Selection) FeasibleCount() int {
	k := 0
	for _, sc := range s.Scores {
		if sc.Feasible {
			k++
		}
	}
	return k
}

// SelectOptions tunes the comparator used by Select.
type SelectOptions struct {
	// PreferFeasible ranks any feasible individual above every infeasible
	// one before comparing cost. Off by default: selection is by cost alone
	// and Selection.Feasible tells the caller what was picked.
	PreferFeasible bool
}

// SelectBest builds the distance matrix for inst and returns the cheapest
// individual of pop. The first individual reaching the minimum wins.
func SelectBest(pop Population, inst *Instance) (Selection, error) {
	return Select(pop, inst, BuildDistanceMatrix(inst.Coords), SelectOptions{})
}

// Select decodes and scores every individual against dist and picks the best
// one under opts. Ties keep the lower index.
func Select(pop Population, inst *Instance, dist DistanceMatrix, opts SelectOptions) (Selection, error) {
	if len(pop) == 0 {
		return Selection{Index: -1}, ErrEmptyPopulation
	}
	sel := Selection{Index: -1, Scores: make([]Score, len(pop))}
	for i, seq := range pop {
		routes := Decode(seq, inst.Depot)
		sc := Score{
			Cost:     TotalCost(routes, dist),
			Feasible: IsFeasible(routes, inst.Demand, inst.Capacity, inst.N),
		}
		sel.Scores[i] = sc
		if sel.Index < 0 || better(sc, Score{Cost: sel.Cost, Feasible: sel.Feasible}, opts) {
			sel.Index = i
			sel.Cost = sc.Cost
			sel.Feasible = sc.Feasible
			sel.Routes = routes
		}
	}
	return sel, nil
}

func better(a, b Score, opts SelectOptions) bool {
	if opts.PreferFeasible && a.Feasible != b.Feasible {
		return a.Feasible
	}
	return a.Cost < b.Cost
}
