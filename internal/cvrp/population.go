package cvrp

import "math/rand"

// DefaultPopulationSize is the number of individuals built when the caller
// does not choose one.
const DefaultPopulationSize = 50

// NewSequence builds one candidate: a random permutation of the customers,
// greedily packed into capacity-respecting groups, padded with empty groups
// up to vehicles and flattened with one Separator between groups.
//
// The result may hold more than vehicles-1 separators when the greedy pass
// opens more groups than there are vehicles; Repair restores the count.
func NewSequence(rng *rand.Rand, inst *Instance, vehicles int) Sequence {
	customers := inst.Customers()
	rng.Shuffle(len(customers), func(i, j int) {
		customers[i], customers[j] = customers[j], customers[i]
	})

	var groups [][]int
	var current []int
	load := 0
	for _, c := range customers {
		if load+inst.Demand[c] <= inst.Capacity {
			current = append(current, c)
			load += inst.Demand[c]
			continue
		}
		groups = append(groups, current)
		current = []int{c}
		load = inst.Demand[c]
	}
	if len(current) > 0 {
		groups = append(groups, current)
	}
	for len(groups) < vehicles {
		groups = append(groups, nil)
	}

	seq := make(Sequence, 0, len(customers)+len(groups)-1)
	for i, g := range groups {
		seq = append(seq, g...)
		if i != len(groups)-1 {
			seq = append(seq, Separator)
		}
	}
	return seq
}

// InitPopulation builds size individuals, each from its own random stream
// derived from rng. A fixed rng seed yields the same population.
func InitPopulation(rng *rand.Rand, inst *Instance, vehicles, size int) Population {
	if size <= 0 {
		size = DefaultPopulationSize
	}
	seeds := streamSeeds(rng, size)
	pop := make(Population, size)
	for i, seed := range seeds {
		pop[i] = NewSequence(rand.New(rand.NewSource(seed)), inst, vehicles)
	}
	return pop
}
