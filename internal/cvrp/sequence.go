package cvrp

// Sequence is the flat encoding of a candidate solution: customer ids
// interleaved with Separator tokens. A repaired Sequence over vehicles routes
// holds exactly vehicles-1 separators and every customer 2..n once.
type Sequence []int

// Population is an ordered set of candidate Sequences.
type Population []Sequence

// Separators counts the separator tokens in s.
func (s Sequence) Separators() int {
	k := 0
	for _, v := range s {
		if v == Separator {
			k++
		}
	}
	return k
}

// Clone returns an independent copy of s.
func (s Sequence) Clone() Sequence {
	return append(Sequence(nil), s...)
}

// Decode splits seq at separators into routes anchored at depot. Two
// adjacent separators produce an empty route; a trailing separator does not.
func Decode(seq Sequence, depot int) RouteSet {
	var routes RouteSet
	current := Route{depot}
	for _, v := range seq {
		if v == Separator {
			current = append(current, depot)
			routes = append(routes, current)
			current = Route{depot}
			continue
		}
		current = append(current, v)
	}
	if len(current) > 1 {
		current = append(current, depot)
		routes = append(routes, current)
	}
	return routes
}
