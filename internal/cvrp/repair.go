package cvrp

// RepairStats counts the edits made by a repair pass.
type RepairStats struct {
	SeparatorsRemoved  int `json:"separatorsRemoved"`
	SeparatorsInserted int `json:"separatorsInserted"`
	CustomersReplaced  int `json:"customersReplaced"`
}

// Add accumulates o into r.
func (r *RepairStats) Add(o RepairStats) {
	r.SeparatorsRemoved += o.SeparatorsRemoved
	r.SeparatorsInserted += o.SeparatorsInserted
	r.CustomersReplaced += o.CustomersReplaced
}

// Repair runs RepairSeparators then RepairCustomers.
func (s *Sequence) Repair(vehicles, n int) RepairStats {
	st := s.RepairSeparators(vehicles)
	st.CustomersReplaced = s.RepairCustomers(n)
	return st
}

// RepairSeparators brings the separator count to exactly vehicles-1.
//
// Excess separators are removed one at a time, preferring a free one (at
// either boundary or followed by another separator, i.e. closing an empty
// route); otherwise the first separator goes. A shortfall is filled by
// splitting the longest run of at least two customers at its middle, or by
// a trailing separator when no run can be split.
func (s *Sequence) RepairSeparators(vehicles int) RepairStats {
	var st RepairStats
	target := vehicles - 1
	if target < 0 {
		target = 0
	}
	count := s.Separators()
	for count > target {
		idx := s.freeSeparator()
		if idx < 0 {
			idx = s.firstSeparator()
		}
		*s = removeAt(*s, idx)
		count--
		st.SeparatorsRemoved++
	}
	for count < target {
		*s = insertAt(*s, s.splitPoint(), Separator)
		count++
		st.SeparatorsInserted++
	}
	return st
}

// RepairCustomers makes every customer 2..n appear exactly once. The first
// occurrence of an id is kept; later occurrences, and tokens outside 2..n,
// are overwritten in sequence order by the missing ids in ascending order
// until none remain. It returns the number of overwritten tokens.
func (s *Sequence) RepairCustomers(n int) int {
	seq := *s
	count := make([]int, n+1)
	for _, v := range seq {
		if v >= 2 && v <= n {
			count[v]++
		}
	}
	var missing []int
	for c := 2; c <= n; c++ {
		if count[c] == 0 {
			missing = append(missing, c)
		}
	}
	if len(missing) == 0 {
		return 0
	}

	out := make(Sequence, len(seq))
	seen := make([]bool, n+1)
	next := 0
	for i, v := range seq {
		out[i] = v
		if v == Separator {
			continue
		}
		if v >= 2 && v <= n && !seen[v] {
			seen[v] = true
			continue
		}
		if next < len(missing) {
			out[i] = missing[next]
			seen[missing[next]] = true
			next++
		}
	}
	*s = out
	return next
}

func (s Sequence) freeSeparator() int {
	last := len(s) - 1
	for i, v := range s {
		if v != Separator {
			continue
		}
		if i == 0 || i == last || s[i+1] == Separator {
			return i
		}
	}
	return -1
}

func (s Sequence) firstSeparator() int {
	for i, v := range s {
		if v == Separator {
			return i
		}
	}
	return -1
}

// splitPoint returns where a new separator divides the longest customer run
// (first one on ties) into two non-empty halves, or len(s) when every run
// holds fewer than two customers.
func (s Sequence) splitPoint() int {
	bestStart, bestLen := -1, 1
	start := 0
	for i := 0; i <= len(s); i++ {
		if i < len(s) && s[i] != Separator {
			continue
		}
		if l := i - start; l > bestLen {
			bestStart, bestLen = start, l
		}
		start = i + 1
	}
	if bestStart < 0 {
		return len(s)
	}
	return bestStart + bestLen/2
}

func removeAt(s Sequence, idx int) Sequence {
	out := make(Sequence, 0, len(s)-1)
	out = append(out, s[:idx]...)
	return append(out, s[idx+1:]...)
}

func insertAt(s Sequence, idx, v int) Sequence {
	out := make(Sequence, 0, len(s)+1)
	out = append(out, s[:idx]...)
	out = append(out, v)
	return append(out, s[idx:]...)
}
