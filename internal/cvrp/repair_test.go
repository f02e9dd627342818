package cvrp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepairSeparatorsRemovesExcess(t *testing.T) {
	cases := []struct {
		name     string
		in       Sequence
		vehicles int
		want     Sequence
	}{
		{"adjacent pair", Sequence{2, 0, 0, 3, 4}, 2, Sequence{2, 0, 3, 4}},
		{"leading", Sequence{0, 2, 3, 0, 4}, 2, Sequence{2, 3, 0, 4}},
		{"trailing", Sequence{2, 0, 3, 4, 0}, 2, Sequence{2, 0, 3, 4}},
		{"no free separator", Sequence{2, 0, 3, 0, 4}, 2, Sequence{2, 3, 0, 4}},
		{"single vehicle", Sequence{2, 0, 3, 0, 4}, 1, Sequence{2, 3, 4}},
		{"run of separators", Sequence{2, 0, 0, 0, 3, 4}, 2, Sequence{2, 0, 3, 4}},
		{"already valid", Sequence{2, 0, 3, 4}, 2, Sequence{2, 0, 3, 4}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			seq := tc.in.Clone()
			st := seq.RepairSeparators(tc.vehicles)
			assert.Equal(t, tc.want, seq)
			assert.Equal(t, tc.vehicles-1, seq.Separators())
			assert.Equal(t, tc.in.Separators()-seq.Separators(), st.SeparatorsRemoved)
			assert.Zero(t, st.SeparatorsInserted)
		})
	}
}

func TestRepairSeparatorsFillsShortfall(t *testing.T) {
	cases := []struct {
		name     string
		in       Sequence
		vehicles int
		want     Sequence
	}{
		{"split longest run", Sequence{2, 3, 4}, 2, Sequence{2, 0, 3, 4}},
		{"two splits", Sequence{2, 3, 4}, 3, Sequence{2, 0, 3, 0, 4}},
		{"longest run wins", Sequence{2, 0, 3, 4, 5, 6}, 3, Sequence{2, 0, 3, 4, 0, 5, 6}},
		{"nothing to split", Sequence{2, 0, 3}, 4, Sequence{2, 0, 3, 0, 0}},
		{"empty", Sequence{}, 2, Sequence{0}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			seq := tc.in.Clone()
			st := seq.RepairSeparators(tc.vehicles)
			assert.Equal(t, tc.want, seq)
			assert.Equal(t, tc.vehicles-1, seq.Separators())
			assert.Equal(t, seq.Separators()-tc.in.Separators(), st.SeparatorsInserted)
			assert.Zero(t, st.SeparatorsRemoved)
		})
	}
}

func TestRepairSeparatorsIdempotent(t *testing.T) {
	seq := Sequence{0, 2, 0, 0, 3, 4, 0}
	seq.RepairSeparators(2)
	once := seq.Clone()
	st := seq.RepairSeparators(2)
	assert.Equal(t, once, seq)
	assert.Equal(t, RepairStats{}, st)
}

func TestRepairCustomers(t *testing.T) {
	cases := []struct {
		name     string
		in       Sequence
		n        int
		want     Sequence
		replaced int
	}{
		{"duplicate replaced by missing", Sequence{2, 2, 0, 4}, 4, Sequence{2, 3, 0, 4}, 1},
		{"missing in ascending order", Sequence{3, 3, 0, 3, 2}, 5, Sequence{3, 4, 0, 5, 2}, 2},
		{"missing exhausted", Sequence{5, 2, 2, 0, 2, 3}, 5, Sequence{5, 2, 4, 0, 2, 3}, 1},
		{"out of range tokens", Sequence{2, 1, 0, 9}, 4, Sequence{2, 3, 0, 4}, 2},
		{"already valid", Sequence{4, 0, 2, 3}, 4, Sequence{4, 0, 2, 3}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			seq := tc.in.Clone()
			got := seq.RepairCustomers(tc.n)
			assert.Equal(t, tc.want, seq)
			assert.Equal(t, tc.replaced, got)
			assert.Equal(t, tc.in.Separators(), seq.Separators())
		})
	}
}

func TestRepairRestoresInvariantsOnPopulation(t *testing.T) {
	inst := randomInstance(t, 40, 30, 5)
	for _, vehicles := range []int{1, 3, 8, 20, 45} {
		pop := InitPopulation(NewRand(int64(vehicles)), inst, vehicles, 30)
		for i := range pop {
			pop[i].Repair(vehicles, inst.N)

			require.Equal(t, vehicles-1, pop[i].Separators(), "vehicles=%d individual=%d", vehicles, i)
			occ := occurrences(pop[i])
			require.Len(t, occ, inst.N-1)
			for c := 2; c <= inst.N; c++ {
				require.Equal(t, 1, occ[c], "customer %d", c)
			}
		}
	}
}
