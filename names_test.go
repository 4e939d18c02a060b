package param

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func molWithNames(names ...string) *Molecule {
	m := &Molecule{}
	for _, n := range names {
		m.Atoms = append(m.Atoms, &Atom{Name: n})
	}
	return m
}

func TestMakeAtomNamesUnique(t *testing.T) {
	cases := []struct {
		in, want []string
	}{
		{[]string{"A", "A", "A", "A"}, []string{"A", "A0", "A1", "A2"}},
		{[]string{"A", "A", "A", "A0"}, []string{"A", "A1", "A2", "A0"}},
		{[]string{"A", "B", "A", "B"}, []string{"A", "B", "A0", "B0"}},
		{[]string{"A", "B", "C", "D"}, []string{"A", "B", "C", "D"}},
		{[]string{"1A", "1A", "A1B1", "A1B1"}, []string{"1A", "1A0", "A1B1", "A1B2"}},
	}
	for _, c := range cases {
		got := MakeAtomNamesUnique(molWithNames(c.in...))
		require.Equal(t, c.want, got.Names(), "input %v", c.in)
	}
}

func TestMakeAtomNamesUniquePreservesInput(t *testing.T) {
	m := molWithNames("A", "A")
	MakeAtomNamesUnique(m)
	require.Equal(t, []string{"A", "A"}, m.Names())
}

func TestFixedChargeAtomIndices(t *testing.T) {
	m := molWithNames("C1", "O1", "C1")
	m.Atoms[0].Charge = -0.1
	idx, err := FixedChargeAtomIndices(m, []string{"C1"}, zap.NewNop())
	require.NoError(t, err)
	require.Equal(t, []int{0, 2}, idx)

	_, err = FixedChargeAtomIndices(m, []string{"N1"}, zap.NewNop())
	require.ErrorContains(t, err, "N1")
}
