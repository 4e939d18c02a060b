package scan

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	param "github.com/rubbs14/parameterize"
	"github.com/rubbs14/parameterize/qm"
)

func TestFilterErroredAndEnergyWindow(t *testing.T) {
	batch := make([]*qm.Result, 20)
	for i := range batch {
		batch[i] = &qm.Result{}
	}
	batches := [][]*qm.Result{batch}

	got, err := Filter(batches, nil, nil)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Len(t, got[0], 20)

	batch[1].Errored = true
	batch[19].Errored = true
	got, err = Filter(batches, nil, nil)
	require.NoError(t, err)
	require.Len(t, got[0], 18)

	batch[10].Energy = -5
	batch[12].Energy = 12
	batch[15].Energy = 17
	got, err = Filter(batches, nil, nil)
	require.NoError(t, err)
	require.Len(t, got[0], 17)
}

func TestFilterPreservesBatchGroupingAndOrder(t *testing.T) {
	a := &qm.Result{Energy: 1}
	b := &qm.Result{Energy: 2}
	c := &qm.Result{Errored: true}
	d := &qm.Result{Energy: 3}
	got, err := Filter([][]*qm.Result{{a, c, b}, {d}}, nil, nil)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, []*qm.Result{a, b}, got[0])
	require.Equal(t, []*qm.Result{d}, got[1])
}

func TestFilterEmptyBatchStays(t *testing.T) {
	got, err := Filter([][]*qm.Result{{}}, nil, nil)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Empty(t, got[0])
}

// chiralMol is bromochlorofluoromethane, with a single stereocenter.
func chiralMol() *param.Molecule {
	return &param.Molecule{
		Atoms: []*param.Atom{
			{Name: "C1", Element: "C", Mass: 12},
			{Name: "H1", Element: "H", Mass: 1},
			{Name: "F1", Element: "F", Mass: 19},
			{Name: "CL1", Element: "Cl", Mass: 35},
			{Name: "BR1", Element: "Br", Mass: 80},
		},
		Bonds: []*param.Bond{
			{A1: 0, A2: 1}, {A1: 0, A2: 2}, {A1: 0, A2: 3}, {A1: 0, A2: 4},
		},
		Coords: []*mat.Dense{mat.NewDense(5, 3, []float64{
			0, 0, 0,
			0, 0, 1.09,
			1.25, 0, -0.44,
			-0.86, 1.49, -0.60,
			-0.86, -1.49, -0.60,
		})},
	}
}

func TestFilterDropsInvertedChirality(t *testing.T) {
	ref := chiralMol()
	good := &qm.Result{Coords: mat.DenseCopyOf(ref.Coords[0])}

	mirrored := mat.DenseCopyOf(ref.Coords[0])
	for i := 0; i < 5; i++ {
		mirrored.Set(i, 2, -mirrored.At(i, 2))
	}
	bad := &qm.Result{Coords: mirrored}

	got, err := Filter([][]*qm.Result{{good, bad}}, ref, nil)
	require.NoError(t, err)
	require.Len(t, got[0], 1)
	require.Same(t, good, got[0][0])
}

func TestFilterOrderErroredBeforeChirality(t *testing.T) {
	// An errored record has no usable coordinates; it must be dropped
	// before the chirality check would touch them.
	ref := chiralMol()
	errored := &qm.Result{Errored: true}
	got, err := Filter([][]*qm.Result{{errored}}, ref, nil)
	require.NoError(t, err)
	require.Empty(t, got[0])
}
