package param

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

func TestDipole(t *testing.T) {
	m := &Molecule{
		Atoms: []*Atom{
			{Name: "X1", Charge: 0.5, Mass: 1},
			{Name: "X2", Charge: -0.5, Mass: 1},
		},
		Coords: []*mat.Dense{mat.NewDense(2, 3, []float64{
			1, 0, 0,
			-1, 0, 0,
		})},
	}
	d := Dipole(m, 0, zap.NewNop())
	// 1 e.Å along x.
	require.InDelta(t, EAng2Debye, d[0], 1e-9)
	require.InDelta(t, 0, d[1], 1e-9)
	require.InDelta(t, 0, d[2], 1e-9)
	require.InDelta(t, EAng2Debye, d[3], 1e-9)
}

func TestDipoleNoMasses(t *testing.T) {
	m := &Molecule{
		Atoms:  []*Atom{{Name: "X1", Charge: 1}},
		Coords: []*mat.Dense{mat.NewDense(1, 3, []float64{1, 2, 3})},
	}
	require.Equal(t, [4]float64{}, Dipole(m, 0, zap.NewNop()))
}

func TestCenterOfMass(t *testing.T) {
	m := &Molecule{
		Atoms: []*Atom{{Mass: 1}, {Mass: 3}},
		Coords: []*mat.Dense{mat.NewDense(2, 3, []float64{
			0, 0, 0,
			4, 0, 0,
		})},
	}
	com, err := CenterOfMass(m, 0)
	require.NoError(t, err)
	require.InDelta(t, 3, com[0], 1e-12)
}

func TestESP(t *testing.T) {
	m := &Molecule{
		Atoms:  []*Atom{{Charge: 1, Mass: 1}},
		Coords: []*mat.Dense{mat.NewDense(1, 3, nil)},
	}
	points := mat.NewDense(1, 3, []float64{1, 1, 1})
	values := ESP(m, 0, points)
	require.Len(t, values, 1)
	want := 1 / (math.Sqrt(3) * Bohr2A)
	require.InDelta(t, want, values[0], 1e-9)
}
