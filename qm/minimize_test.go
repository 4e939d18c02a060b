package qm

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	param "github.com/rubbs14/parameterize"
)

var errBoom = errors.New("boom")

// testMol is an A1-A2-A3-A4 chain whose 0-1-2-3 dihedral is 90 degrees.
func testMol() *param.Molecule {
	return &param.Molecule{
		Atoms: []*param.Atom{
			{Name: "A1", Element: "C", Mass: 12, Charge: 0.1},
			{Name: "A2", Element: "C", Mass: 12, Charge: -0.1},
			{Name: "A3", Element: "C", Mass: 12, Charge: 0.1},
			{Name: "A4", Element: "O", Mass: 16, Charge: -0.1},
		},
		Bonds: []*param.Bond{
			{A1: 0, A2: 1, Type: "1", Order: 1},
			{A1: 1, A2: 2, Type: "1", Order: 1},
			{A1: 2, A2: 3, Type: "1", Order: 1},
		},
		Coords: []*mat.Dense{mat.NewDense(4, 3, []float64{
			1, 0, 0,
			0, 0, 0,
			0, 0, 1,
			0, 1, 1,
		})},
	}
}

// springTerm pulls every atom to a target position with harmonic springs.
type springTerm struct {
	target *mat.Dense
	k      float64
	evals  int
}

func (s *springTerm) Eval(coords, grad *mat.Dense) float64 {
	s.evals++
	var e float64
	n, _ := coords.Dims()
	for i := 0; i < n; i++ {
		for k := 0; k < 3; k++ {
			d := coords.At(i, k) - s.target.At(i, k)
			e += s.k * d * d
			grad.Set(i, k, grad.At(i, k)+2*s.k*d)
		}
	}
	return e
}

func TestMMMinimizerConverges(t *testing.T) {
	mol := testMol()
	target := mat.DenseCopyOf(mol.Coords[0])
	target.Set(3, 1, -1) // move the last atom to the other side
	sys := NewSystem(&springTerm{target: target, k: 50})
	min := NewMMMinimizer(sys, nil)

	out, err := min.Minimize(mol.Coords[0], nil)
	require.NoError(t, err)
	require.True(t, mat.EqualApprox(target, out, 1e-2))
	// Restraint terms never leak into the shared system.
	require.Equal(t, 1, sys.NTerms())
}

func TestMMMinimizerKeepsRestrainedDihedral(t *testing.T) {
	mol := testMol()
	d := param.Dihedral{0, 1, 2, 3}
	theta0 := param.DihedralAngle(mol.Coords[0], d)

	// The springs pull toward a conformer with the opposite dihedral;
	// the restraint has to win.
	rotated := mol.Copy()
	require.NoError(t, param.SetDihedral(rotated, 0, d, theta0-2.0))
	sys := NewSystem(&springTerm{target: rotated.Coords[0], k: 1})
	min := NewMMMinimizer(sys, nil)

	out, err := min.Minimize(mol.Coords[0], []param.Dihedral{d})
	require.NoError(t, err)
	got := param.DihedralAngle(out, d)
	require.InDelta(t, 0, math.Atan2(math.Sin(got-theta0), math.Cos(got-theta0)), 0.05)
	require.Equal(t, 1, sys.NTerms())
}

func TestTorsionRestraintGradient(t *testing.T) {
	// The analytic dihedral gradient must match finite differences.
	mol := testMol()
	coords := mol.Coords[0]
	term := &torsionRestraint{d: param.Dihedral{0, 1, 2, 3}, k: restraintK, phase: 0.3}

	grad := mat.NewDense(4, 3, nil)
	term.Eval(coords, grad)

	const h = 1e-6
	for i := 0; i < 4; i++ {
		for k := 0; k < 3; k++ {
			orig := coords.At(i, k)
			coords.Set(i, k, orig+h)
			scratch := mat.NewDense(4, 3, nil)
			ep := term.Eval(coords, scratch)
			coords.Set(i, k, orig-h)
			scratch.Zero()
			em := term.Eval(coords, scratch)
			coords.Set(i, k, orig)
			require.InDelta(t, (ep-em)/(2*h), grad.At(i, k), 1e-4, "atom %d coord %d", i, k)
		}
	}
}

func TestBlackBoxMinimizerConverges(t *testing.T) {
	start := mat.NewDense(2, 3, []float64{0.2, -0.3, 0.1, 0.9, 1.2, 1.1})
	target := mat.NewDense(2, 3, []float64{0, 0, 0, 1, 1, 1})
	min := &BlackBoxMinimizer{
		Energy: func(coords *mat.Dense) (float64, error) {
			var e float64
			for i := 0; i < 2; i++ {
				for k := 0; k < 3; k++ {
					d := coords.At(i, k) - target.At(i, k)
					e += d * d
				}
			}
			return e, nil
		},
	}
	out, err := min.Minimize(start, nil)
	require.NoError(t, err)
	require.True(t, mat.EqualApprox(target, out, 0.1))
}

func TestBlackBoxMinimizerKeepsRestrainedDihedral(t *testing.T) {
	mol := testMol()
	d := param.Dihedral{0, 1, 2, 3}
	theta0 := param.DihedralAngle(mol.Coords[0], d)

	// A flat energy surface: only the dihedral penalty acts.
	min := &BlackBoxMinimizer{
		Energy: func(*mat.Dense) (float64, error) { return 0, nil },
	}
	out, err := min.Minimize(mol.Coords[0], []param.Dihedral{d})
	require.NoError(t, err)
	got := param.DihedralAngle(out, d)
	require.InDelta(t, 0, math.Atan2(math.Sin(got-theta0), math.Cos(got-theta0)), 0.05)
}

func TestBlackBoxMinimizerPropagatesError(t *testing.T) {
	min := &BlackBoxMinimizer{
		Energy: func(*mat.Dense) (float64, error) {
			return 0, errBoom
		},
	}
	_, err := min.Minimize(mat.NewDense(1, 3, []float64{1, 2, 3}), nil)
	require.ErrorIs(t, err, errBoom)
}
