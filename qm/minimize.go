package qm

import (
	"fmt"
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"

	param "github.com/rubbs14/parameterize"
)

// Minimizer relaxes a geometry, optionally keeping a set of dihedrals at
// their initial angles.
type Minimizer interface {
	Minimize(coords *mat.Dense, restrained []param.Dihedral) (*mat.Dense, error)
}

const (
	// restraintK is the periodic-torsion force constant used to pin
	// restrained dihedrals, in kcal/mol.
	restraintK = -1000.0
	// forceTolerance is the max-force convergence criterion of the MM
	// minimizer, in kcal/mol/Å.
	forceTolerance = 0.1
	// maxAttempts bounds the restart loop of the MM minimizer.
	maxAttempts = 50
)

// MMMinimizer relaxes a geometry against a molecular-mechanics System
// with L-BFGS. Restrained dihedrals are held by temporary torsion terms
// with phase set to the starting angle; the terms are removed from the
// shared System before returning.
type MMMinimizer struct {
	Sys *System
	Log *zap.Logger
}

// NewMMMinimizer wraps a System. A nil logger is replaced by a no-op one.
func NewMMMinimizer(sys *System, log *zap.Logger) *MMMinimizer {
	if log == nil {
		log = zap.NewNop()
	}
	return &MMMinimizer{Sys: sys, Log: log}
}

func (m *MMMinimizer) Minimize(coords *mat.Dense, restrained []param.Dihedral) (*mat.Dense, error) {
	n, c := coords.Dims()
	if c != 3 {
		return nil, fmt.Errorf("qm: coordinates are %dx%d, want Nx3", n, c)
	}

	var termIdx []int
	for _, d := range restrained {
		theta0 := param.DihedralAngle(coords, d)
		termIdx = append(termIdx, m.Sys.AddTerm(&torsionRestraint{d: d, k: restraintK, phase: theta0}))
	}
	defer func() {
		for i := len(termIdx) - 1; i >= 0; i-- {
			m.Sys.RemoveTerm(termIdx[i])
		}
	}()

	scratch := mat.NewDense(n, 3, nil)
	sgrad := mat.NewDense(n, 3, nil)
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			copy(scratch.RawMatrix().Data, x)
			return m.Sys.Eval(scratch, sgrad)
		},
		Grad: func(grad, x []float64) {
			copy(scratch.RawMatrix().Data, x)
			m.Sys.Eval(scratch, sgrad)
			copy(grad, sgrad.RawMatrix().Data)
		},
	}

	x := make([]float64, 0, 3*n)
	for i := 0; i < n; i++ {
		x = append(x, coords.At(i, 0), coords.At(i, 1), coords.At(i, 2))
	}

	settings := &optimize.Settings{GradientThreshold: forceTolerance}
	best := append([]float64(nil), x...)
	bestForce := math.Inf(1)
	for attempt := 0; attempt < maxAttempts; attempt++ {
		result, err := optimize.Minimize(problem, x, settings, &optimize.LBFGS{})
		if result == nil {
			return nil, fmt.Errorf("qm: minimization failed: %w", err)
		}
		x = result.X
		if f := maxForce(problem, x, n); f < bestForce {
			bestForce = f
			best = append(best[:0], x...)
		}
		if bestForce <= forceTolerance {
			break
		}
	}
	if bestForce > forceTolerance {
		m.Log.Warn("did not reach the force tolerance, returning the best structure",
			zap.Float64("max_force", bestForce),
			zap.Float64("tolerance", forceTolerance))
	}
	return mat.NewDense(n, 3, best), nil
}

func maxForce(p optimize.Problem, x []float64, n int) float64 {
	grad := make([]float64, 3*n)
	p.Grad(grad, x)
	var mf float64
	for _, g := range grad {
		if a := math.Abs(g); a > mf {
			mf = a
		}
	}
	return mf
}

// penaltyWeight scales the squared dihedral-equality residual added to
// the objective of the derivative-free minimizer.
const penaltyWeight = 1e4

// BlackBoxMinimizer relaxes a geometry against a scalar energy callback
// with a derivative-free simplex search. Dihedral restraints enter the
// objective as quadratic penalties on the sin(½Δθ) residual, zero exactly
// at the starting angle.
type BlackBoxMinimizer struct {
	Energy func(coords *mat.Dense) (float64, error)
	Log    *zap.Logger
}

func (m *BlackBoxMinimizer) Minimize(coords *mat.Dense, restrained []param.Dihedral) (*mat.Dense, error) {
	n, c := coords.Dims()
	if c != 3 {
		return nil, fmt.Errorf("qm: coordinates are %dx%d, want Nx3", n, c)
	}
	refs := make([]float64, len(restrained))
	for i, d := range restrained {
		refs[i] = param.DihedralAngle(coords, d)
	}

	var evalErr error
	scratch := mat.NewDense(n, 3, nil)
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			copy(scratch.RawMatrix().Data, x)
			e, err := m.Energy(scratch)
			if err != nil && evalErr == nil {
				evalErr = err
			}
			for i, d := range restrained {
				r := math.Sin(0.5 * (param.DihedralAngle(scratch, d) - refs[i]))
				e += penaltyWeight * r * r
			}
			return e
		},
	}

	x := make([]float64, 0, 3*n)
	for i := 0; i < n; i++ {
		x = append(x, coords.At(i, 0), coords.At(i, 1), coords.At(i, 2))
	}
	settings := &optimize.Settings{
		FuncEvaluations: 1000 * 3 * n,
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-3,
			Iterations: 100,
		},
	}
	result, err := optimize.Minimize(problem, x, settings, &optimize.NelderMead{})
	if evalErr != nil {
		return nil, fmt.Errorf("qm: energy callback failed: %w", evalErr)
	}
	if result == nil {
		return nil, fmt.Errorf("qm: minimization failed: %w", err)
	}
	return mat.NewDense(n, 3, result.X), nil
}
