package qm

import (
	"math"

	"gonum.org/v1/gonum/mat"

	param "github.com/rubbs14/parameterize"
)

// Term is one energy contribution of a molecular-mechanics system. Eval
// returns the energy in kcal/mol for the N×3 coords and adds the gradient
// in kcal/mol/Å into grad, which has the same shape.
type Term interface {
	Eval(coords *mat.Dense, grad *mat.Dense) float64
}

// System is an explicit, owned container of energy terms. Restraints are
// added for the duration of one minimization and removed afterwards, so
// a shared System never leaks them between calls.
type System struct {
	terms []Term
}

// NewSystem returns a system over the given terms.
func NewSystem(terms ...Term) *System {
	return &System{terms: append([]Term(nil), terms...)}
}

// AddTerm appends a term and returns its index.
func (s *System) AddTerm(t Term) int {
	s.terms = append(s.terms, t)
	return len(s.terms) - 1
}

// RemoveTerm deletes the term at idx. Callers removing several terms must
// do so in descending index order.
func (s *System) RemoveTerm(idx int) {
	s.terms = append(s.terms[:idx], s.terms[idx+1:]...)
}

// NTerms returns the number of terms.
func (s *System) NTerms() int {
	return len(s.terms)
}

// Eval returns the total energy and writes the total gradient into grad.
func (s *System) Eval(coords *mat.Dense, grad *mat.Dense) float64 {
	grad.Zero()
	var e float64
	for _, t := range s.terms {
		e += t.Eval(coords, grad)
	}
	return e
}

// torsionRestraint is a periodic torsion E = k(1 + cos(φ - phase)) with a
// large negative k, which pins the dihedral to the phase angle during a
// restrained minimization.
type torsionRestraint struct {
	d     param.Dihedral
	k     float64 // kcal/mol
	phase float64 // radians
}

func (t *torsionRestraint) Eval(coords *mat.Dense, grad *mat.Dense) float64 {
	phi, dphi := dihedralGradient(coords, t.d)
	dE := -t.k * math.Sin(phi-t.phase)
	for i, at := range t.d {
		for k := 0; k < 3; k++ {
			grad.Set(at, k, grad.At(at, k)+dE*dphi[i][k])
		}
	}
	return t.k * (1 + math.Cos(phi-t.phase))
}

// dihedralGradient returns the dihedral angle of d and the derivative of
// the angle with respect to each of the four atom positions, using the
// Blondel-Karplus formulation.
func dihedralGradient(coords *mat.Dense, d param.Dihedral) (float64, [4][3]float64) {
	p := [4][3]float64{}
	for i, at := range d {
		for k := 0; k < 3; k++ {
			p[i][k] = coords.At(at, k)
		}
	}
	b1 := vsub(p[1], p[0])
	b2 := vsub(p[2], p[1])
	b3 := vsub(p[3], p[2])
	n1 := vcross(b1, b2)
	n2 := vcross(b2, b3)
	nb2 := vnorm(b2)
	n1sq := vdot(n1, n1)
	n2sq := vdot(n2, n2)

	phi := math.Atan2(nb2*vdot(b1, n2), vdot(n1, n2))

	var dphi [4][3]float64
	d1 := vscale(-nb2/n1sq, n1)
	d4 := vscale(nb2/n2sq, n2)
	c := vdot(b1, b2) / (nb2 * nb2)
	e := vdot(b3, b2) / (nb2 * nb2)
	d2 := vsub(vscale(c-1, d1), vscale(e, d4))
	d3 := vsub(vscale(e-1, d4), vscale(c, d1))
	dphi[0], dphi[1], dphi[2], dphi[3] = d1, d2, d3, d4
	return phi, dphi
}

func vsub(a, b [3]float64) [3]float64 {
	return [3]float64{a[0] - b[0], a[1] - b[1], a[2] - b[2]}
}

func vcross(a, b [3]float64) [3]float64 {
	return [3]float64{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

func vdot(a, b [3]float64) float64 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}

func vnorm(a [3]float64) float64 {
	return math.Sqrt(vdot(a, a))
}

func vscale(s float64, a [3]float64) [3]float64 {
	return [3]float64{s * a[0], s * a[1], s * a[2]}
}
