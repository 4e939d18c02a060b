package param

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// Atom is one atom of a small molecule. Charge is the partial charge in
// units of the elementary charge, Mass is in amu.
type Atom struct {
	Name     string
	Element  string
	AtomType string
	Charge   float64
	Mass     float64
}

// Copy returns a deep copy of the atom.
func (a *Atom) Copy() *Atom {
	na := *a
	return &na
}

// Bond joins the atoms with indices A1 and A2. Type is the force-field
// bond-type label ("1", "2", "ar", "am", ...), Order the integer bond order
// where the label is numeric.
type Bond struct {
	A1, A2 int
	Type   string
	Order  int
}

// Copy returns a deep copy of the bond.
func (b *Bond) Copy() *Bond {
	nb := *b
	return &nb
}

// Molecule is a small molecule with one or more coordinate frames.
// Each frame is an N×3 matrix in Å. Charge is the total molecular charge.
type Molecule struct {
	Atoms  []*Atom
	Bonds  []*Bond
	Coords []*mat.Dense
	Charge int
}

// Len returns the number of atoms.
func (m *Molecule) Len() int {
	return len(m.Atoms)
}

// NFrames returns the number of coordinate frames.
func (m *Molecule) NFrames() int {
	return len(m.Coords)
}

// Copy returns a deep copy of the molecule. Pipeline operations that
// modify a molecule always do so on a copy.
func (m *Molecule) Copy() *Molecule {
	nm := &Molecule{
		Atoms:  make([]*Atom, 0, len(m.Atoms)),
		Bonds:  make([]*Bond, 0, len(m.Bonds)),
		Coords: make([]*mat.Dense, 0, len(m.Coords)),
		Charge: m.Charge,
	}
	for _, a := range m.Atoms {
		nm.Atoms = append(nm.Atoms, a.Copy())
	}
	for _, b := range m.Bonds {
		nm.Bonds = append(nm.Bonds, b.Copy())
	}
	for _, c := range m.Coords {
		nm.Coords = append(nm.Coords, mat.DenseCopyOf(c))
	}
	return nm
}

// AddFrame appends a coordinate frame. The frame must be Len()×3.
func (m *Molecule) AddFrame(coords *mat.Dense) error {
	r, c := coords.Dims()
	if r != m.Len() || c != 3 {
		return fmt.Errorf("param: frame is %dx%d, want %dx3", r, c, m.Len())
	}
	m.Coords = append(m.Coords, coords)
	return nil
}

// Names returns the atom names, in order.
func (m *Molecule) Names() []string {
	n := make([]string, m.Len())
	for i, a := range m.Atoms {
		n[i] = a.Name
	}
	return n
}

// Masses returns the atomic masses in amu, in order.
func (m *Molecule) Masses() []float64 {
	ms := make([]float64, m.Len())
	for i, a := range m.Atoms {
		ms[i] = a.Mass
	}
	return ms
}

// Charges returns the partial charges in e, in order.
func (m *Molecule) Charges() []float64 {
	q := make([]float64, m.Len())
	for i, a := range m.Atoms {
		q[i] = a.Charge
	}
	return q
}

// Adjacency returns, for every atom, the indices of its bonded neighbours.
func (m *Molecule) Adjacency() [][]int {
	adj := make([][]int, m.Len())
	for _, b := range m.Bonds {
		adj[b.A1] = append(adj[b.A1], b.A2)
		adj[b.A2] = append(adj[b.A2], b.A1)
	}
	return adj
}

// Dihedral holds the four atom indices of a proper dihedral, in chain order.
type Dihedral [4]int

// Name formats the dihedral with the names of its atoms, "C1-C2-C3-O1".
func (d Dihedral) Name(m *Molecule) string {
	names := make([]string, 4)
	for i, idx := range d {
		names[i] = m.Atoms[idx].Name
	}
	return strings.Join(names, "-")
}
