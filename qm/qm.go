// Package qm runs the electronic-structure side of the parameterization
// pipeline through interchangeable backends: a molecular-mechanics
// imitation, a pluggable calculator (ML potentials) and a generic
// external program. All backends share one lifecycle, one result record
// and one per-frame disk cache.
package qm

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"strings"
	"time"

	"gonum.org/v1/gonum/mat"

	param "github.com/rubbs14/parameterize"
)

// Result is the outcome of one conformer's calculation. A failed
// calculation is data, not an error: Errored is set and the batch goes on.
type Result struct {
	Coords    *mat.Dense // optimized or input geometry, N×3 Å
	Energy    float64    // kcal/mol
	Dipole    [4]float64 // x, y, z, norm in Debye
	ESPPoints *mat.Dense // M×3 Å, nil when no ESP was requested
	ESPValues []float64  // Hartree/Bohr
	Errored   bool
	WallTime  time.Duration
}

// resultWire mirrors Result with raw slices, since mat.Dense does not
// survive gob on its own.
type resultWire struct {
	CoordRows int
	Coords    []float64
	Energy    float64
	Dipole    [4]float64
	ESPRows   int
	ESPPoints []float64
	ESPValues []float64
	Errored   bool
	WallTime  time.Duration
}

func flatten(m *mat.Dense) (rows int, data []float64) {
	if m == nil {
		return 0, nil
	}
	r, c := m.Dims()
	data = make([]float64, 0, r*c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			data = append(data, m.At(i, j))
		}
	}
	return r, data
}

func unflatten(rows int, data []float64) *mat.Dense {
	if rows == 0 {
		return nil
	}
	return mat.NewDense(rows, 3, data)
}

// GobEncode implements gob.GobEncoder.
func (r *Result) GobEncode() ([]byte, error) {
	w := resultWire{
		Energy:    r.Energy,
		Dipole:    r.Dipole,
		ESPValues: r.ESPValues,
		Errored:   r.Errored,
		WallTime:  r.WallTime,
	}
	w.CoordRows, w.Coords = flatten(r.Coords)
	w.ESPRows, w.ESPPoints = flatten(r.ESPPoints)
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(w); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// GobDecode implements gob.GobDecoder.
func (r *Result) GobDecode(b []byte) error {
	var w resultWire
	if err := gob.NewDecoder(bytes.NewReader(b)).Decode(&w); err != nil {
		return err
	}
	r.Coords = unflatten(w.CoordRows, w.Coords)
	r.Energy = w.Energy
	r.Dipole = w.Dipole
	r.ESPPoints = unflatten(w.ESPRows, w.ESPPoints)
	r.ESPValues = w.ESPValues
	r.Errored = w.Errored
	r.WallTime = w.WallTime
	return nil
}

// Calc describes one calculation job: the molecule (every frame is one
// conformer), what to compute and where the job's artifacts live.
type Calc struct {
	Molecule            *param.Molecule
	ESPPoints           *mat.Dense // M×3 Å; single-frame molecules only
	Optimize            bool
	RestrainedDihedrals []param.Dihedral
	Directory           string

	// Method identity, used to name job directories.
	Theory  string
	Basis   string
	Solvent string
}

// Clone returns a copy of the descriptor. The molecule pointer is shared;
// callers that mutate it must set their own.
func (c *Calc) Clone() *Calc {
	nc := *c
	nc.RestrainedDihedrals = append([]param.Dihedral(nil), c.RestrainedDihedrals...)
	return &nc
}

// MethodName returns "theory-basis-solvent" with the filename-unsafe
// characters of the basis replaced: '+' by "plus" and '*' by "star".
func (c *Calc) MethodName() string {
	basis := strings.ReplaceAll(c.Basis, "+", "plus")
	basis = strings.ReplaceAll(basis, "*", "star")
	return c.Theory + "-" + basis + "-" + c.Solvent
}

func (c *Calc) validate() error {
	if c.Molecule == nil {
		return fmt.Errorf("qm: no molecule in the calculation")
	}
	if c.Molecule.NFrames() == 0 {
		return fmt.Errorf("qm: molecule has no coordinate frames")
	}
	if c.Directory == "" {
		return fmt.Errorf("qm: no job directory set")
	}
	if c.ESPPoints != nil && c.Molecule.NFrames() != 1 {
		return fmt.Errorf("qm: ESP calculations take a single-frame molecule, got %d frames", c.Molecule.NFrames())
	}
	return nil
}

// Backend runs a Calc through the setup/submit/retrieve lifecycle.
// Setup validates the job and prepares its directory, Submit starts the
// work without waiting, Retrieve blocks until every frame has a result.
// Retrieve is idempotent: completed frames are served from the job
// cache, so interrupted batches resume where they stopped.
type Backend interface {
	Setup() error
	Submit() error
	Retrieve() ([]*Result, error)
}

type state int

const (
	stateConfigured state = iota
	stateSetup
	stateSubmitted
	stateRetrieved
)

func (s state) String() string {
	switch s {
	case stateConfigured:
		return "configured"
	case stateSetup:
		return "setup"
	case stateSubmitted:
		return "submitted"
	case stateRetrieved:
		return "retrieved"
	}
	return "unknown"
}

func requireState(have, want state, op string) error {
	if have != want {
		return fmt.Errorf("qm: %s needs a %s backend, got %s", op, want, have)
	}
	return nil
}
