package qm

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	param "github.com/rubbs14/parameterize"
	"github.com/rubbs14/parameterize/cache"
)

// MM imitates a QM backend with a molecular-mechanics System. It computes
// every frame synchronously during Retrieve, caching each finished frame
// so a repeated run loads instead of recomputing.
type MM struct {
	Calc *Calc

	sys   *System
	min   *MMMinimizer
	store cache.Store
	log   *zap.Logger
	state state
	jobID string
}

// NewMM returns an MM backend over the given System. A nil store selects
// a DirStore under the job directory at Setup; a nil logger is replaced
// by a no-op one.
func NewMM(c *Calc, sys *System, store cache.Store, log *zap.Logger) *MM {
	if log == nil {
		log = zap.NewNop()
	}
	jobID := uuid.NewString()
	return &MM{
		Calc:  c,
		sys:   sys,
		min:   NewMMMinimizer(sys, log),
		store: store,
		log:   log.With(zap.String("backend", "mm"), zap.String("job", jobID)),
		jobID: jobID,
	}
}

func (b *MM) Setup() error {
	if err := requireState(b.state, stateConfigured, "Setup"); err != nil {
		return err
	}
	if err := b.Calc.validate(); err != nil {
		return err
	}
	if b.sys == nil {
		return fmt.Errorf("qm: no system in the MM backend")
	}
	if b.store == nil {
		s, err := cache.NewDirStore(b.Calc.Directory, b.log)
		if err != nil {
			return err
		}
		b.store = s
	}
	b.state = stateSetup
	return nil
}

// Submit marks the job as started. The actual work is synchronous and
// happens at Retrieve, as there is no external process to hand off to.
func (b *MM) Submit() error {
	if err := requireState(b.state, stateSetup, "Submit"); err != nil {
		return err
	}
	b.state = stateSubmitted
	return nil
}

func (b *MM) Retrieve() ([]*Result, error) {
	if err := requireState(b.state, stateSubmitted, "Retrieve"); err != nil {
		return nil, err
	}
	mol := b.Calc.Molecule
	results := make([]*Result, 0, mol.NFrames())
	for frame := 0; frame < mol.NFrames(); frame++ {
		if b.store.Has(frame) {
			r := new(Result)
			if err := b.store.Load(frame, r); err != nil {
				return nil, err
			}
			results = append(results, r)
			continue
		}
		r, err := b.compute(frame)
		if err != nil {
			return nil, err
		}
		if err := b.store.Put(frame, r); err != nil {
			return nil, err
		}
		if err := b.writeGeometries(frame, r); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	b.state = stateRetrieved
	return results, nil
}

func (b *MM) compute(frame int) (*Result, error) {
	mol := b.Calc.Molecule
	r := &Result{Coords: mat.DenseCopyOf(mol.Coords[frame])}

	if b.Calc.Optimize {
		min, err := b.min.Minimize(r.Coords, b.Calc.RestrainedDihedrals)
		if err != nil {
			return nil, err
		}
		r.Coords = min
	}

	grad := mat.NewDense(mol.Len(), 3, nil)
	r.Energy = b.sys.Eval(r.Coords, grad)
	r.Dipole = param.Dipole(mol, frame, b.log)

	if b.Calc.ESPPoints != nil {
		espMol := mol.Copy()
		espMol.Coords = []*mat.Dense{r.Coords}
		r.ESPPoints = mat.DenseCopyOf(b.Calc.ESPPoints)
		r.ESPValues = param.ESP(espMol, 0, r.ESPPoints)
	}
	return r, nil
}

// writeGeometries drops the input and final geometries next to the cached
// record, for inspection.
func (b *MM) writeGeometries(frame int, r *Result) error {
	dir := filepath.Join(b.Calc.Directory, fmt.Sprintf("%05d", frame))
	if ds, ok := b.store.(*cache.DirStore); ok {
		var err error
		if dir, err = ds.FrameDir(frame); err != nil {
			return err
		}
	} else if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("qm: creating frame directory: %w", err)
	}
	mol := b.Calc.Molecule
	if err := param.WriteXYZ(filepath.Join(dir, "mol-init.xyz"), mol, frame, "input geometry"); err != nil {
		return err
	}
	final := mol.Copy()
	final.Coords = []*mat.Dense{r.Coords}
	return param.WriteXYZ(filepath.Join(dir, "mol.xyz"), final, 0, "final geometry")
}
