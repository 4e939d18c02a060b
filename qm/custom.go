package qm

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	param "github.com/rubbs14/parameterize"
	"github.com/rubbs14/parameterize/cache"
)

// Calculator is a pluggable single-point energy evaluator, typically a
// machine-learning potential. Energy takes an N×3 geometry in Å and the
// element symbols and returns kcal/mol.
type Calculator interface {
	Energy(coords *mat.Dense, elements []string) (float64, error)
}

// Custom imitates a QM backend with a Calculator. Optimization uses the
// configured Minimizer, defaulting to a derivative-free search over the
// calculator energy.
type Custom struct {
	Calc       *Calc
	Calculator Calculator
	Minimizer  Minimizer

	store cache.Store
	log   *zap.Logger
	state state
	jobID string
}

// NewCustom returns a Custom backend. A nil store selects a DirStore
// under the job directory at Setup.
func NewCustom(c *Calc, calculator Calculator, store cache.Store, log *zap.Logger) *Custom {
	if log == nil {
		log = zap.NewNop()
	}
	jobID := uuid.NewString()
	return &Custom{
		Calc:       c,
		Calculator: calculator,
		store:      store,
		log:        log.With(zap.String("backend", "custom"), zap.String("job", jobID)),
		jobID:      jobID,
	}
}

func (b *Custom) Setup() error {
	if err := requireState(b.state, stateConfigured, "Setup"); err != nil {
		return err
	}
	if err := b.Calc.validate(); err != nil {
		return err
	}
	if b.Calculator == nil {
		return fmt.Errorf("qm: no calculator in the custom backend")
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

// Submit marks the job as started; the calculator runs in-process during
// Retrieve.
func (b *Custom) Submit() error {
	if err := requireState(b.state, stateSetup, "Submit"); err != nil {
		return err
	}
	b.state = stateSubmitted
	return nil
}

func (b *Custom) Retrieve() ([]*Result, error) {
	if err := requireState(b.state, stateSubmitted, "Retrieve"); err != nil {
		return nil, err
	}
	mol := b.Calc.Molecule
	elements := make([]string, mol.Len())
	for i, a := range mol.Atoms {
		elements[i] = a.Element
	}

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

		start := time.Now()
		r := &Result{Coords: mat.DenseCopyOf(mol.Coords[frame])}

		if b.Calc.Optimize {
			if b.Minimizer == nil {
				b.Minimizer = &BlackBoxMinimizer{
					Energy: func(coords *mat.Dense) (float64, error) {
						return b.Calculator.Energy(coords, elements)
					},
					Log: b.log,
				}
			}
			min, err := b.Minimizer.Minimize(r.Coords, b.Calc.RestrainedDihedrals)
			if err != nil {
				return nil, err
			}
			r.Coords = min
			if err := b.writeGeometry(frame, r); err != nil {
				return nil, err
			}
		}

		energy, err := b.Calculator.Energy(r.Coords, elements)
		if err != nil {
			b.log.Warn("calculator failed, marking the frame as errored",
				zap.Int("frame", frame), zap.Error(err))
			r.Errored = true
		} else {
			r.Energy = energy
		}
		r.WallTime = time.Since(start)
		b.log.Info("calculator finished",
			zap.Int("frame", frame),
			zap.Duration("wall_time", r.WallTime))

		if err := b.store.Put(frame, r); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	b.state = stateRetrieved
	return results, nil
}

func (b *Custom) writeGeometry(frame int, r *Result) error {
	dir := filepath.Join(b.Calc.Directory, fmt.Sprintf("%05d", frame))
	if ds, ok := b.store.(*cache.DirStore); ok {
		var err error
		if dir, err = ds.FrameDir(frame); err != nil {
			return err
		}
	} else if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("qm: creating frame directory: %w", err)
	}
	final := b.Calc.Molecule.Copy()
	final.Coords = []*mat.Dense{r.Coords}
	return param.WriteXYZ(filepath.Join(dir, "mol.xyz"), final, 0, "optimized geometry")
}
