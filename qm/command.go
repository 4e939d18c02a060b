package qm

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	param "github.com/rubbs14/parameterize"
	"github.com/rubbs14/parameterize/cache"
)

const (
	commandInput  = "input.xyz"
	commandOutput = "output.log"
	commandOpt    = "opt.xyz"
)

// Command drives an external program, one process per frame. Setup writes
// an XYZ input in each frame directory, Submit starts the processes
// without waiting and Retrieve waits for them and parses their output.
//
// The program is expected to print a line containing "energy=<kcal/mol>"
// and, for optimizations, to leave the final geometry in opt.xyz next to
// the input. A nonzero exit marks the frame as errored; it never aborts
// the batch.
type Command struct {
	Calc *Calc
	Prog string
	Args []string

	store  cache.Store
	log    *zap.Logger
	state  state
	jobID  string
	cmds   map[int]*exec.Cmd
	stdout map[int]*os.File
}

// NewCommand returns a Command backend for the given program and
// arguments. The input file name is appended to the arguments. A nil
// store selects a DirStore under the job directory at Setup.
func NewCommand(c *Calc, prog string, args []string, store cache.Store, log *zap.Logger) *Command {
	if log == nil {
		log = zap.NewNop()
	}
	jobID := uuid.NewString()
	return &Command{
		Calc:  c,
		Prog:  prog,
		Args:  append([]string(nil), args...),
		store: store,
		log:   log.With(zap.String("backend", "command"), zap.String("job", jobID)),
		jobID: jobID,
	}
}

func (b *Command) Setup() error {
	if err := requireState(b.state, stateConfigured, "Setup"); err != nil {
		return err
	}
	if err := b.Calc.validate(); err != nil {
		return err
	}
	if b.Prog == "" {
		return fmt.Errorf("qm: no program in the command backend")
	}
	if b.store == nil {
		s, err := cache.NewDirStore(b.Calc.Directory, b.log)
		if err != nil {
			return err
		}
		b.store = s
	}
	mol := b.Calc.Molecule
	for frame := 0; frame < mol.NFrames(); frame++ {
		if b.store.Has(frame) {
			continue
		}
		dir, err := b.frameDir(frame)
		if err != nil {
			return err
		}
		if err := param.WriteXYZ(filepath.Join(dir, commandInput), mol, frame, b.Calc.MethodName()); err != nil {
			return err
		}
	}
	b.state = stateSetup
	return nil
}

// Submit starts one process per non-cached frame and returns without
// waiting for them.
func (b *Command) Submit() error {
	if err := requireState(b.state, stateSetup, "Submit"); err != nil {
		return err
	}
	b.cmds = make(map[int]*exec.Cmd)
	b.stdout = make(map[int]*os.File)
	for frame := 0; frame < b.Calc.Molecule.NFrames(); frame++ {
		if b.store.Has(frame) {
			continue
		}
		dir, err := b.frameDir(frame)
		if err != nil {
			return err
		}
		out, err := os.Create(filepath.Join(dir, commandOutput))
		if err != nil {
			return fmt.Errorf("qm: creating output file: %w", err)
		}
		cmd := exec.Command(b.Prog, append(append([]string(nil), b.Args...), commandInput)...)
		cmd.Dir = dir
		cmd.Stdout = out
		cmd.Stderr = out
		if err := cmd.Start(); err != nil {
			out.Close()
			return fmt.Errorf("qm: starting %s for frame %d: %w", b.Prog, frame, err)
		}
		b.log.Info("submitted frame", zap.Int("frame", frame), zap.String("dir", dir))
		b.cmds[frame] = cmd
		b.stdout[frame] = out
	}
	b.state = stateSubmitted
	return nil
}

func (b *Command) Retrieve() ([]*Result, error) {
	if err := requireState(b.state, stateSubmitted, "Retrieve"); err != nil {
		return nil, err
	}
	mol := b.Calc.Molecule
	results := make([]*Result, 0, mol.NFrames())
	for frame := 0; frame < mol.NFrames(); frame++ {
		if cmd, ok := b.cmds[frame]; ok {
			start := time.Now()
			err := cmd.Wait()
			b.stdout[frame].Close()
			r := b.collect(frame, err)
			r.WallTime = time.Since(start)
			if err := b.store.Put(frame, r); err != nil {
				return nil, err
			}
			results = append(results, r)
			continue
		}
		r := new(Result)
		if err := b.store.Load(frame, r); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	b.state = stateRetrieved
	return results, nil
}

// collect parses one finished frame. Any failure yields an errored
// record, never an aborted batch.
func (b *Command) collect(frame int, waitErr error) *Result {
	mol := b.Calc.Molecule
	r := &Result{Coords: mat.DenseCopyOf(mol.Coords[frame])}
	r.Dipole = param.Dipole(mol, frame, b.log)

	dir, err := b.frameDir(frame)
	if err != nil {
		b.log.Warn("cannot access frame directory", zap.Int("frame", frame), zap.Error(err))
		r.Errored = true
		return r
	}
	if waitErr != nil {
		b.log.Warn("external program failed",
			zap.Int("frame", frame), zap.String("dir", dir), zap.Error(waitErr))
		r.Errored = true
		return r
	}

	energy, err := parseEnergy(filepath.Join(dir, commandOutput))
	if err != nil {
		b.log.Warn("cannot parse program output",
			zap.Int("frame", frame), zap.String("dir", dir), zap.Error(err))
		r.Errored = true
		return r
	}
	r.Energy = energy

	if b.Calc.Optimize {
		_, coords, err := param.ReadXYZ(filepath.Join(dir, commandOpt))
		if err != nil {
			b.log.Warn("no optimized geometry from program",
				zap.Int("frame", frame), zap.String("dir", dir), zap.Error(err))
			r.Errored = true
			return r
		}
		r.Coords = coords
	}
	return r
}

func (b *Command) frameDir(frame int) (string, error) {
	if ds, ok := b.store.(*cache.DirStore); ok {
		return ds.FrameDir(frame)
	}
	dir := filepath.Join(b.Calc.Directory, fmt.Sprintf("%05d", frame))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("qm: creating frame directory: %w", err)
	}
	return dir, nil
}

// parseEnergy finds the last "energy=<value>" token in the program
// output. The value is taken to be in kcal/mol.
func parseEnergy(path string) (float64, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	var found bool
	var energy float64
	for _, line := range strings.Split(string(raw), "\n") {
		for _, field := range strings.Fields(line) {
			if !strings.HasPrefix(field, "energy=") {
				continue
			}
			v, err := strconv.ParseFloat(strings.TrimPrefix(field, "energy="), 64)
			if err != nil {
				return 0, fmt.Errorf("bad energy token %q: %w", field, err)
			}
			energy, found = v, true
		}
	}
	if !found {
		return 0, fmt.Errorf("no energy in %s", path)
	}
	return energy, nil
}
