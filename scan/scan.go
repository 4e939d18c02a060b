// Package scan orchestrates dihedral rotamer scans: it generates the
// rotamer grids, routes them through a qm.Backend, and filters the
// returned conformer batches down to the records usable for fitting.
package scan

import (
	"fmt"
	"math"
	"path/filepath"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	param "github.com/rubbs14/parameterize"
	"github.com/rubbs14/parameterize/qm"
)

// NumRotamers is the number of rotamers computed per scanned dihedral,
// evenly spaced over [-π, π) starting at -π.
const NumRotamers = 36

// BackendFactory builds a backend for one job descriptor. The scan calls
// it once per dihedral, each time with its own clone of the base Calc.
type BackendFactory func(c *qm.Calc) (qm.Backend, error)

// Dihedrals scans every dihedral of dihedrals over NumRotamers rotamers
// and returns one result batch per dihedral, in order.
//
// scanType selects the treatment of each rotamer: "qm" relaxes it in the
// backend with the scanned dihedral restrained, "mm" pre-relaxes it with
// mmMinimizer and runs single points. Job directories are laid out as
// <outdir>/<dihedral-opt|dihedral-single-point>/<atom-names>/<method>/.
func Dihedrals(mol *param.Molecule, factory BackendFactory, base *qm.Calc,
	dihedrals []param.Dihedral, outdir, scanType string,
	mmMinimizer qm.Minimizer, log *zap.Logger) ([][]*qm.Result, error) {

	if log == nil {
		log = zap.NewNop()
	}
	if scanType != "qm" && scanType != "mm" {
		return nil, fmt.Errorf("scan: invalid scan type %q", scanType)
	}
	log.Info("number of rotamers per dihedral angle", zap.Int("rotamers", NumRotamers))

	// Rotamer grids, one multi-frame molecule per dihedral.
	molecules := make([]*param.Molecule, 0, len(dihedrals))
	for i, d := range dihedrals {
		log.Info("generate rotamers",
			zap.Int("dihedral", i+1), zap.String("atoms", d.Name(mol)))
		nm := mol.Copy()
		frames := make([]*mat.Dense, NumRotamers)
		for k := range frames {
			frames[k] = mat.DenseCopyOf(mol.Coords[0])
		}
		nm.Coords = frames
		for k := 0; k < NumRotamers; k++ {
			angle := -math.Pi + float64(k)*2*math.Pi/NumRotamers
			if err := param.SetDihedral(nm, k, d, angle); err != nil {
				return nil, fmt.Errorf("scan: dihedral %s: %w", d.Name(mol), err)
			}
		}
		molecules = append(molecules, nm)
	}

	if scanType == "mm" {
		if mmMinimizer == nil {
			return nil, fmt.Errorf("scan: mm scan needs a minimizer")
		}
		for i, d := range dihedrals {
			log.Info("minimize rotamers with MM",
				zap.Int("dihedral", i+1), zap.String("atoms", d.Name(mol)))
			nm := molecules[i]
			for k := 0; k < nm.NFrames(); k++ {
				min, err := mmMinimizer.Minimize(nm.Coords[k], []param.Dihedral{d})
				if err != nil {
					return nil, fmt.Errorf("scan: minimizing rotamer %d of %s: %w", k, d.Name(mol), err)
				}
				nm.Coords[k] = min
			}
		}
	}

	subdir := "dihedral-single-point"
	if scanType == "qm" {
		subdir = "dihedral-opt"
	}

	// Setup and submit every dihedral's job before retrieving any, so
	// asynchronous backends overlap their work.
	backends := make([]qm.Backend, 0, len(dihedrals))
	for i, d := range dihedrals {
		c := base.Clone()
		c.Molecule = molecules[i]
		c.ESPPoints = nil
		c.Optimize = scanType == "qm"
		c.RestrainedDihedrals = []param.Dihedral{d}
		c.Directory = filepath.Join(outdir, subdir, d.Name(mol), c.MethodName())
		backend, err := factory(c)
		if err != nil {
			return nil, fmt.Errorf("scan: building backend for %s: %w", d.Name(mol), err)
		}
		if err := backend.Setup(); err != nil {
			return nil, err
		}
		if err := backend.Submit(); err != nil {
			return nil, err
		}
		backends = append(backends, backend)
	}

	batches := make([][]*qm.Result, 0, len(dihedrals))
	log.Info("compute rotamer energies")
	for i, d := range dihedrals {
		log.Info("retrieve rotamer energies",
			zap.Int("dihedral", i+1), zap.String("atoms", d.Name(mol)))
		results, err := backends[i].Retrieve()
		if err != nil {
			return nil, fmt.Errorf("scan: retrieving %s: %w", d.Name(mol), err)
		}
		batches = append(batches, results)
	}
	return batches, nil
}

// Minimize relaxes a single-frame molecule and returns a copy with the
// relaxed geometry. minType "qm" runs a backend optimization under
// <outdir>/minimize/<method>/, "mm" uses mmMinimizer in-process, "none"
// returns the copy untouched.
func Minimize(mol *param.Molecule, factory BackendFactory, base *qm.Calc,
	outdir, minType string, mmMinimizer qm.Minimizer) (*param.Molecule, error) {

	if n := mol.NFrames(); n != 1 {
		return nil, fmt.Errorf("scan: minimization takes a single-frame molecule, got %d frames", n)
	}
	nm := mol.Copy()

	switch minType {
	case "qm":
		c := base.Clone()
		c.Molecule = nm
		c.ESPPoints = nil
		c.Optimize = true
		c.RestrainedDihedrals = nil
		c.Directory = filepath.Join(outdir, "minimize", c.MethodName())
		backend, err := factory(c)
		if err != nil {
			return nil, fmt.Errorf("scan: building backend: %w", err)
		}
		if err := backend.Setup(); err != nil {
			return nil, err
		}
		if err := backend.Submit(); err != nil {
			return nil, err
		}
		results, err := backend.Retrieve()
		if err != nil {
			return nil, err
		}
		if results[0].Errored {
			return nil, fmt.Errorf("scan: minimization failed, check logs at %s", c.Directory)
		}
		nm.Coords = []*mat.Dense{results[0].Coords}
	case "mm":
		if mmMinimizer == nil {
			return nil, fmt.Errorf("scan: mm minimization needs a minimizer")
		}
		min, err := mmMinimizer.Minimize(nm.Coords[0], nil)
		if err != nil {
			return nil, err
		}
		nm.Coords[0] = min
	case "none":
	default:
		return nil, fmt.Errorf("scan: invalid minimization mode %q", minType)
	}
	return nm, nil
}
