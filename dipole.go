package param

import (
	"fmt"
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

// CenterOfMass returns the mass-weighted center of the given frame, in Å.
func CenterOfMass(m *Molecule, frame int) ([3]float64, error) {
	var com [3]float64
	var total float64
	coords := m.Coords[frame]
	for i, a := range m.Atoms {
		total += a.Mass
		for k := 0; k < 3; k++ {
			com[k] += a.Mass * coords.At(i, k)
		}
	}
	if total == 0 {
		return com, fmt.Errorf("param: molecule has no masses")
	}
	for k := 0; k < 3; k++ {
		com[k] /= total
	}
	return com, nil
}

// Dipole returns the dipole moment of the given frame as (x, y, z, norm)
// in Debye, computed from the partial charges relative to the center of
// mass. A molecule without masses yields zeros and a warning.
func Dipole(m *Molecule, frame int, log *zap.Logger) [4]float64 {
	var dipole [4]float64
	com, err := CenterOfMass(m, frame)
	if err != nil {
		if log != nil {
			log.Warn("no masses in molecule, cannot calculate dipole")
		}
		return dipole
	}
	coords := m.Coords[frame]
	for i, a := range m.Atoms {
		for k := 0; k < 3; k++ {
			dipole[k] += a.Charge * (coords.At(i, k) - com[k])
		}
	}
	dipole[3] = math.Sqrt(dipole[0]*dipole[0] + dipole[1]*dipole[1] + dipole[2]*dipole[2])
	for k := range dipole {
		dipole[k] *= EAng2Debye
	}
	return dipole
}

// ESP evaluates the classical electrostatic potential of the frame's
// partial charges at each row of points (Å). Values are in Hartree/Bohr.
func ESP(m *Molecule, frame int, points *mat.Dense) []float64 {
	coords := m.Coords[frame]
	np, _ := points.Dims()
	values := make([]float64, np)
	for p := 0; p < np; p++ {
		pt := row(points, p)
		var v float64
		for i, a := range m.Atoms {
			d := norm3(sub3(pt, row(coords, i))) * Bohr2A // Angstrom to Bohr
			v += a.Charge / d
		}
		values[p] = v
	}
	return values
}
