// Package param holds the molecule data model and the geometric and
// physical primitives used by the parameterization pipeline: atoms with
// partial charges and masses, bonds with types, multi-frame cartesian
// coordinates (gonum N×3 matrices, in Å), dihedral manipulation and the
// dipole/center-of-mass helpers.
//
// Pipeline operations never mutate their input molecule; they work on a
// deep copy (see Molecule.Copy).
package param
