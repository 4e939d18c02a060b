package param

// Conversion factors and physical constants.
const (
	Deg2Rad = 0.0174533
	Rad2Deg = 1 / 0.0174533
	H2Kcal  = 627.509 // Hartree to kcal/mol
	Kcal2H  = 1 / 627.509
	KJ2Kcal = 1 / 4.184
	Kcal2KJ = 4.184
	A2Bohr  = 1.889725989
	Bohr2A  = 1 / 1.889725989

	// EAng2Debye converts a dipole in e·Å to Debye:
	// 1e11 · elementary charge · speed of light.
	EAng2Debye = 1e11 * 1.602176634e-19 * 2.99792458e8
)
