package param

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// WriteXYZ writes one coordinate frame of m in XYZ format.
func WriteXYZ(path string, m *Molecule, frame int, comment string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("param: writing xyz: %w", err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	coords := m.Coords[frame]
	fmt.Fprintf(w, "%d\n%s\n", m.Len(), comment)
	for i, a := range m.Atoms {
		el := a.Element
		if el == "" {
			el = a.Name
		}
		fmt.Fprintf(w, "%-2s %12.6f %12.6f %12.6f\n", el, coords.At(i, 0), coords.At(i, 1), coords.At(i, 2))
	}
	return w.Flush()
}

// ReadXYZ reads an XYZ file and returns the element symbols and an N×3
// coordinate matrix in Å.
func ReadXYZ(path string) ([]string, *mat.Dense, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("param: reading xyz: %w", err)
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	if !sc.Scan() {
		return nil, nil, fmt.Errorf("param: %s: empty xyz file", path)
	}
	n, err := strconv.Atoi(strings.TrimSpace(sc.Text()))
	if err != nil {
		return nil, nil, fmt.Errorf("param: %s: bad atom count: %w", path, err)
	}
	sc.Scan() // comment line
	elements := make([]string, 0, n)
	coords := mat.NewDense(n, 3, nil)
	for i := 0; i < n; i++ {
		if !sc.Scan() {
			return nil, nil, fmt.Errorf("param: %s: truncated xyz file at atom %d", path, i)
		}
		fields := strings.Fields(sc.Text())
		if len(fields) < 4 {
			return nil, nil, fmt.Errorf("param: %s: malformed xyz line %q", path, sc.Text())
		}
		elements = append(elements, fields[0])
		for k := 0; k < 3; k++ {
			v, err := strconv.ParseFloat(fields[k+1], 64)
			if err != nil {
				return nil, nil, fmt.Errorf("param: %s: bad coordinate: %w", path, err)
			}
			coords.Set(i, k, v)
		}
	}
	return elements, coords, sc.Err()
}
