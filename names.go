package param

import (
	"fmt"
	"regexp"
	"strconv"

	"go.uber.org/zap"
)

var nameSuffix = regexp.MustCompile(`^(.*?\D*)(\d*)$`)

// MakeAtomNamesUnique returns a copy of m where duplicated atom names are
// renamed by appending or incrementing a terminal digit suffix. Names that
// are already unique are preserved.
func MakeAtomNamesUnique(m *Molecule) *Molecule {
	nm := m.Copy()
	count := func(name string) (n, second int) {
		second = -1
		for i, a := range nm.Atoms {
			if a.Name == name {
				if n == 1 {
					second = i
				}
				n++
			}
		}
		return n, second
	}
	has := func(name string) bool {
		n, _ := count(name)
		return n > 0
	}
	for _, a := range nm.Atoms {
		for {
			n, second := count(a.Name)
			if n <= 1 {
				break
			}
			groups := nameSuffix.FindStringSubmatch(nm.Atoms[second].Name)
			prefix := groups[1]
			suffix := 0
			if groups[2] != "" {
				suffix, _ = strconv.Atoi(groups[2])
			}
			for has(prefix + strconv.Itoa(suffix)) {
				suffix++
			}
			nm.Atoms[second].Name = prefix + strconv.Itoa(suffix)
		}
	}
	return nm
}

// FixedChargeAtomIndices resolves atom names whose charge must stay fixed
// during charge fitting into atom indices. An unknown name is a
// configuration error.
func FixedChargeAtomIndices(m *Molecule, names []string, log *zap.Logger) ([]int, error) {
	var indices []int
	for _, name := range names {
		found := false
		for i, a := range m.Atoms {
			if a.Name == name {
				found = true
				indices = append(indices, i)
				if log != nil {
					log.Info("charge of atom is fixed",
						zap.String("atom", name),
						zap.Float64("charge", a.Charge))
				}
			}
		}
		if !found {
			return nil, fmt.Errorf("param: atom %s is not found, check the fixed-charge atom names", name)
		}
	}
	return indices, nil
}
