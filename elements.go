package param

import (
	"fmt"
	"sort"
	"strings"
)

// elementData holds the subset of the periodic table handled by the
// pipeline.
var elementData = map[string]struct {
	Number int
	Mass   float64
}{
	"H":  {1, 1.008},
	"C":  {6, 12.011},
	"N":  {7, 14.007},
	"O":  {8, 15.999},
	"F":  {9, 18.998},
	"P":  {15, 30.974},
	"S":  {16, 32.06},
	"Cl": {17, 35.45},
	"Br": {35, 79.904},
	"I":  {53, 126.904},
}

// AtomicNumber returns the atomic number of an element symbol, or 0 when
// the element is unknown.
func AtomicNumber(element string) int {
	return elementData[element].Number
}

// AtomicMass returns the mass in amu of an element symbol, or 0 when the
// element is unknown.
func AtomicMass(element string) float64 {
	return elementData[element].Mass
}

// methodElements lists the element alphabet of each supported typing
// method.
var methodElements = map[string][]string{
	"CGenFF_2b6": {"H", "C", "N", "O", "F", "S", "P", "Cl", "Br", "I"},
	"GAFF":       {"H", "C", "N", "O", "F", "S", "P", "Cl", "Br", "I"},
	"GAFF2":      {"H", "C", "N", "O", "F", "S", "P", "Cl", "Br", "I"},
	"ANI-1x":     {"H", "C", "N", "O"},
	"ANI-2x":     {"H", "C", "N", "O", "F", "Cl", "S"},
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}

// GuessElements returns a copy of m with each atom's Element guessed from
// its name, restricted to the element alphabet of the given typing method.
// The C/Cl ambiguity is resolved through the atom's bond count.
func GuessElements(m *Molecule, method string) (*Molecule, error) {
	alphabet, ok := methodElements[method]
	if !ok {
		valid := make([]string, 0, len(methodElements))
		for k := range methodElements {
			valid = append(valid, k)
		}
		sort.Strings(valid)
		return nil, fmt.Errorf("param: invalid method %q, valid methods: %s", method, strings.Join(valid, ","))
	}

	nm := m.Copy()
	var adj [][]int
	for i, a := range nm.Atoms {
		var candidates []string
		for _, el := range alphabet {
			if strings.HasPrefix(capitalize(a.Name), el) {
				candidates = append(candidates, el)
			}
		}
		if len(candidates) == 1 {
			a.Element = candidates[0]
			continue
		}
		if len(candidates) == 2 && candidates[0] == "C" && candidates[1] == "Cl" {
			if len(nm.Bonds) == 0 {
				return nil, fmt.Errorf("param: no chemical bonds found in the molecule")
			}
			if adj == nil {
				adj = nm.Adjacency()
			}
			switch len(adj[i]) {
			case 2, 3, 4:
				a.Element = "C"
				continue
			case 1:
				a.Element = "Cl"
				continue
			}
		}
		return nil, fmt.Errorf("param: cannot guess element from atom name %q: it does not match any of the expected elements (%s) for %s",
			a.Name, strings.Join(alphabet, ", "), method)
	}
	return nm, nil
}
