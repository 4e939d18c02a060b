package chemgraph

import (
	"fmt"
	"sort"

	param "github.com/rubbs14/parameterize"
)

// ChiralCenter is a detected stereocenter: the atom index and its
// handedness label, "R", "S" or "?" when the geometry is degenerate.
type ChiralCenter struct {
	Atom  int
	Label string
}

// DetectChiralCenters finds the chiral carbons of a single-frame molecule
// and assigns their handedness. Substituent priorities come from an
// iterative neighborhood-refinement ranking over element numbers; a carbon
// whose four substituents all rank differently is a stereocenter. The
// labels are stable for a given topology, which is what signature
// comparison between conformers needs.
func DetectChiralCenters(mol *param.Molecule) ([]ChiralCenter, error) {
	if n := mol.NFrames(); n != 1 {
		return nil, fmt.Errorf("chemgraph: molecule can have just one frame, but it has %d", n)
	}
	t := NewTopology(mol)
	ranks := refineRanks(mol, t)
	coords := mol.Coords[0]

	var centers []ChiralCenter
	for c := 0; c < mol.Len(); c++ {
		if mol.Atoms[c].Element != "C" {
			continue
		}
		subs := t.Neighbors(c)
		if len(subs) != 4 {
			continue
		}
		sort.Slice(subs, func(i, j int) bool { return ranks[subs[i]] > ranks[subs[j]] })
		distinct := true
		for i := 0; i < 3; i++ {
			if ranks[subs[i]] == ranks[subs[i+1]] {
				distinct = false
				break
			}
		}
		if !distinct {
			continue
		}

		// Handedness from the signed volume spanned by the three
		// highest-priority substituents around the center.
		center := atomPos(coords, c)
		v1 := sub(atomPos(coords, subs[0]), center)
		v2 := sub(atomPos(coords, subs[1]), center)
		v3 := sub(atomPos(coords, subs[2]), center)
		det := v1[0]*(v2[1]*v3[2]-v2[2]*v3[1]) -
			v1[1]*(v2[0]*v3[2]-v2[2]*v3[0]) +
			v1[2]*(v2[0]*v3[1]-v2[1]*v3[0])

		label := "?"
		switch {
		case det > 1e-6:
			label = "S"
		case det < -1e-6:
			label = "R"
		}
		centers = append(centers, ChiralCenter{Atom: c, Label: label})
	}
	return centers, nil
}

func atomPos(coords interface{ At(i, j int) float64 }, i int) [3]float64 {
	return [3]float64{coords.At(i, 0), coords.At(i, 1), coords.At(i, 2)}
}

func sub(a, b [3]float64) [3]float64 {
	return [3]float64{a[0] - b[0], a[1] - b[1], a[2] - b[2]}
}

// refineRanks assigns each atom an integer rank such that two atoms get
// the same rank only when their chemical neighborhoods are identical.
// Seeds are atomic numbers; each round re-ranks atoms by their current
// rank plus the multiset of neighbour ranks, until stable.
func refineRanks(mol *param.Molecule, t *Topology) []int {
	n := mol.Len()
	ranks := make([]int, n)
	for i, a := range mol.Atoms {
		ranks[i] = param.AtomicNumber(a.Element)
	}
	for iter := 0; iter < n; iter++ {
		keys := make([]string, n)
		for i := 0; i < n; i++ {
			nb := t.Neighbors(i)
			nbRanks := make([]int, len(nb))
			for k, j := range nb {
				nbRanks[k] = ranks[j]
			}
			sort.Sort(sort.Reverse(sort.IntSlice(nbRanks)))
			keys[i] = fmt.Sprintf("%08d|%v", ranks[i], nbRanks)
		}
		uniq := append([]string(nil), keys...)
		sort.Strings(uniq)
		uniq = dedup(uniq)
		newRanks := make([]int, n)
		for i, k := range keys {
			newRanks[i] = sort.SearchStrings(uniq, k)
		}
		if equalInts(ranks, newRanks) {
			break
		}
		ranks = newRanks
	}
	return ranks
}

func dedup(s []string) []string {
	out := s[:0]
	for i, v := range s {
		if i == 0 || s[i-1] != v {
			out = append(out, v)
		}
	}
	return out
}

func equalInts(a, b []int) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
