package chemgraph

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	param "github.com/rubbs14/parameterize"
)

// FixPhosphateTypes returns a copy of mol with the atom and bond types of
// phosphate groups corrected: every tetra-coordinated phosphorus gets
// exactly one P=O double bond, placed on its most positive terminal
// oxygen. Some typing tools mislabel these oxygens, which later breaks
// charge fitting.
func FixPhosphateTypes(mol *param.Molecule, log *zap.Logger) (*param.Molecule, error) {
	if log == nil {
		log = zap.NewNop()
	}
	nm := mol.Copy()
	t := NewTopology(nm)

	for p := 0; p < nm.Len(); p++ {
		if nm.Atoms[p].Element != "P" {
			continue
		}
		neighbors := t.Neighbors(p)
		if len(neighbors) != 4 {
			continue
		}

		var oxygens []int
		for _, nb := range neighbors {
			if nm.Atoms[nb].Element == "O" {
				oxygens = append(oxygens, nb)
			}
		}
		// The double bond has to go to the most positive oxygen.
		sort.SliceStable(oxygens, func(i, j int) bool {
			return nm.Atoms[oxygens[i]].Charge > nm.Atoms[oxygens[j]].Charge
		})

		numDouble := 0
		for _, o := range oxygens {
			var newAtom, newBond string
			var newOrder int
			switch nBonds := len(t.Neighbors(o)); {
			case nBonds == 2:
				newAtom, newBond, newOrder = "O.3", "1", 1
			case nBonds == 1 && numDouble == 0:
				newAtom, newBond, newOrder = "O.2", "2", 2
				numDouble++
			case nBonds == 1 && numDouble == 1:
				newAtom, newBond, newOrder = "O.3", "1", 1
			default:
				return nil, fmt.Errorf("chemgraph: oxygen %d has %d bonds, cannot fix phosphate", o, nBonds)
			}

			if old := nm.Atoms[o].AtomType; old != newAtom {
				nm.Atoms[o].AtomType = newAtom
				log.Info("change atom type",
					zap.Int("atom", o),
					zap.String("from", old),
					zap.String("to", newAtom))
			}
			bi := t.BondIndex(p, o)
			if old := nm.Bonds[bi].Type; old != newBond {
				nm.Bonds[bi].Type = newBond
				nm.Bonds[bi].Order = newOrder
				log.Info("change bond type",
					zap.Int("atom1", nm.Bonds[bi].A1),
					zap.Int("atom2", nm.Bonds[bi].A2),
					zap.String("from", old),
					zap.String("to", newBond))
			}
		}
	}
	return nm, nil
}
