package scan

import (
	"fmt"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	param "github.com/rubbs14/parameterize"
	"github.com/rubbs14/parameterize/chemgraph"
	"github.com/rubbs14/parameterize/qm"
)

// EnergyWindow is the maximum energy above each batch's minimum, in
// kcal/mol, for a conformer to be kept.
const EnergyWindow = 20.0

// Filter drops the unusable records of each batch, preserving batch
// grouping and order. Records are removed, in this order of checks, when
// the calculation errored, when the conformer's chiral-center signature
// differs from refMol's, and when the energy lies more than EnergyWindow
// above the batch minimum. A nil refMol skips the chirality check.
// Every drop is logged with its reason.
func Filter(batches [][]*qm.Result, refMol *param.Molecule, log *zap.Logger) ([][]*qm.Result, error) {
	if log == nil {
		log = zap.NewNop()
	}

	var refCenters string
	var probe *param.Molecule
	if refMol != nil {
		centers, err := chemgraph.DetectChiralCenters(refMol)
		if err != nil {
			return nil, fmt.Errorf("scan: reference molecule: %w", err)
		}
		refCenters = chiralSignature(centers)
		probe = refMol.Copy()
	}

	filtered := make([][]*qm.Result, 0, len(batches))
	for _, batch := range batches {
		valid := make([]*qm.Result, 0, len(batch))
		for _, r := range batch {
			if r.Errored {
				log.Warn("rotamer removed due to a failed calculation")
				continue
			}
			if probe != nil {
				probe.Coords = []*mat.Dense{r.Coords}
				centers, err := chemgraph.DetectChiralCenters(probe)
				if err != nil {
					return nil, fmt.Errorf("scan: conformer: %w", err)
				}
				if sig := chiralSignature(centers); sig != refCenters {
					log.Warn("rotamer removed due to a change of chiral centers",
						zap.String("from", refCenters), zap.String("to", sig))
					continue
				}
			}
			valid = append(valid, r)
		}

		if len(valid) > 0 {
			minimum := valid[0].Energy
			for _, r := range valid[1:] {
				if r.Energy < minimum {
					minimum = r.Energy
				}
			}
			kept := make([]*qm.Result, 0, len(valid))
			for _, r := range valid {
				relative := r.Energy - minimum
				if relative < EnergyWindow {
					kept = append(kept, r)
					continue
				}
				log.Warn("rotamer removed due to high energy",
					zap.Float64("relative_energy", relative),
					zap.Float64("window", EnergyWindow))
			}
			valid = kept
		}
		filtered = append(filtered, valid)
	}
	return filtered, nil
}

func chiralSignature(centers []chemgraph.ChiralCenter) string {
	return fmt.Sprintf("%v", centers)
}
