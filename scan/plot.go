package scan

import (
	"fmt"
	"sort"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	param "github.com/rubbs14/parameterize"
	"github.com/rubbs14/parameterize/qm"
)

// ProfilePlot writes a PNG of a dihedral scan profile: relative energy in
// kcal/mol against the dihedral angle in degrees of each non-errored
// record. mol provides the atom names for the title.
func ProfilePlot(results []*qm.Result, d param.Dihedral, mol *param.Molecule, path string) error {
	pts := make(plotter.XYs, 0, len(results))
	minimum := 0.0
	first := true
	for _, r := range results {
		if r.Errored {
			continue
		}
		if first || r.Energy < minimum {
			minimum = r.Energy
			first = false
		}
	}
	if first {
		return fmt.Errorf("scan: no valid results to plot")
	}
	for _, r := range results {
		if r.Errored {
			continue
		}
		pts = append(pts, plotter.XY{
			X: param.DihedralAngle(r.Coords, d) * param.Rad2Deg,
			Y: r.Energy - minimum,
		})
	}
	sort.Slice(pts, func(i, j int) bool { return pts[i].X < pts[j].X })

	p := plot.New()
	p.Title.Text = d.Name(mol) + " scan"
	p.X.Label.Text = "dihedral (deg)"
	p.Y.Label.Text = "relative energy (kcal/mol)"
	line, points, err := plotter.NewLinePoints(pts)
	if err != nil {
		return fmt.Errorf("scan: plotting profile: %w", err)
	}
	p.Add(plotter.NewGrid(), line, points)
	if err := p.Save(16*vg.Centimeter, 12*vg.Centimeter, path); err != nil {
		return fmt.Errorf("scan: saving profile plot: %w", err)
	}
	return nil
}
