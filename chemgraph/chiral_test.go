package chemgraph

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	param "github.com/rubbs14/parameterize"
)

// chfclbr builds bromochlorofluoromethane, the smallest chiral molecule
// of the supported elements. mirror flips it through the xy plane.
func chfclbr(mirror bool) *param.Molecule {
	coords := []float64{
		0, 0, 0, // C
		0, 0, 1.09, // H
		1.25, 0, -0.44, // F
		-0.86, 1.49, -0.60, // Cl
		-0.86, -1.49, -0.60, // Br
	}
	if mirror {
		for i := 2; i < len(coords); i += 3 {
			coords[i] = -coords[i]
		}
	}
	return &param.Molecule{
		Atoms: []*param.Atom{
			{Name: "C1", Element: "C"},
			{Name: "H1", Element: "H"},
			{Name: "F1", Element: "F"},
			{Name: "CL1", Element: "Cl"},
			{Name: "BR1", Element: "Br"},
		},
		Bonds: []*param.Bond{
			{A1: 0, A2: 1}, {A1: 0, A2: 2}, {A1: 0, A2: 3}, {A1: 0, A2: 4},
		},
		Coords: []*mat.Dense{mat.NewDense(5, 3, coords)},
	}
}

func TestDetectChiralCenters(t *testing.T) {
	centers, err := DetectChiralCenters(chfclbr(false))
	require.NoError(t, err)
	require.Len(t, centers, 1)
	require.Equal(t, 0, centers[0].Atom)
	require.Contains(t, []string{"R", "S"}, centers[0].Label)

	mirrored, err := DetectChiralCenters(chfclbr(true))
	require.NoError(t, err)
	require.Len(t, mirrored, 1)
	require.NotEqual(t, centers[0].Label, mirrored[0].Label)
}

func TestDetectChiralCentersSymmetric(t *testing.T) {
	// CH2FCl: two identical hydrogens, no stereocenter.
	m := chfclbr(false)
	m.Atoms[4] = &param.Atom{Name: "H2", Element: "H"}
	centers, err := DetectChiralCenters(m)
	require.NoError(t, err)
	require.Empty(t, centers)
}

func TestDetectChiralCentersFrameCheck(t *testing.T) {
	m := chfclbr(false)
	m.Coords = append(m.Coords, mat.DenseCopyOf(m.Coords[0]))
	_, err := DetectChiralCenters(m)
	require.ErrorContains(t, err, "one frame")
}

func TestChiralLabelsStableAcrossConformers(t *testing.T) {
	// A rigid translation must not change the labels.
	m := chfclbr(false)
	before, err := DetectChiralCenters(m)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		for k := 0; k < 3; k++ {
			m.Coords[0].Set(i, k, m.Coords[0].At(i, k)+3.5)
		}
	}
	after, err := DetectChiralCenters(m)
	require.NoError(t, err)
	require.Equal(t, before, after)
}
