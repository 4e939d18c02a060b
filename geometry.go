package param

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

func row(coords *mat.Dense, i int) [3]float64 {
	return [3]float64{coords.At(i, 0), coords.At(i, 1), coords.At(i, 2)}
}

func sub3(a, b [3]float64) [3]float64 {
	return [3]float64{a[0] - b[0], a[1] - b[1], a[2] - b[2]}
}

func cross3(a, b [3]float64) [3]float64 {
	return [3]float64{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

func dot3(a, b [3]float64) float64 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}

func norm3(a [3]float64) float64 {
	return math.Sqrt(dot3(a, a))
}

// DihedralAngle returns the dihedral angle, in radians in (-π, π], defined
// by the four atoms of d in the given frame. The first plane is defined by
// atoms 0,1,2 and the second by atoms 1,2,3.
func DihedralAngle(coords *mat.Dense, d Dihedral) float64 {
	return dihedralPoints(row(coords, d[0]), row(coords, d[1]), row(coords, d[2]), row(coords, d[3]))
}

func dihedralPoints(a, b, c, d [3]float64) float64 {
	b1 := sub3(b, a)
	b2 := sub3(c, b)
	b3 := sub3(d, c)
	first := norm3(b2) * dot3(b1, cross3(b2, b3))
	second := dot3(cross3(b1, b2), cross3(b2, b3))
	return math.Atan2(first, second)
}

// RotateAboutAxis rotates, in place, the rows of coords listed in indices
// by angle radians around the line through origin with direction axis.
// The rotation follows the right-hand rule (Rodrigues form).
func RotateAboutAxis(coords *mat.Dense, indices []int, origin, axis [3]float64, angle float64) {
	n := norm3(axis)
	u := [3]float64{axis[0] / n, axis[1] / n, axis[2] / n}
	sin := math.Sin(angle)
	cos := math.Cos(angle)
	for _, i := range indices {
		v := sub3(row(coords, i), origin)
		uxv := cross3(u, v)
		uv := dot3(u, v)
		for k := 0; k < 3; k++ {
			coords.Set(i, k, origin[k]+v[k]*cos+uxv[k]*sin+u[k]*uv*(1-cos))
		}
	}
}

// SetDihedral rotates the side of the molecule connected to atom d[2]
// so that the dihedral of d in the given frame becomes angle (radians).
// The central bond may not be part of a ring.
func SetDihedral(m *Molecule, frame int, d Dihedral, angle float64) error {
	if frame < 0 || frame >= m.NFrames() {
		return fmt.Errorf("param: no frame %d in a %d-frame molecule", frame, m.NFrames())
	}
	moving, err := movingSide(m, d[1], d[2])
	if err != nil {
		return err
	}
	coords := m.Coords[frame]
	current := DihedralAngle(coords, d)
	b := row(coords, d[1])
	c := row(coords, d[2])
	RotateAboutAxis(coords, moving, c, sub3(c, b), angle-current)
	return nil
}

// movingSide walks the bond graph from j with the bond i--j removed and
// returns the atoms reached, j included. Reaching i means the bond closes
// a ring, which makes the rotation ill-defined.
func movingSide(m *Molecule, i, j int) ([]int, error) {
	adj := m.Adjacency()
	seen := make([]bool, m.Len())
	seen[j] = true
	queue := []int{j}
	out := []int{j}
	for len(queue) > 0 {
		at := queue[0]
		queue = queue[1:]
		for _, nb := range adj[at] {
			if at == j && nb == i {
				continue
			}
			if nb == i {
				return nil, fmt.Errorf("param: bond %d--%d is part of a ring", i, j)
			}
			if !seen[nb] {
				seen[nb] = true
				queue = append(queue, nb)
				out = append(out, nb)
			}
		}
	}
	return out, nil
}
