// Package chemgraph exposes a molecule's bond topology as a gonum graph
// and implements the graph walks used by the parameterization pipeline.
package chemgraph

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/traverse"

	param "github.com/rubbs14/parameterize"
)

// Topology is a molecule's bond graph. Node IDs are atom indices.
type Topology struct {
	*simple.UndirectedGraph
	mol *param.Molecule
	// bond index by atom pair, lower index first
	bonds map[[2]int]int
}

// NewTopology builds the bond graph of mol.
func NewTopology(mol *param.Molecule) *Topology {
	t := &Topology{
		UndirectedGraph: simple.NewUndirectedGraph(),
		mol:             mol,
		bonds:           make(map[[2]int]int, len(mol.Bonds)),
	}
	for i := 0; i < mol.Len(); i++ {
		t.AddNode(simple.Node(i))
	}
	for i, b := range mol.Bonds {
		t.SetEdge(t.NewEdge(simple.Node(b.A1), simple.Node(b.A2)))
		t.bonds[pairKey(b.A1, b.A2)] = i
	}
	return t
}

func pairKey(i, j int) [2]int {
	if i > j {
		i, j = j, i
	}
	return [2]int{i, j}
}

// BondIndex returns the index in mol.Bonds of the bond between atoms i
// and j, or -1 when they are not bonded.
func (t *Topology) BondIndex(i, j int) int {
	idx, ok := t.bonds[pairKey(i, j)]
	if !ok {
		return -1
	}
	return idx
}

// Neighbors returns the sorted indices of the atoms bonded to atom i.
func (t *Topology) Neighbors(i int) []int {
	var out []int
	nodes := t.From(int64(i))
	for nodes.Next() {
		out = append(out, int(nodes.Node().ID()))
	}
	sort.Ints(out)
	return out
}

// MovingSide returns the atoms connected to atom j once the bond i--j is
// removed, j included, in ascending order. It errors when the bond is part
// of a ring, since rotating around such a bond is ill-defined.
func MovingSide(mol *param.Molecule, i, j int) ([]int, error) {
	cut := NewTopology(mol)
	cut.RemoveEdge(int64(i), int64(j))
	var out []int
	bfs := traverse.BreadthFirst{}
	bfs.Walk(cut, simple.Node(j), func(n graph.Node, _ int) bool {
		out = append(out, int(n.ID()))
		return false
	})
	for _, at := range out {
		if at == i {
			return nil, fmt.Errorf("chemgraph: bond %d--%d is part of a ring", i, j)
		}
	}
	sort.Ints(out)
	return out, nil
}
