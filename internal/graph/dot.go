package graph

import (
	gographs "gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/encoding/dot"
	"gonum.org/v1/gonum/graph/simple"
)

type dotNode struct {
	id   int64
	name string
}

func (n dotNode) ID() int64     { return n.id }
func (n dotNode) DOTID() string { return n.name }

// Dot renders the dependency graph in graphviz DOT syntax, with an edge
// from each dependency to its dependent ("must complete before").
func (g *Graph) Dot(name string) ([]byte, error) {
	dg := simple.NewDirectedGraph()
	byName := make(map[string]gographs.Node, len(g.names))
	for idx, target := range g.names {
		n := dotNode{id: int64(idx), name: target}
		dg.AddNode(n)
		byName[target] = n
	}
	for _, target := range g.names {
		for _, dep := range g.nodes[target].Dependencies {
			dg.SetEdge(dg.NewEdge(byName[dep], byName[target]))
		}
	}
	return dot.Marshal(dg, name, "", "  ")
}
