// Package graph builds the dependency graph over manifest targets,
// validates it (duplicate names, dangling references, cycles) and answers
// ordering and staleness queries over it.
//
// A Graph is immutable after FromManifest and can be shared across
// goroutines by reference.
package graph

import (
	"path/filepath"

	"github.com/BobTheZombie/crust/internal/manifest"
	"github.com/BobTheZombie/crust/internal/mtime"
)

// Kind enumerates the target kinds crust can schedule.
type Kind int

const (
	Executable Kind = iota
	StaticLibrary
	SharedLibrary
	CustomCommand
)

func (k Kind) String() string {
	switch k {
	case Executable:
		return "executable"
	case StaticLibrary:
		return "static_library"
	case SharedLibrary:
		return "shared_library"
	case CustomCommand:
		return "custom_command"
	}
	return "unknown"
}

// Node is one target, the unit of scheduling.
type Node struct {
	Name string
	Kind Kind

	// Sources are manifest-relative input paths (the declared inputs for
	// custom commands).
	Sources []string

	// Dependencies lists target names which must complete before this node
	// runs, in declared order.
	Dependencies []string

	// Outputs are output paths relative to the build directory. Never empty:
	// derived from the target name for compiled kinds, declared for custom
	// commands.
	Outputs []string

	// Command is set iff Kind == CustomCommand.
	Command string
}

// Graph maps target names to nodes. The names slice preserves manifest
// declaration order so that iteration and tie-breaking are stable.
type Graph struct {
	nodes map[string]*Node
	names []string
}

// FromManifest constructs and validates the dependency graph for m. It
// fails with *DuplicateNameError, *UnknownDependencyError or *CycleError
// before any build work runs.
func FromManifest(m *manifest.Manifest) (*Graph, error) {
	g := &Graph{nodes: make(map[string]*Node, len(m.Targets))}
	for i := range m.Targets {
		t := &m.Targets[i]
		if _, ok := g.nodes[t.Name]; ok {
			return nil, &DuplicateNameError{Name: t.Name}
		}
		n := &Node{
			Name:         t.Name,
			Sources:      t.BuildInputs(),
			Dependencies: t.Deps,
		}
		switch t.Type {
		case manifest.TypeExecutable:
			n.Kind = Executable
			n.Outputs = []string{t.Name}
		case manifest.TypeStaticLibrary:
			n.Kind = StaticLibrary
			n.Outputs = []string{"lib" + t.Name + ".a"}
		case manifest.TypeSharedLibrary:
			n.Kind = SharedLibrary
			n.Outputs = []string{"lib" + t.Name + ".so"}
		case manifest.TypeCustomCommand:
			n.Kind = CustomCommand
			n.Outputs = t.Outputs
			n.Command = t.Command
		}
		g.nodes[n.Name] = n
		g.names = append(g.names, n.Name)
	}

	if err := g.validateDependencies(); err != nil {
		return nil, err
	}
	if err := g.checkCycles(); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *Graph) validateDependencies() error {
	for _, name := range g.names {
		for _, dep := range g.nodes[name].Dependencies {
			if _, ok := g.nodes[dep]; !ok {
				return &UnknownDependencyError{Dep: dep, From: name}
			}
		}
	}
	return nil
}

// checkCycles runs a depth-first search with two marks per node: inProgress
// (on the current DFS stack) and done. Reaching an inProgress node again
// means the dependency edges contain a cycle. The result does not depend on
// the order in which seed nodes are visited, but iterating names keeps the
// reported node deterministic.
func (g *Graph) checkCycles() error {
	inProgress := make(map[string]bool)
	done := make(map[string]bool)

	var visit func(name string) error
	visit = func(name string) error {
		if done[name] {
			return nil
		}
		if inProgress[name] {
			return &CycleError{Node: name}
		}
		inProgress[name] = true
		for _, dep := range g.nodes[name].Dependencies {
			if err := visit(dep); err != nil {
				return err
			}
		}
		delete(inProgress, name)
		done[name] = true
		return nil
	}

	for _, name := range g.names {
		if err := visit(name); err != nil {
			return err
		}
	}
	return nil
}

// Node returns the node with the given name, or nil.
func (g *Graph) Node(name string) *Node {
	return g.nodes[name]
}

// Nodes returns all nodes in manifest declaration order.
func (g *Graph) Nodes() []*Node {
	nodes := make([]*Node, len(g.names))
	for idx, name := range g.names {
		nodes[idx] = g.nodes[name]
	}
	return nodes
}

// NumNodes returns the number of targets in the graph.
func (g *Graph) NumNodes() int {
	return len(g.names)
}

// TopoOrder returns the nodes in a dependency-respecting linearization:
// every dependency precedes its dependents. Nodes without dependencies are
// taken in manifest declaration order, later nodes in the order they become
// ready, so the result is stable for a given manifest.
// Validation already rejected cyclic graphs; a cycle showing up here anyway
// is reported as *CycleError.
func (g *Graph) TopoOrder() ([]*Node, error) {
	inDegree := make(map[string]int, len(g.names))
	dependents := make(map[string][]string)
	for _, name := range g.names {
		inDegree[name] = len(g.nodes[name].Dependencies)
		for _, dep := range g.nodes[name].Dependencies {
			dependents[dep] = append(dependents[dep], name)
		}
	}

	var queue []string
	for _, name := range g.names {
		if inDegree[name] == 0 {
			queue = append(queue, name)
		}
	}

	order := make([]*Node, 0, len(g.names))
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		order = append(order, g.nodes[name])
		for _, child := range dependents[name] {
			inDegree[child]--
			if inDegree[child] == 0 {
				queue = append(queue, child)
			}
		}
	}

	if len(order) != len(g.names) {
		for _, name := range g.names {
			if inDegree[name] > 0 {
				return nil, &CycleError{Node: name}
			}
		}
		return nil, &CycleError{}
	}
	return order, nil
}

// IsOutdated reports whether the generated backend output is stale with
// respect to the manifest and all declared sources: true when
// backendOutputs is empty, when any of them is missing, or when the newest
// time among the manifest and all existing sources is strictly newer than
// the oldest backend output. Sources which do not exist yet (e.g. outputs
// of custom commands) are skipped.
func (g *Graph) IsOutdated(manifestPath string, backendOutputs []string) (bool, error) {
	if len(backendOutputs) == 0 {
		return true, nil
	}
	missing, err := mtime.Missing(backendOutputs)
	if err != nil {
		return false, err
	}
	if missing {
		return true, nil
	}

	inputs := []string{manifestPath}
	dir := manifest.Dir(manifestPath)
	for _, name := range g.names {
		for _, src := range g.nodes[name].Sources {
			inputs = append(inputs, filepath.Join(dir, src))
		}
	}

	// The manifest itself must be statable; sources may be absent.
	if _, err := mtime.Latest([]string{manifestPath}, false); err != nil {
		return false, err
	}
	latest, err := mtime.Latest(inputs, true)
	if err != nil {
		return false, err
	}
	oldest, err := mtime.Oldest(backendOutputs)
	if err != nil {
		return false, err
	}
	return latest.After(oldest), nil
}
