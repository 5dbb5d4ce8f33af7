// Package backend emits descriptions of the build for external build tools.
// Backends consume a validated dependency graph and write text files (e.g.
// build.ninja or a Makefile) into the build directory; they never invoke
// tools themselves.
package backend

import (
	"path/filepath"

	"golang.org/x/xerrors"

	"github.com/BobTheZombie/crust/internal/graph"
)

// Backend generates build files for one external tool.
type Backend interface {
	// Name identifies the backend (e.g. "ninja").
	Name() string

	// Emit writes the backend's files for g into outDir. Source paths are
	// resolved against manifestDir.
	Emit(g *graph.Graph, outDir, manifestDir string) (*EmitResult, error)

	// PrimaryOutputs returns the files Emit would write, for staleness
	// checking against the manifest.
	PrimaryOutputs(g *graph.Graph, outDir string) []string
}

// EmitResult lists the files a backend wrote.
type EmitResult struct {
	Files []string
}

// For returns the backend with the given name.
func For(name string) (Backend, error) {
	switch name {
	case "ninja":
		return &Ninja{}, nil
	case "make":
		return &Make{}, nil
	}
	return nil, xerrors.Errorf("unknown backend %q (supported: ninja, make)", name)
}

// renderTarget is the per-target shape shared by the ninja and make
// templates: build-dir-relative outputs, absolute sources.
type renderTarget struct {
	Name string
	Kind graph.Kind

	// Objects for compiled kinds, in source order.
	Objects []renderObject

	// Outputs relative to the build directory.
	Outputs []string

	// DepOutputs are the build-dir-relative outputs of all dependencies, in
	// declared dependency order.
	DepOutputs []string

	// Custom commands only:
	Command string
	Inputs  []string // absolute input paths
}

type renderObject struct {
	Object string // build-dir relative, e.g. app_0.o
	Source string // absolute
}

// Rule names the generator rule which produces the target's final output.
func (t *renderTarget) Rule() string {
	switch t.Kind {
	case graph.Executable:
		return "link"
	case graph.SharedLibrary:
		return "linkshared"
	case graph.StaticLibrary:
		return "ar"
	}
	return ""
}

func (t *renderTarget) ObjectNames() []string {
	names := make([]string, len(t.Objects))
	for idx, o := range t.Objects {
		names[idx] = o.Object
	}
	return names
}

// renderTargets flattens the graph into template data, in topological order
// so generated files read naturally bottom-up.
func renderTargets(g *graph.Graph, manifestDir string) ([]*renderTarget, error) {
	absDir, err := filepath.Abs(manifestDir)
	if err != nil {
		return nil, xerrors.Errorf("resolving manifest dir: %w", err)
	}
	order, err := g.TopoOrder()
	if err != nil {
		return nil, err
	}
	targets := make([]*renderTarget, 0, len(order))
	for _, n := range order {
		t := &renderTarget{
			Name:    n.Name,
			Kind:    n.Kind,
			Outputs: n.Outputs,
			Command: n.Command,
		}
		for _, dep := range n.Dependencies {
			t.DepOutputs = append(t.DepOutputs, g.Node(dep).Outputs...)
		}
		if n.Kind == graph.CustomCommand {
			for _, input := range n.Sources {
				t.Inputs = append(t.Inputs, filepath.Join(absDir, input))
			}
		} else {
			t.Objects = objectsFor(n, absDir)
		}
		targets = append(targets, t)
	}
	return targets, nil
}

// objectsFor returns one object per source, named <target>_<idx>.o like the
// direct builder produces them, so both build styles share artifacts.
func objectsFor(n *graph.Node, absManifestDir string) []renderObject {
	objects := make([]renderObject, len(n.Sources))
	for idx, src := range n.Sources {
		objects[idx] = renderObject{
			Object: graph.ObjectName(n.Name, idx),
			Source: filepath.Join(absManifestDir, src),
		}
	}
	return objects
}

// finalOutputs returns every target's outputs, build-dir relative.
func finalOutputs(targets []*renderTarget) []string {
	var outputs []string
	for _, t := range targets {
		outputs = append(outputs, t.Outputs...)
	}
	return outputs
}
