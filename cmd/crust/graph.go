package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/BobTheZombie/crust"
	"github.com/BobTheZombie/crust/internal/graph"
	"github.com/BobTheZombie/crust/internal/manifest"
)

const graphHelp = `crust graph [-flags]

Show the target dependency graph: one line per target in topological order,
or graphviz DOT syntax with -dot.

Example:
  % crust graph -dot | dot -Tsvg > deps.svg
`

func cmdgraph(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("graph", flag.ExitOnError)
	var (
		manifestPath = fset.String("manifest", crust.ManifestFilename, "path to the project manifest")
		dot          = fset.Bool("dot", false, "emit graphviz DOT syntax instead of a plain listing")
	)
	fset.Usage = usage(fset, graphHelp)
	fset.Parse(args)

	m, err := manifest.Load(*manifestPath)
	if err != nil {
		return err
	}
	g, err := graph.FromManifest(m)
	if err != nil {
		return err
	}

	if *dot {
		b, err := g.Dot(m.Project.Name)
		if err != nil {
			return err
		}
		os.Stdout.Write(b)
		fmt.Println()
		return nil
	}

	order, err := g.TopoOrder()
	if err != nil {
		return err
	}
	for _, n := range order {
		if len(n.Dependencies) == 0 {
			fmt.Printf("%s (%s)\n", n.Name, n.Kind)
			continue
		}
		fmt.Printf("%s (%s) ← %s\n", n.Name, n.Kind, strings.Join(n.Dependencies, ", "))
	}
	return nil
}
