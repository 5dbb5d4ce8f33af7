package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/BobTheZombie/crust"
	"github.com/BobTheZombie/crust/internal/build"
	"github.com/BobTheZombie/crust/internal/env"
	"github.com/BobTheZombie/crust/internal/graph"
	"github.com/BobTheZombie/crust/internal/manifest"
)

const buildHelp = `crust build [-flags]

Build the project directly: compile, archive and link every out-of-date
target, up to -jobs targets in parallel.

Example:
  % crust build -manifest=crust.build -jobs=4
`

func cmdbuild(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("build", flag.ExitOnError)
	var (
		manifestPath = fset.String("manifest", crust.ManifestFilename, "path to the project manifest")
		buildDir     = fset.String("builddir", env.BuildDir, "directory for build outputs")
		jobs         = fset.Int("jobs", env.Jobs, "number of parallel build jobs")
	)
	fset.Usage = usage(fset, buildHelp)
	fset.Parse(args)

	m, err := manifest.Load(*manifestPath)
	if err != nil {
		return err
	}
	g, err := graph.FromManifest(m)
	if err != nil {
		return err
	}

	c := &build.Ctx{
		Log:         log.New(os.Stderr, "", log.LstdFlags),
		ManifestDir: manifest.Dir(*manifestPath),
		BuildDir:    *buildDir,
		Jobs:        *jobs,
	}
	result, err := c.Build(ctx, g)
	if err != nil {
		return err
	}
	log.Printf("built %d targets into %s", len(result), *buildDir)
	return nil
}
