package main

import (
	"context"
	"flag"
	"log"

	"github.com/BobTheZombie/crust"
	"github.com/BobTheZombie/crust/internal/backend"
	"github.com/BobTheZombie/crust/internal/env"
	"github.com/BobTheZombie/crust/internal/graph"
	"github.com/BobTheZombie/crust/internal/manifest"
)

const generateHelp = `crust generate [-flags]

Emit build files for an external build tool instead of building directly.
Generation is skipped when the generated files are newer than the manifest
and all declared sources.

Example:
  % crust generate -backend=ninja
  % ninja -C builddir
`

func generate(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("generate", flag.ExitOnError)
	var (
		backendName  = fset.String("backend", "ninja", "backend to generate files for (ninja or make)")
		manifestPath = fset.String("manifest", crust.ManifestFilename, "path to the project manifest")
		buildDir     = fset.String("builddir", env.BuildDir, "directory for generated files")
		force        = fset.Bool("force", false, "regenerate even if the generated files are current")
	)
	fset.Usage = usage(fset, generateHelp)
	fset.Parse(args)

	b, err := backend.For(*backendName)
	if err != nil {
		return err
	}
	m, err := manifest.Load(*manifestPath)
	if err != nil {
		return err
	}
	g, err := graph.FromManifest(m)
	if err != nil {
		return err
	}

	if !*force {
		outdated, err := g.IsOutdated(*manifestPath, b.PrimaryOutputs(g, *buildDir))
		if err != nil {
			return err
		}
		if !outdated {
			log.Printf("%s: up to date", b.Name())
			return nil
		}
	}

	result, err := b.Emit(g, *buildDir, manifest.Dir(*manifestPath))
	if err != nil {
		return err
	}
	for _, f := range result.Files {
		log.Printf("wrote %s", f)
	}
	return nil
}
