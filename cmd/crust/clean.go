package main

import (
	"context"
	"flag"
	"log"
	"os"
	"path/filepath"

	"golang.org/x/xerrors"

	"github.com/BobTheZombie/crust"
	"github.com/BobTheZombie/crust/internal/env"
	"github.com/BobTheZombie/crust/internal/manifest"
)

const cleanHelp = `crust clean [-flags]

Remove the build directory and everything in it.

Example:
  % crust clean
`

func clean(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("clean", flag.ExitOnError)
	var (
		manifestPath = fset.String("manifest", crust.ManifestFilename, "path to the project manifest")
		buildDir     = fset.String("builddir", env.BuildDir, "directory to remove")
	)
	fset.Usage = usage(fset, cleanHelp)
	fset.Parse(args)

	if err := checkCleanDir(*buildDir, manifest.Dir(*manifestPath)); err != nil {
		return err
	}
	if err := os.RemoveAll(*buildDir); err != nil {
		return err
	}
	log.Printf("removed %s", *buildDir)
	return nil
}

// checkCleanDir refuses directories whose removal would take the project
// sources with it.
func checkCleanDir(buildDir, manifestDir string) error {
	abs, err := filepath.Abs(buildDir)
	if err != nil {
		return err
	}
	if abs == string(filepath.Separator) {
		return xerrors.New("refusing to remove the filesystem root")
	}
	absManifestDir, err := filepath.Abs(manifestDir)
	if err != nil {
		return err
	}
	if abs == absManifestDir {
		return xerrors.Errorf("refusing to remove %s: it is the project directory", buildDir)
	}
	return nil
}
