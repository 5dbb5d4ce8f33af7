// Package build performs the direct native build: it runs the parallel
// executor with an action that invokes the compiler, archiver and linker
// (or the declared shell command) for each target, guarded by per-artifact
// staleness checks so an up-to-date target spawns nothing.
package build

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/mattn/go-isatty"
	"golang.org/x/xerrors"
	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"

	"github.com/BobTheZombie/crust/internal/executor"
	"github.com/BobTheZombie/crust/internal/graph"
	"github.com/BobTheZombie/crust/internal/mtime"
)

// Ctx is a direct build context, containing configuration and state.
type Ctx struct {
	Log         *log.Logger
	ManifestDir string
	BuildDir    string
	Jobs        int // 0 selects the logical CPU count
}

var isTerminal = isatty.IsTerminal(os.Stdout.Fd())

// progress prints a one-line status for a build step: to stdout when
// attached to a terminal, via the logger otherwise.
func (c *Ctx) progress(format string, args ...interface{}) {
	if isTerminal {
		fmt.Printf(format+"\n", args...)
		return
	}
	c.Log.Printf(format, args...)
}

// Build materializes every target of g into the build directory, in
// dependency order and up to Jobs targets at a time. The returned result
// maps each target to the absolute paths of its outputs.
func (c *Ctx) Build(ctx context.Context, g *graph.Graph) (executor.Result, error) {
	outDir, err := filepath.Abs(c.BuildDir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, err
	}
	return executor.New(c.Jobs).Execute(ctx, g, func(n *graph.Node, depOutputs []string) ([]string, error) {
		return c.buildTarget(ctx, n, depOutputs, outDir)
	})
}

func (c *Ctx) buildTarget(ctx context.Context, n *graph.Node, depOutputs []string, outDir string) ([]string, error) {
	switch n.Kind {
	case graph.Executable:
		out, err := c.linkExecutable(ctx, n, depOutputs, outDir)
		if err != nil {
			return nil, err
		}
		return []string{out}, nil
	case graph.StaticLibrary:
		out, err := c.archiveStaticLibrary(ctx, n, depOutputs, outDir)
		if err != nil {
			return nil, err
		}
		return []string{out}, nil
	case graph.SharedLibrary:
		out, err := c.linkSharedLibrary(ctx, n, depOutputs, outDir)
		if err != nil {
			return nil, err
		}
		return []string{out}, nil
	case graph.CustomCommand:
		outputs := make([]string, len(n.Outputs))
		for idx, out := range n.Outputs {
			outputs[idx] = filepath.Join(outDir, out)
		}
		if err := c.runCustomCommand(ctx, n, c.collectInputs(n.Sources, depOutputs), outputs, outDir); err != nil {
			return nil, err
		}
		return outputs, nil
	}
	return nil, xerrors.Errorf("target %s: unhandled kind %v", n.Name, n.Kind)
}

// collectInputs resolves declared sources against the manifest directory
// and appends the outputs the target's dependencies produced.
func (c *Ctx) collectInputs(sources []string, depOutputs []string) []string {
	inputs := make([]string, 0, len(sources)+len(depOutputs))
	for _, src := range sources {
		inputs = append(inputs, filepath.Join(c.ManifestDir, src))
	}
	return append(inputs, depOutputs...)
}

// compileObjects compiles each source of n to its object file, skipping
// objects which are newer than their source.
func (c *Ctx) compileObjects(ctx context.Context, n *graph.Node, outDir string) ([]string, error) {
	objects := make([]string, 0, len(n.Sources))
	for idx, src := range n.Sources {
		srcPath := filepath.Join(c.ManifestDir, src)
		objPath := filepath.Join(outDir, graph.ObjectName(n.Name, idx))
		rebuild, err := mtime.NeedsRebuild([]string{srcPath}, []string{objPath})
		if err != nil {
			return nil, err
		}
		if !rebuild {
			objects = append(objects, objPath)
			continue
		}
		if err := os.MkdirAll(filepath.Dir(objPath), 0755); err != nil {
			return nil, err
		}
		c.progress("CC %s", objPath)
		if err := c.runTool(ctx, "cc", "-c", srcPath, "-o", objPath); err != nil {
			return nil, xerrors.Errorf("compiling %s: %w", src, err)
		}
		objects = append(objects, objPath)
	}
	return objects, nil
}

func (c *Ctx) linkExecutable(ctx context.Context, n *graph.Node, depOutputs []string, outDir string) (string, error) {
	output := filepath.Join(outDir, n.Outputs[0])
	rebuild, err := mtime.NeedsRebuild(c.collectInputs(n.Sources, depOutputs), []string{output})
	if err != nil {
		return "", err
	}
	if !rebuild {
		return output, nil
	}
	objects, err := c.compileObjects(ctx, n, outDir)
	if err != nil {
		return "", err
	}
	args := append([]string{"-o", output}, objects...)
	args = append(args, depOutputs...)
	c.progress("LINK %s", output)
	if err := c.runTool(ctx, "cc", args...); err != nil {
		return "", xerrors.Errorf("linking executable %s: %w", n.Name, err)
	}
	return output, nil
}

func (c *Ctx) linkSharedLibrary(ctx context.Context, n *graph.Node, depOutputs []string, outDir string) (string, error) {
	output := filepath.Join(outDir, n.Outputs[0])
	rebuild, err := mtime.NeedsRebuild(c.collectInputs(n.Sources, depOutputs), []string{output})
	if err != nil {
		return "", err
	}
	if !rebuild {
		return output, nil
	}
	objects, err := c.compileObjects(ctx, n, outDir)
	if err != nil {
		return "", err
	}
	args := append([]string{"-shared", "-o", output}, objects...)
	args = append(args, depOutputs...)
	c.progress("LINK %s", output)
	if err := c.runTool(ctx, "cc", args...); err != nil {
		return "", xerrors.Errorf("linking shared library %s: %w", n.Name, err)
	}
	return output, nil
}

func (c *Ctx) archiveStaticLibrary(ctx context.Context, n *graph.Node, depOutputs []string, outDir string) (string, error) {
	output := filepath.Join(outDir, n.Outputs[0])
	rebuild, err := mtime.NeedsRebuild(c.collectInputs(n.Sources, depOutputs), []string{output})
	if err != nil {
		return "", err
	}
	if !rebuild {
		return output, nil
	}
	objects, err := c.compileObjects(ctx, n, outDir)
	if err != nil {
		return "", err
	}
	// ar appends to an existing archive, so start from scratch.
	if err := os.Remove(output); err != nil && !os.IsNotExist(err) {
		return "", err
	}
	c.progress("AR %s", output)
	if err := c.runTool(ctx, "ar", append([]string{"rcs", output}, objects...)...); err != nil {
		return "", xerrors.Errorf("archiving static library %s: %w", n.Name, err)
	}
	return output, nil
}

// runCustomCommand runs the target's declared shell command through the
// embedded interpreter, with the manifest directory as working directory
// and CRUST_BUILDDIR pointing at the build directory. Outputs the command
// wrote into the manifest directory instead of the build directory are
// copied over afterwards.
func (c *Ctx) runCustomCommand(ctx context.Context, n *graph.Node, inputs, outputs []string, outDir string) error {
	for _, output := range outputs {
		if err := os.MkdirAll(filepath.Dir(output), 0755); err != nil {
			return err
		}
	}
	rebuild, err := mtime.NeedsRebuild(inputs, outputs)
	if err != nil {
		return err
	}
	if !rebuild {
		return nil
	}

	c.progress("GEN %s", n.Name)
	file, err := syntax.NewParser().Parse(strings.NewReader(n.Command), n.Name)
	if err != nil {
		return xerrors.Errorf("parsing command for %s: %w", n.Name, err)
	}
	runner, err := interp.New(
		interp.Dir(c.ManifestDir),
		interp.Env(expand.ListEnviron(append(os.Environ(), "CRUST_BUILDDIR="+outDir)...)),
		interp.StdIO(nil, os.Stdout, os.Stderr),
	)
	if err != nil {
		return err
	}
	if err := runner.Run(ctx, file); err != nil {
		return xerrors.Errorf("custom command for %s: %w", n.Name, err)
	}

	for _, output := range outputs {
		if _, err := os.Stat(output); err == nil {
			continue
		}
		rel, err := filepath.Rel(outDir, output)
		if err != nil {
			rel = output
		}
		manifestOutput := filepath.Join(c.ManifestDir, rel)
		if _, err := os.Stat(manifestOutput); err != nil {
			continue // leave it to whoever consumes the output to complain
		}
		if err := copyFile(manifestOutput, output); err != nil {
			return xerrors.Errorf("copying %s to %s: %w", manifestOutput, output, err)
		}
	}
	return nil
}

func (c *Ctx) runTool(ctx context.Context, tool string, args ...string) error {
	cmd := exec.CommandContext(ctx, tool, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return xerrors.Errorf("%v: %w", cmd.Args, err)
	}
	return nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
