package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/BobTheZombie/crust"
	"github.com/BobTheZombie/crust/internal/trace"
)

var (
	debug      = flag.Bool("debug", false, "enable debug mode: format error messages with additional detail")
	ctracefile = flag.String("ctracefile", "", "path to store a chrome trace event file at (load in chrome://tracing)")
)

func funcmain() error {
	flag.Parse()

	if *ctracefile != "" {
		f, err := os.Create(*ctracefile)
		if err != nil {
			return err
		}
		trace.Sink(f)
	}

	type cmd struct {
		fn func(ctx context.Context, args []string) error
	}
	verbs := map[string]cmd{
		"build":    {cmdbuild},
		"generate": {generate},
		"graph":    {cmdgraph},
		"clean":    {clean},
		"env":      {printenv},
		"version": {func(ctx context.Context, args []string) error {
			fmt.Println("crust " + crust.Version)
			return nil
		}},
	}

	args := flag.Args()
	verb := "build"
	if len(args) > 0 {
		verb, args = args[0], args[1:]
	}

	if verb == "help" {
		if len(args) != 1 {
			fmt.Fprintf(os.Stderr, "crust [-flags] <command> [-flags] <args>\n")
			fmt.Fprintln(os.Stderr)
			fmt.Fprintf(os.Stderr, "To get help on any command, use crust <command> -help or crust help <command>.\n")
			fmt.Fprintln(os.Stderr)
			fmt.Fprintf(os.Stderr, "Build commands:\n")
			fmt.Fprintf(os.Stderr, "\tbuild    - build the project directly\n")
			fmt.Fprintf(os.Stderr, "\tgenerate - emit build files for an external tool (ninja, make)\n")
			fmt.Fprintf(os.Stderr, "\tclean    - remove the build directory\n")
			fmt.Fprintln(os.Stderr)
			fmt.Fprintf(os.Stderr, "Inspection commands:\n")
			fmt.Fprintf(os.Stderr, "\tgraph    - show the target dependency graph\n")
			fmt.Fprintf(os.Stderr, "\tenv      - display crust variables\n")
			os.Exit(2)
		}
		verb = args[0]
		args = []string{"-help"}
	}

	ctx, canc := crust.InterruptibleContext()
	defer canc()
	v, ok := verbs[verb]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n", verb)
		fmt.Fprintf(os.Stderr, "syntax: crust <command> [options]\n")
		os.Exit(2)
	}
	if err := v.fn(ctx, args); err != nil {
		if *debug {
			return fmt.Errorf("%s: %+v", verb, err)
		}
		return fmt.Errorf("%s: %v", verb, err)
	}

	return nil
}

func main() {
	log.SetFlags(0)
	if err := funcmain(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
