package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/BobTheZombie/crust/internal/env"
)

const envHelp = `crust env [-flags]

Display crust variables.

Example:
  % crust env
`

func printenv(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("env", flag.ExitOnError)
	fset.Usage = usage(fset, envHelp)
	fset.Parse(args)
	if fset.NArg() > 0 {
		switch fset.Arg(0) {
		case "CRUST_BUILDDIR":
			fmt.Println(env.BuildDir)
		case "CRUST_JOBS":
			fmt.Println(env.Jobs)
		}
		return nil
	}
	fmt.Printf("CRUST_BUILDDIR=%q\n", env.BuildDir)
	fmt.Printf("CRUST_JOBS=%d\n", env.Jobs)
	return nil
}
