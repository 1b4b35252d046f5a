// Command synthase classifies PKS and NRPS proteins from conserved-domain
// hits.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/synthase/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
