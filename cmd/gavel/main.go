// Command gavel runs the auction escrow engine from the command line.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/gavel/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	if err != nil && !cli.WasReported(err) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(cli.GetExitCode(err))
}
