// Command histlog records and persists history logs of simulated insurance
// markets.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/histlog/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
