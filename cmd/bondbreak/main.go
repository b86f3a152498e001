// Command bondbreak configures and drives the deferred bond breakage queue.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/bondbreak/internal/cli"
	"github.com/roach88/bondbreak/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		config.Exitf("bondbreak: %v", err)
	}

	if err := cli.NewRootCommand(cfg).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
