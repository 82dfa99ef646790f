// Command rulekit validates, runs and replays no-code game projects.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/rulekit/internal/cli"
	"github.com/roach88/rulekit/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "rulekit: %v\n", err)
		os.Exit(cli.ExitCommandError)
	}

	err = cli.NewRootCommand(cfg).Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "rulekit: %v\n", err)
	}
	os.Exit(cli.GetExitCode(err))
}
