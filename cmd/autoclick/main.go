// Command autoclick is an automated mouse clicker with profiles and recorded sequences.
package main

import (
	"os"

	"github.com/opencode-ai/autoclick/internal/cli"
)

var version = "dev"

func main() {
	if err := cli.Execute(version); err != nil {
		cli.ReportError(os.Stderr, err)
		os.Exit(cli.ExitCode(err))
	}
}
