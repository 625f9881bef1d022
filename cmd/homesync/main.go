// Command homesync backs up and restores a launcher home screen layout.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/homesync/internal/cli"
)

// Version is set via -ldflags at build time.
var Version = "dev"

func main() {
	root := cli.NewRootCommand()
	root.Version = Version

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "homesync:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
