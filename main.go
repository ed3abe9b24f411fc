package main

import (
	"os"

	"keyenv/cmd"
)

// Set by the linker
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	app := cmd.NewApp(version, commit, date)
	root := cmd.NewRootCmd(app)
	if err := root.Execute(); err != nil {
		cmd.PrintError(root.ErrOrStderr(), err)
		os.Exit(int(cmd.MapExitCode(err)))
	}
}
