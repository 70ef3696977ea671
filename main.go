package main

import (
	"github.com/nkrasnikov/tinyurl/cmd"
	_ "github.com/nkrasnikov/tinyurl/cmd/cli"    // registers the CLI subcommands via init()
	_ "github.com/nkrasnikov/tinyurl/cmd/server" // registers the server subcommand via init()
)

// main delegates to Cobra, which dispatches to the registered subcommands.
func main() {
	cmd.Execute()
}
