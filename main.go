// ./main.go
package main

import (
	"github.com/v0idlock/civreport-cli/cmd"
)

// main is the entry point for the civreport CLI.
func main() {
	// Execute the root command defined in the cmd package.
	// It handles command-line parsing, configuration, and execution.
	cmd.Execute()
}
