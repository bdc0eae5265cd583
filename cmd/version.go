// File: cmd/version.go
package cmd

// Version is the application version.
// Set at build time with ldflags:
// go build -ldflags "-X github.com/v0idlock/civreport-cli/cmd.Version=1.0.0"
var Version = "dev"
