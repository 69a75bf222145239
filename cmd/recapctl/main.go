// Package main is the entry point for the recapctl CLI
package main

import (
	"os"

	"github.com/jengzang/recap-backend-go/internal/cli"
)

// version is set at build time via ldflags
var version = "dev"

func main() {
	if err := cli.Execute(version); err != nil {
		os.Stderr.WriteString("Error: " + err.Error() + "\n")
		os.Exit(1)
	}
}
