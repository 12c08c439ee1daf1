// Package main is the entry point for the hub CLI binary.
package main

import (
	"os"

	cli "automation-hub/pkg/cli"
)

func main() {
	os.Exit(cli.Execute())
}
