// Package main is the entry point for the tables CLI binary.
package main

import (
	"os"

	cli "duck-tables/pkg/cli"
)

func main() {
	os.Exit(cli.Execute())
}
