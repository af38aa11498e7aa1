// Command gridcoalesce builds sample grid stores and runs the coalesce
// engine against them from the command line.
package main

import (
	"os"

	"github.com/carmen-go/gridcoalesce/cmd/gridcoalesce/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
