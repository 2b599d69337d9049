// Command epwtool is a command-line interface for EnergyPlus weather files.
package main

import (
	"fmt"
	"os"

	"epw-platform/internal/cli"
)

func main() {
	if err := cli.NewRoot().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
