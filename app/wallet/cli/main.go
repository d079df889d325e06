// This program is a command line wallet for the simulator.
package main

import (
	"fmt"
	"os"

	"github.com/ardanlabs/chainsim/app/wallet/cli/cmd"
)

func main() {
	if err := cmd.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "ERROR:", err)
		os.Exit(1)
	}
}
