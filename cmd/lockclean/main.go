// Command lockclean removes stale scheduler lock files:
//
//	lockclean --dir /var/lib/coinpulse [--job crypto_data] [--force]
package main

import (
	"fmt"
	"os"

	"coinpulse/internal/cli"
)

func main() {
	if err := cli.NewCleanLocksCmd(nil).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
