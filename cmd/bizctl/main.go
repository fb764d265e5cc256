// Command bizctl is an operator client for the bizops API: it mints
// development tokens, follows a tenant's snapshot stream and prints the
// tenant's finance telemetry.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
