// Package main provides the entry point for the mdsearch CLI.
package main

import (
	"os"

	"github.com/Aman-CERP/mdsearch/cmd/mdsearch/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
