// Package main is the entry point for the apilens CLI.
package main

import (
	"fmt"
	"os"

	"github.com/apilens/apilens/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
