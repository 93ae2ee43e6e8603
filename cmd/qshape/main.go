// Package main is the entry point for the qshape CLI tool.
package main

import (
	"os"

	"github.com/qshape/qshape/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
