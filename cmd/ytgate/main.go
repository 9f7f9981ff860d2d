// Package main is the entry point for the ytgate server.
package main

import (
	"os"

	"github.com/ytget/ytgate/cmd/ytgate/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
