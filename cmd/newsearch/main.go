// Package main provides the entry point for the newsearch CLI.
package main

import (
	"os"

	"github.com/Hino9LLC/newsearch/cmd/newsearch/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
