// Package main provides the entry point for the naragtive CLI.
package main

import (
	"os"

	"github.com/naragtive/naragtive/cmd/naragtive/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
