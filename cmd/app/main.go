// Package main is the LPPLWatch CLI.
//
// Usage:
//
//	go run ./cmd/app run [SYMBOL...]
//	go run ./cmd/app serve
//	go run ./cmd/app cleanup [SYMBOL...]
//	go run ./cmd/app report SYMBOL
package main

import (
	"os"

	"LPPLWatch/cmd/app/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
