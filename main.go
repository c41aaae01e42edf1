// Package main is the entry point for the orisa CLI.
package main

import "orisa.dev/pkg/orisa/cmd"

func main() {
	cmd.Execute()
}
