// Package main is the entry point for the mandi command line tool.
package main

import "github.com/yourorg/mandi-compare/internal/cli"

func main() {
	cli.Execute()
}
