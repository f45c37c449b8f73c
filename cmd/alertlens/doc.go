// Package alertlens provides the command-line interface for alertlens. It
// configures subcommands (analyze, batch, score, inspect, etc.), parses
// flags, and executes the selected command.
//
// Typical usage from a main package:
//
//	package main
//	import "github.com/redactyl/alertlens/cmd/alertlens"
//	func main() { alertlens.Execute() }
package alertlens
