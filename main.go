package main

import "github.com/redactyl/alertlens/cmd/alertlens"

func main() { alertlens.Execute() }
