package main

import (
	"os"

	"github.com/rwaltman/basisengine/cmd/basisengine/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
