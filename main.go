package main

import (
	"os"

	"github.com/spigell/leadscout/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
