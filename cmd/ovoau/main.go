package main

import (
	"os"

	"github.com/kgrahame/ovoau/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
