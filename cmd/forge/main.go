package main

import (
	"os"

	"github.com/forge-stack/forge/cmd/forge/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
