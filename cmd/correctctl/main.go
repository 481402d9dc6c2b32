package main

import (
	"os"

	"github.com/langquence/correct-tray/cmd/correctctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
