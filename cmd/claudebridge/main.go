package main

import (
	"os"

	"github.com/randalmurphal/claudebridge/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
