package main

import (
	"os"

	"github.com/sentinelvnc/sentinel/cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
