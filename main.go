package main

import (
	"os"

	"github.com/sethstha/wpforge/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
