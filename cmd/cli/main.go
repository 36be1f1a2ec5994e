package main

import (
	"os"

	"github.com/dropvault-dev/dropvault/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
