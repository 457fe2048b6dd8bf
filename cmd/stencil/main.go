package main

import (
	"os"

	"github.com/kavindra/stencil/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
