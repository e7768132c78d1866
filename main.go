package main

import (
	"os"

	"github.com/cristianadrielbraun/qrart/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
