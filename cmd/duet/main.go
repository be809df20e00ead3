package main

import (
	"os"

	"github.com/harun/duet/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
