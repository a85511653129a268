package main

import (
	"os"

	"github.com/tcfw/siop/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
