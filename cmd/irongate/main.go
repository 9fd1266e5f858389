package main

import (
	"os"

	"github.com/tradeops/irongate/cmd/irongate/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
