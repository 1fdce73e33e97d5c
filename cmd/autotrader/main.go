package main

import (
	"os"

	"github.com/nebulamarket/autotrader/cmd/autotrader/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
