package main

import (
	"os"

	"github.com/mensylisir/pexm/cmd/pexm/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
