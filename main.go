package main

import (
	"os"

	"github.com/tablescout/tablescout/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
