package main

import (
	"os"

	"github.com/imishinist/nnperf/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
