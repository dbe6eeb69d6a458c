package main

import (
	"os"

	"github.com/andrew/vecdash/pkg/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
