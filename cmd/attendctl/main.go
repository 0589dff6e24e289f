package main

import (
	"os"

	"github.com/cmlabs-hris/hris-dashboard-go/internal/cli"
)

var version = "dev"

func main() {
	// go-flags prints parse and command errors itself.
	if err := cli.Run(version); err != nil {
		os.Exit(1)
	}
}
