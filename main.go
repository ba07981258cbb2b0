package main

import (
	"os"

	"scan-in-analytics/pkg/cli"
)

func main() {
	os.Exit(cli.Execute())
}
