package main

import (
	"os"

	"github.com/jacoelho/dtd/internal/cli"
)

func main() {
	os.Exit(cli.Run(os.Args[1:], os.Stdout, os.Stderr))
}
