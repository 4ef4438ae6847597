package main

import (
	"fmt"
	"os"

	"github.com/technopolis/careers-portal/cmd/portalctl/cli"
)

func main() {
	root := cli.NewRootCommand(os.Stdout, os.Stderr)
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "portalctl: %s\n", err)
		os.Exit(1)
	}
}
