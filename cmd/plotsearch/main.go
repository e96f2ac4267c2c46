package main

import (
	"fmt"
	"os"

	"github.com/cloo-solutions/plotsearch/internal/cli"
	"github.com/cloo-solutions/plotsearch/internal/cli/client"
)

var version = "dev"

func main() {
	rootCmd := client.NewRootCmd(version)

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
