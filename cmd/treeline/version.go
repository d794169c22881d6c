package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/treelinehq/treeline/internal/config"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "print the version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(config.Version)
	},
}
