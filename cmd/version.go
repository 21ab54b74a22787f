package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"chemviz/internal/version"
)

var versionCommand = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("%s %s (%s)\n", version.APP, version.VERSION, version.COMMIT)
	},
}
