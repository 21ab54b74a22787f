package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"chemviz/internal/version"
	"chemviz/pkg/log"
)

var (
	logLevel   string
	logFormat  string
	configFile string
)

var rootCmd = &cobra.Command{
	Use:   "chemviz",
	Short: "chemviz is a chemical equipment data service",
	Long: `Upload, summarize and report chemical equipment parameter CSV files.
Version: ` + version.VERSION + `/` + version.COMMIT,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		log.InitLog(logLevel, logFormat)
	},
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "info", "Log level (debug, info, warn, error, fatal)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", log.FormatText, "Log format (text, json)")
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "etc/config.yaml", "Path to config file")

	rootCmd.AddCommand(serveCommand)
	rootCmd.AddCommand(updateDBCommand)
	rootCmd.AddCommand(importCommand)
	rootCmd.AddCommand(exportCommand)
	rootCmd.AddCommand(consumeCommand)
	rootCmd.AddCommand(versionCommand)
}
