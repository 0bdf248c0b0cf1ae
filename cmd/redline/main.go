package main

import (
	"errors"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

var noColor bool

// errMatchesFound marks a run that worked but flagged problems; it maps to
// exit code 2 so scripts can tell "text has issues" from "tool failed".
var errMatchesFound = errors.New("matches found")

var rootCmd = &cobra.Command{
	Use:           "redline",
	Short:         "Grammar and spell checking backed by a LanguageTool engine",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(languagesCmd)
	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(mcpCmd)
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errMatchesFound):
		return 2
	default:
		return 1
	}
}

func main() {
	err := rootCmd.Execute()
	if err != nil && !errors.Is(err, errMatchesFound) {
		printError("%v", err)
	}
	os.Exit(exitCode(err))
}
