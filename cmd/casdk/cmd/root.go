package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCommand builds the casdk command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "casdk",
		Short: "Custom application runtime for the head unit",
		Long: `casdk hosts custom head unit applications.

It polls vehicle data tables into a registry, dispatches changes to
subscribed applications and drives their lifecycle on the host shell.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newServeCommand(),
		newParseCommand(),
		newAppsCommand(),
	)
	return root
}

// Execute runs the root command against os.Args.
func Execute() error {
	root := NewRootCommand()
	if err := root.Execute(); err != nil {
		printError(root.Name(), err)
		return err
	}
	return nil
}

func printError(msg string, err error) {
	fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
}
