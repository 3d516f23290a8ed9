package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/casdk/internal/domain/catalog"
	"github.com/GriffinCanCode/casdk/internal/infrastructure/config"
)

func newAppsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "apps [dir]",
		Short: "List application manifests",
		Long: `Discover application manifests (app.yaml, app.toml or app.json)
one directory below dir and print what they declare. dir defaults to
APPS_PATH, or the stock application path when the environment does not
parse.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := config.LoadOrDefault().Apps.Path
			if len(args) == 1 {
				root = args[0]
			}

			manifests, errs := catalog.Discover(root)

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTITLE\tFORMAT\tCHECKSUM\tJS\tCSS\tIMAGES")
			for _, m := range manifests {
				req := m.Definition.Require
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%d\n",
					m.ID, m.Title(), m.Format, m.Checksum, req.JS.Len(), req.CSS.Len(), req.Images.Len())
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			for _, err := range errs {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
			}
			if len(errs) > 0 {
				return fmt.Errorf("%d manifest(s) failed to load", len(errs))
			}
			return nil
		},
	}
}
