package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func routesCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "routes",
		Short: "List the route table",
		Long: `List registered routes in match order. Routes that can never match
because an earlier route covers them are reported.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			logger, err := opts.logger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			a, err := buildApp(context.Background(), cfg, logger, appOptions{offline: true})
			if err != nil {
				return err
			}
			defer a.Close(context.Background())

			defs := a.manager.GetRoutes()
			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, defs)
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "PATTERN\tAUTH\tPERMISSION\tCATEGORY\tDESCRIPTION")
			for _, d := range defs {
				authCol := "-"
				if d.RequiresAuth {
					authCol = "yes"
				}
				perm := d.Permission
				if perm == "" {
					perm = "-"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", d.Pattern, authCol, perm, d.Meta.Category, d.Meta.Description)
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			for _, s := range a.manager.Dispatcher().Shadowed() {
				warn(out, "%s", s)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print routes as JSON")

	return cmd
}
