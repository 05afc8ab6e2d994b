package main

import (
	"context"

	"github.com/spf13/cobra"
)

func testCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "test <url>",
		Short: "Show which route a link matches",
		Long: `Parse and match a link without running its handler or navigating.

Examples:
  deeplink test "waqiti://pay/m1?amount=5"
  deeplink test https://waqiti.com/settings --json`,
		Args: cobra.ExactArgs(1),
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

			res := a.manager.TestURL(args[0])
			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, res)
			}
			if !res.Matches {
				failure(out, "No route matches %q", res.Path)
				return nil
			}
			success(out, "%s matches %s", res.Path, res.Route.Pattern)
			if len(res.Params) > 0 {
				params := make(map[string]any, len(res.Params))
				for k, v := range res.Params {
					params[k] = v
				}
				info(out, "Params:%s", formatParams(params))
			}
			if res.Route.RequiresAuth {
				info(out, "Requires sign-in")
			}
			if res.Route.Permission != "" {
				info(out, "Requires permission %s", res.Route.Permission)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the match as JSON")

	return cmd
}
