package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/waqiti-dev/deeplink/internal/errors"
	"github.com/waqiti-dev/deeplink/pkg/auth"
	"github.com/waqiti-dev/deeplink/pkg/dispatch"
)

func routeCmd(opts *rootOptions) *cobra.Command {
	var (
		user     string
		perms    []string
		source   string
		campaign string
		referrer string
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "route <url>",
		Short: "Route a link and print where it goes",
		Long: `Route a link through the full pipeline against a host that prints
each navigation. Handlers run against the configured record source.

Without --user the link is routed anonymously.

Examples:
  deeplink route waqiti://home
  deeplink route "waqiti://pay/m1?amount=12.50" --user=u1
  deeplink route waqiti://scan --user=u1 --perm=camera
  deeplink route https://waqiti.com/promo/SPRING --source=email --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			partial := dispatch.Partial{Campaign: campaign, Referrer: referrer}
			if source != "" {
				src, err := dispatch.ParseSource(source)
				if err != nil {
					return errors.New(errors.CLIInvalidArgs).Wrap(err)
				}
				partial.Source = src
			}

			var provider auth.Static
			if user != "" {
				provider.Principal = &auth.Principal{ID: user, Permissions: perms}
			}
			return runRoute(cmd, opts, provider, args[0], partial, asJSON)
		},
	}

	cmd.Flags().StringVarP(&user, "user", "u", "", "Route as this signed-in user ID")
	cmd.Flags().StringSliceVarP(&perms, "perm", "p", nil, "Permission held by --user (repeatable)")
	cmd.Flags().StringVar(&source, "source", "", "Link source (e.g., qr, email, push)")
	cmd.Flags().StringVar(&campaign, "campaign", "", "Campaign attribution")
	cmd.Flags().StringVar(&referrer, "referrer", "", "Referrer")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")

	return cmd
}

func runRoute(cmd *cobra.Command, opts *rootOptions, provider auth.Provider, raw string, partial dispatch.Partial, asJSON bool) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	logger, err := opts.logger(cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := buildApp(ctx, cfg, logger, appOptions{provider: provider})
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	out := cmd.OutOrStdout()
	host := dispatch.HostFunc(func(_ context.Context, destination string, params map[string]any) error {
		if !asJSON {
			fmt.Fprintf(out, "→ %s%s\n", destination, formatParams(params))
		}
		return nil
	})
	a.manager.SetHost(ctx, host)

	res := a.manager.Handle(ctx, raw, partial)
	if asJSON {
		return writeJSON(out, res)
	}
	printResult(out, res)
	return nil
}

// printResult writes a one-line summary of res followed by any required
// user action.
func printResult(w io.Writer, res dispatch.Result) {
	switch {
	case res.Success:
		success(w, "%s (%s)", res.Route, res.Pattern)
	case res.RequiresUserAction:
		warn(w, "%s: %s", res.ErrorCode, res.ErrorMessage)
		info(w, "Action: %s%s", res.ActionType, formatParams(res.ActionData))
	default:
		failure(w, "%s: %s", res.ErrorCode, res.ErrorMessage)
		if res.Route != "" {
			info(w, "Sent to %s", res.Route)
		}
	}
}

// formatParams renders params as " {k=v, ...}" with sorted keys, or "" when
// empty.
func formatParams(params map[string]any) string {
	if len(params) == 0 {
		return ""
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, params[k])
	}
	return " {" + strings.Join(parts, ", ") + "}"
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
