package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/waqiti-dev/deeplink"
	"github.com/waqiti-dev/deeplink/internal/errors"
	"github.com/waqiti-dev/deeplink/pkg/router"
)

func generateCmd(opts *rootOptions) *cobra.Command {
	var (
		source    string
		campaign  string
		utm       []string
		universal bool
	)

	cmd := &cobra.Command{
		Use:   "generate <pattern> [key=value...]",
		Short: "Generate a link for a route pattern",
		Long: `Generate a link by filling a route pattern's placeholders. Values for
keys that are not placeholders become query parameters.

Examples:
  deeplink generate /pay/:merchantId merchantId=m1 amount=12.5
  deeplink generate /promo/:code code=SPRING --source=email --campaign=spring
  deeplink generate /referral/:code code=ABC --universal --utm=utm_medium=social`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			logger, err := opts.logger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			params, err := parseParams(args[1:])
			if err != nil {
				return err
			}
			utmPairs, err := parsePairs(utm)
			if err != nil {
				return err
			}

			a, err := buildApp(context.Background(), cfg, logger, appOptions{offline: true})
			if err != nil {
				return err
			}
			defer a.Close(context.Background())

			link, err := a.manager.GenerateURL(args[0], params, deeplink.GenerateOptions{
				Source:    source,
				Campaign:  campaign,
				UTMParams: utmPairs,
				Universal: universal,
			})
			if err != nil {
				return generateError(args[0], err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), link)
			return nil
		},
	}

	cmd.Flags().StringVar(&source, "source", "", "utm_source attribution")
	cmd.Flags().StringVar(&campaign, "campaign", "", "utm_campaign attribution")
	cmd.Flags().StringSliceVar(&utm, "utm", nil, "Extra attribution pair key=value (repeatable)")
	cmd.Flags().BoolVar(&universal, "universal", false, "Generate an https universal link")

	return cmd
}

// parseParams parses key=value arguments. Values stay strings so IDs such as
// "007" are written as given.
func parseParams(args []string) (map[string]any, error) {
	pairs, err := parsePairs(args)
	if err != nil {
		return nil, err
	}
	params := make(map[string]any, len(pairs))
	for k, v := range pairs {
		params[k] = v
	}
	return params, nil
}

func parsePairs(args []string) (map[string]string, error) {
	pairs := make(map[string]string, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, errors.New(errors.CLIInvalidParam).
				WithDetail("Expected key=value, got " + strconv.Quote(arg)).
				WithExample("merchantId=m1 amount=12.5")
		}
		pairs[key] = value
	}
	return pairs, nil
}

func generateError(pattern string, err error) error {
	switch {
	case stderrors.Is(err, router.ErrMissingParam):
		return errors.New(errors.RouteMissingParam).
			WithSuggestion("Pass a value for every placeholder in " + pattern).
			Wrap(err)
	case stderrors.Is(err, router.ErrInvalidPattern):
		return errors.New(errors.RouteInvalidPattern).Wrap(err)
	default:
		return errors.New(errors.RouteGenerateFailed).Wrap(err)
	}
}
