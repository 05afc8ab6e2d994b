package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/waqiti-dev/deeplink/internal/config"
	"github.com/waqiti-dev/deeplink/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootOptions holds the persistent flags shared by every command.
type rootOptions struct {
	configPath string
	logLevel   string
	logFormat  string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		errors.Print(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "deeplink",
		Short: "Deep-link routing and dispatch",
		Long: `deeplink routes app links to in-app destinations.

It parses custom-scheme and universal links, matches them against the
route table, checks sign-in and permissions, and hands the destination
to a navigation host. Links that arrive before a host is connected are
queued and replayed in order.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Path to deeplink.json (default: nearest in the working directory or above)")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "text", "Log format: text or json")

	rootCmd.AddCommand(
		serveCmd(opts),
		routeCmd(opts),
		testCmd(opts),
		generateCmd(opts),
		routesCmd(opts),
		configCmd(opts),
		versionCmd(),
	)

	return rootCmd
}

// loadConfig resolves the effective configuration.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	return config.Resolve(o.configPath)
}

// logger builds the process logger. Logs go to stderr so command output on
// stdout stays machine-readable.
func (o *rootOptions) logger(w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(o.logLevel)); err != nil {
		return nil, errors.New(errors.CLIInvalidArgs).
			WithDetail("Unknown log level " + o.logLevel).
			WithSuggestion("Use debug, info, warn or error")
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(o.logFormat) {
	case "json":
		return slog.New(slog.NewJSONHandler(w, handlerOpts)), nil
	case "text", "":
		return slog.New(slog.NewTextHandler(w, handlerOpts)), nil
	default:
		return nil, errors.New(errors.CLIInvalidArgs).
			WithDetail("Unknown log format " + o.logFormat).
			WithSuggestion("Use text or json")
	}
}

// success prints a success message.
func success(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "  %s\n", fmt.Sprintf(format, args...))
}

// warn prints a warning message.
func warn(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "\033[33m⚠\033[0m %s\n", fmt.Sprintf(format, args...))
}

// failure prints an error message.
func failure(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "\033[31m✗\033[0m %s\n", fmt.Sprintf(format, args...))
}
