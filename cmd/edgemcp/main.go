package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"edgemcp/internal/app"
)

type serveOptions struct {
	configPath    string
	transport     string
	listenAddress string
	logLevel      string
}

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}

	code := 0
	if err := newRootCmd(logger).Execute(); err != nil {
		logger.Error("command failed", zap.Error(err))
		code = 1
	}
	_ = logger.Sync()
	os.Exit(code)
}

func newRootCmd(logger *zap.Logger) *cobra.Command {
	opts := serveOptions{
		configPath: "edgemcp.yaml",
	}

	root := &cobra.Command{
		Use:     "edgemcp",
		Short:   "MCP server exposing edge platform operations as tools",
		Version: fmt.Sprintf("%s (build %s)", app.Version, app.Build),
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", opts.configPath, "path to config file")

	root.AddCommand(
		newServeCmd(logger, &opts),
		newValidateCmd(logger, &opts),
		newVersionCmd(),
	)

	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "edgemcp %s (build %s)\n", app.Version, app.Build)
		},
	}
}

func newServeCmd(logger *zap.Logger, opts *serveOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			application := app.New(logger)
			return application.Serve(ctx, app.ServeConfig{
				ConfigPath: opts.configPath,
				Overrides:  collectOverrides(cmd.Flags(), opts),
			})
		},
	}

	cmd.Flags().StringVar(&opts.transport, "transport", "", "override server transport (stdio or http)")
	cmd.Flags().StringVar(&opts.listenAddress, "listen-address", "", "override listen address for http transport")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "", "override log level (debug, info, warn, error)")

	return cmd
}

// collectOverrides picks up only the flags the user set explicitly, so
// an untouched flag never shadows the config file.
func collectOverrides(flags *pflag.FlagSet, opts *serveOptions) app.Overrides {
	var overrides app.Overrides
	flags.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "transport":
			overrides.Transport = opts.transport
		case "listen-address":
			overrides.ListenAddress = opts.listenAddress
		case "log-level":
			overrides.LogLevel = opts.logLevel
		}
	})
	return overrides
}

func newValidateCmd(logger *zap.Logger, opts *serveOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration and credentials without serving",
		RunE: func(cmd *cobra.Command, args []string) error {
			application := app.New(logger)
			return application.ValidateConfig(cmd.Context(), app.ValidateConfig{
				ConfigPath: opts.configPath,
			})
		},
	}
}
