package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/casdk/internal/infrastructure/config"
	"github.com/GriffinCanCode/casdk/internal/infrastructure/server"
)

type serveOptions struct {
	port     string
	host     string
	apps     string
	shellURL string
	dev      bool
}

func newServeCommand() *cobra.Command {
	var opts serveOptions

	c := &cobra.Command{
		Use:   "serve",
		Short: "Run the runtime and its HTTP API",
		Long: `Run the acquisition loop, the application manager and the HTTP API.

Configuration comes from the environment (PORT, APPS_PATH, SHELL_URL,
POLL_INTERVAL, ...). Flags override the environment.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			opts.apply(cmd, cfg)
			return runServe(cmd.Context(), cfg)
		},
	}

	f := c.Flags()
	f.StringVar(&opts.port, "port", "", "HTTP port")
	f.StringVar(&opts.host, "host", "", "HTTP listen host")
	f.StringVar(&opts.apps, "apps", "", "Application directory")
	f.StringVar(&opts.shellURL, "shell", "", "Host shell endpoint")
	f.BoolVar(&opts.dev, "dev", false, "Development logging")
	return c
}

func (o serveOptions) apply(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("port") {
		cfg.Server.Port = o.port
	}
	if f.Changed("host") {
		cfg.Server.Host = o.host
	}
	if f.Changed("apps") {
		cfg.Apps.Path = o.apps
	}
	if f.Changed("shell") {
		cfg.Shell.URL = o.shellURL
	}
	if f.Changed("dev") {
		cfg.Logging.Development = o.dev
	}
}

func runServe(parent context.Context, cfg *config.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv, err := server.NewServer(cfg)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	defer srv.Close()

	return srv.Run(ctx)
}
