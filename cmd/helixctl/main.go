// helixctl is a command-line client for the Helix Analytics Platform:
// session login/logout plus compute and launcher context administration.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/helixdata/helix-go/internal/auth"
	"github.com/helixdata/helix-go/internal/config"
	"github.com/helixdata/helix-go/internal/contexts"
	"github.com/helixdata/helix-go/internal/transport"
)

type app struct {
	cfg    *config.Config
	logger *zap.Logger

	configPath string
	serverURL  string
	token      string
	verbose    bool
}

func main() {
	// A .env file is optional; system environment wins regardless.
	_ = godotenv.Load()

	a := &app{}

	root := &cobra.Command{
		Use:           "helixctl",
		Short:         "Manage Helix sessions and compute contexts",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", config.DefaultPath, "path to the helixctl config file")
	root.PersistentFlags().StringVar(&a.serverURL, "server", "", "Helix server origin (overrides config)")
	root.PersistentFlags().StringVar(&a.token, "token", "", "bearer token to attach to context API calls")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(a.loginCommand(), a.logoutCommand(), a.whoamiCommand(), a.contextCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// setup loads configuration and builds the logger. Called once before any
// subcommand runs.
func (a *app) setup() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.serverURL != "" {
		cfg.ServerURL = a.serverURL
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	if a.verbose || cfg.Verbose {
		logger, err := zap.NewDevelopment()
		if err != nil {
			return fmt.Errorf("failed to build logger: %w", err)
		}
		a.logger = logger
	} else {
		a.logger = zap.NewNop()
	}
	return nil
}

func (a *app) client() (*transport.Client, error) {
	return transport.New(a.cfg.ServerURL, transport.WithLogger(a.logger))
}

func (a *app) authManager() (*auth.Manager, error) {
	client, err := a.client()
	if err != nil {
		return nil, err
	}
	return auth.NewManager(client, auth.WithLogger(a.logger)), nil
}

func (a *app) contextManager() (*contexts.Manager, error) {
	client, err := a.client()
	if err != nil {
		return nil, err
	}
	return contexts.NewManager(client, contexts.WithLogger(a.logger)), nil
}
