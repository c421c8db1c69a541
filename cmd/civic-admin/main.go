// Command civic-admin runs operator tasks against a portal deployment:
// schema migrations, session revocation, demo account files and access
// token inspection.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/civicconnect/portal/config"
	"github.com/civicconnect/portal/internal/bootstrap"
	"github.com/spf13/cobra"
)

// app carries what subcommands share. Tests replace the loaders.
type app struct {
	logger       *slog.Logger
	loadConfig   func() (config.AppConfig, error)
	openSessions func(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) (sessionAdmin, func() error, error)
}

func main() {
	logger := bootstrap.InitLogger()
	a := &app{
		logger:       logger,
		loadConfig:   bootstrap.LoadConfig,
		openSessions: openRedisSessions,
	}
	if err := newRootCmd(a).ExecuteContext(context.Background()); err != nil {
		logger.Error("command failed", "error", err)
		os.Exit(1) //nolint:forbidigo // CLI must signal failure to shell scripts
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "civic-admin",
		Short:         "Operate a Civic Connect portal deployment",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newMigrateCmd(a),
		newSessionsCmd(a),
		newDemoAccountsCmd(),
		newTokenCmd(a),
	)
	return root
}

func (a *app) config() (*config.AppConfig, error) {
	cfg, err := a.loadConfig()
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}
