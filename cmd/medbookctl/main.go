// Command medbookctl is the operator console: a chat REPL, booking administration and backups.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"medbook/internal/app"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// env is what every subcommand opens before running.
type env struct {
	app    *app.App
	logger zerolog.Logger
	closer io.Closer
}

func (e *env) Close() {
	_ = e.app.Close()
	if e.closer != nil {
		_ = e.closer.Close()
	}
}

func rootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "medbookctl",
		Short:         "Operator console for the appointment assistant",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configPath != "" {
				return os.Setenv("CONFIG_PATH", configPath)
			}
			return nil
		},
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path (default $CONFIG_PATH or configs/config.yaml)")

	cmd.AddCommand(chatCmd(), bookingsCmd(), backupCmd())
	return cmd
}

func openEnv(ctx context.Context) (*env, error) {
	cfg, logger, closer, err := app.LoadConfigAndLogger("medbookctl")
	if err != nil {
		return nil, err
	}
	a, err := app.New(ctx, cfg, &logger)
	if err != nil {
		if closer != nil {
			_ = closer.Close()
		}
		return nil, err
	}
	return &env{app: a, logger: logger, closer: closer}, nil
}
