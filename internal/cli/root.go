// Package cli is the portd command entrypoint.
package cli

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"

	"portd/internal/portd/broadcast"
	"portd/internal/portd/daemon"
	"portd/pkg/config"
	"portd/pkg/logger"
)

var (
	configPath string
	ealArgs    []string
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "portd",
		Short: "Bring up one capture port and broadcast bring-up telemetry",
		Long: `portd brings up a single high-speed network port for raw packet
capture/transmission (pinned link speed, jumbo MTU, FEC forced off) and
publishes bring-up and link telemetry on a non-blocking broadcast endpoint.`,
		RunE:         runDaemon,
		SilenceUsage: true,
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to a YAML config file")
	cmd.Flags().StringSliceVar(&ealArgs, "eal", nil, "extra device environment arguments (dpdk builds)")

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}

func runDaemon(cmd *cobra.Command, args []string) error {
	if configPath != "" {
		if err := os.Setenv("PORTD_CONFIG_PATH", configPath); err != nil {
			return err
		}
	}

	cfg, path, err := config.LoadConfig()
	if err != nil {
		return err
	}

	if level, err := logger.ParseLevel(cfg.Logging.Level); err == nil {
		logger.SetLevel(level)
	}
	logger.Info("configuration loaded", "source", path)

	dev, err := newDevice(cfg, ealArgs)
	if err != nil {
		return err
	}

	// Signal handlers only cancel the run context; all teardown happens in
	// the daemon, outside signal context.
	ctx, stop := signal.NotifyContext(context.Background(), unix.SIGINT, unix.SIGTERM)
	defer stop()

	d := daemon.New(daemon.Dependencies{
		Config:    cfg,
		Device:    dev,
		Transport: broadcast.NewZMQTransport(),
	})

	return d.Run(ctx)
}
