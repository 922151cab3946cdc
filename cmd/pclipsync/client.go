package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pclipsync/pclipsync/internal/config"
	"github.com/pclipsync/pclipsync/internal/lifecycle"
	"github.com/pclipsync/pclipsync/internal/logging"
	"github.com/pclipsync/pclipsync/internal/syncengine"
	"github.com/pclipsync/pclipsync/internal/transport"
	"github.com/pclipsync/pclipsync/internal/xselection"
)

func newClientCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "client [socket-path]",
		Short: "Connect to a pclipsync server and sync the local clipboard",
		Long: `Connects to a pclipsync server over a Unix domain socket and keeps
the local X11 CLIPBOARD and PRIMARY selections in sync with it. Reconnects
automatically with exponential backoff on disconnect; the owner window and
X connection are reused across reconnects, but the echo-guard is reset
before each attempt.

Config file search order:
  /etc/pclipsync/pclipsync.toml
  $HOME/.config/pclipsync/pclipsync.toml
  path supplied via --config

Precedence (lowest → highest): defaults → config file → PCLIPSYNC_* env vars → flags`,
		Args: func(cmd *cobra.Command, args []string) error {
			return lifecycle.WrapUsage(cobra.ExactArgs(1)(cmd, args))
		},
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return lifecycle.WrapUsage(config.Bind(cmd, v))
		},
		RunE: func(_ *cobra.Command, args []string) error {
			return runClient(v, args[0])
		},
	}

	config.AddDisplayFlag(cmd)
	config.AddLoggingFlags(cmd)
	config.AddConfigFlag(cmd)
	cmd.Flags().Duration("reconnect-initial", time.Second, "initial delay before retrying a failed connection")
	cmd.Flags().Duration("reconnect-max", 60*time.Second, "maximum delay between reconnect attempts")

	return cmd
}

func runClient(v *viper.Viper, socketPath string) error {
	logging.Resolve(v.GetBool("verbose"), v.GetString("log-format"))

	ctx, stop := lifecycle.WithSignals(context.Background())
	defer stop()

	slog.Info("pclipsync client starting", "version", Version, "socket", socketPath)

	adapter, err := xselection.Open(v.GetString("display"))
	if err != nil {
		return fmt.Errorf("open X display: %w", err)
	}
	defer adapter.Close()

	if err := adapter.Subscribe(xselection.Clipboard); err != nil {
		return fmt.Errorf("subscribe CLIPBOARD: %w", err)
	}
	if err := adapter.Subscribe(xselection.Primary); err != nil {
		return fmt.Errorf("subscribe PRIMARY: %w", err)
	}

	session := syncengine.New(adapter, nil)

	dialer := transport.Dialer{
		Path:    socketPath,
		Initial: v.GetDuration("reconnect-initial"),
		Max:     v.GetDuration("reconnect-max"),
	}

	err = dialer.Run(ctx, func(ctx context.Context, conn net.Conn) {
		slog.Info("connected to server", "socket", socketPath)
		session.Reset(conn)
		if err := session.Run(ctx); err != nil {
			slog.Warn("session ended", "err", err)
		}
	})
	if ctx.Err() != nil {
		return nil
	}
	return err
}
