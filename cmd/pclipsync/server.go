package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pclipsync/pclipsync/internal/config"
	"github.com/pclipsync/pclipsync/internal/lifecycle"
	"github.com/pclipsync/pclipsync/internal/logging"
	"github.com/pclipsync/pclipsync/internal/syncengine"
	"github.com/pclipsync/pclipsync/internal/transport"
	"github.com/pclipsync/pclipsync/internal/xselection"
)

func newServerCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "server [socket-path]",
		Short: "Wait for one peer and sync the local clipboard with it",
		Long: `Listens on a Unix domain socket and waits for exactly one peer to
connect, then synchronizes the local X11 CLIPBOARD and PRIMARY selections
with whatever the peer sends, and vice versa. Exits cleanly when the peer
disconnects.

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
			return runServer(v, args[0])
		},
	}

	config.AddDisplayFlag(cmd)
	config.AddLoggingFlags(cmd)
	config.AddConfigFlag(cmd)

	return cmd
}

func runServer(v *viper.Viper, socketPath string) error {
	logging.Resolve(v.GetBool("verbose"), v.GetString("log-format"))

	ctx, stop := lifecycle.WithSignals(context.Background())
	defer stop()

	slog.Info("pclipsync server starting", "version", Version, "socket", socketPath)

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

	ln, err := transport.Listen(socketPath)
	if err != nil {
		return err
	}
	defer ln.Close()

	slog.Info("listening for peer", "socket", socketPath)
	fmt.Fprintf(os.Stderr, "example reverse-forward from the client's side: ssh -R %s:%s <this-host>\n", socketPath, socketPath)

	conn, err := transport.AcceptOne(ctx, ln)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("accept peer: %w", err)
	}
	defer conn.Close()
	_ = ln.Close()

	slog.Info("peer connected", "remote", conn.RemoteAddr())

	session := syncengine.New(adapter, conn)
	if err := session.Run(ctx); err != nil {
		return fmt.Errorf("session: %w", err)
	}

	slog.Info("peer disconnected, exiting")
	return nil
}
