// pclipsync: bidirectional X11 selection sync between two peers over a
// stream byte channel.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pclipsync/pclipsync/internal/lifecycle"
)

// Version is set at build time via -ldflags "-X main.Version=x.y.z".
var Version = "dev"

func main() {
	root := &cobra.Command{
		Use:   "pclipsync",
		Short: "Bidirectional X11 clipboard/primary selection sync",
		Long: `pclipsync keeps the X11 CLIPBOARD and PRIMARY selections in sync
between exactly two peers connected over a stream byte channel — typically a
Unix domain socket forwarded over SSH.

Run "pclipsync server <socket-path>" on one side and
"pclipsync client <socket-path>" on the other. The client reconnects
automatically with exponential backoff; the server waits for exactly one
peer per run.`,
		SilenceUsage: true,
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return lifecycle.WrapUsage(err)
	})

	root.AddCommand(
		newServerCmd(),
		newClientCmd(),
		newVersionCmd(),
	)

	os.Exit(lifecycle.Code(root.Execute()))
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("pclipsync %s\n", Version)
		},
	}
}
