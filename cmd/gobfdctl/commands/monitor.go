package commands

import (
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/spf13/cobra"

	"github.com/clayne/keepalived/internal/diag"
)

func monitorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Stream BFD session events",
		Long:  "Connects to the gobfd consumer event socket and prints session state changes until interrupted (Ctrl+C).",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			conn, err := net.Dial("unix", eventSocket)
			if err != nil {
				return fmt.Errorf("dial event socket %s: %w", eventSocket, err)
			}
			defer conn.Close()

			reader := diag.NewEventReader(conn)

			for {
				ev, err := reader.Next()
				if err != nil {
					if errors.Is(err, io.EOF) {
						return nil
					}

					return fmt.Errorf("read event: %w", err)
				}

				out, err := formatEvent(ev, outputFormat)
				if err != nil {
					return fmt.Errorf("format event: %w", err)
				}

				fmt.Println(out)
			}
		},
	}

	return cmd
}
