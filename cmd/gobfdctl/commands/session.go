package commands

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/clayne/keepalived/internal/diag"
)

// errSessionNotFound is returned when session show cannot find a matching
// entry in the diagnostics dump.
var errSessionNotFound = errors.New("session not found in dump")

func sessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Inspect BFD sessions via the diagnostics dump",
	}

	cmd.AddCommand(sessionListCmd())
	cmd.AddCommand(sessionShowCmd())

	return cmd
}

func readDump() ([]diag.SessionSnapshot, error) {
	f, err := os.Open(dumpFile)
	if err != nil {
		return nil, fmt.Errorf("open dump file: %w", err)
	}
	defer f.Close()

	sessions, err := diag.ParseDump(f)
	if err != nil {
		return nil, fmt.Errorf("parse dump file: %w", err)
	}

	return sessions, nil
}

// --- session list ---

func sessionListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all BFD sessions from the diagnostics dump",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			sessions, err := readDump()
			if err != nil {
				return err
			}

			out, err := formatSessions(sessions, outputFormat)
			if err != nil {
				return fmt.Errorf("format sessions: %w", err)
			}

			fmt.Print(out)

			return nil
		},
	}
}

// --- session show ---

func sessionShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <peer-address-or-discriminator>",
		Short: "Show details of a BFD session from the diagnostics dump",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			sessions, err := readDump()
			if err != nil {
				return err
			}

			session, ok := lookupSession(sessions, args[0])
			if !ok {
				return fmt.Errorf("%w: %q", errSessionNotFound, args[0])
			}

			out, err := formatSession(session, outputFormat)
			if err != nil {
				return fmt.Errorf("format session: %w", err)
			}

			fmt.Print(out)

			return nil
		},
	}
}

// lookupSession resolves the identifier argument as either a uint32
// discriminator or a peer address string.
func lookupSession(sessions []diag.SessionSnapshot, identifier string) (diag.SessionSnapshot, bool) {
	if discr, err := strconv.ParseUint(identifier, 10, 32); err == nil {
		return diag.FindByDiscriminator(sessions, uint32(discr))
	}

	return diag.FindByPeer(sessions, identifier)
}
