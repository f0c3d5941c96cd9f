// Package commands implements the gobfdctl CLI commands.
package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/clayne/keepalived/internal/diag"
)

const (
	formatJSON  = "json"
	formatTable = "table"
)

// errUnsupportedFormat is returned when the requested output format is not supported.
var errUnsupportedFormat = errors.New("unsupported output format")

// formatSessions renders a slice of session snapshots in the requested format.
func formatSessions(sessions []diag.SessionSnapshot, format string) (string, error) {
	switch format {
	case formatJSON:
		return formatSessionsJSON(sessions)
	case formatTable:
		return formatSessionsTable(sessions)
	default:
		return "", fmt.Errorf("%w: %q", errUnsupportedFormat, format)
	}
}

// formatSession renders a single session snapshot in the requested format.
func formatSession(session diag.SessionSnapshot, format string) (string, error) {
	switch format {
	case formatJSON:
		return formatSessionJSON(session)
	case formatTable:
		return formatSessionDetail(session)
	default:
		return "", fmt.Errorf("%w: %q", errUnsupportedFormat, format)
	}
}

// formatEvent renders a session event in the requested format.
func formatEvent(event diag.SessionEvent, format string) (string, error) {
	switch format {
	case formatJSON:
		return formatEventJSON(event)
	case formatTable:
		return formatEventTable(event), nil
	default:
		return "", fmt.Errorf("%w: %q", errUnsupportedFormat, format)
	}
}

// --- Table formatters ---

func formatSessionsTable(sessions []diag.SessionSnapshot) (string, error) {
	var buf strings.Builder
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DISCRIMINATOR\tPEER\tINTERFACE\tTYPE\tSTATE\tREMOTE-STATE\tDIAG")

	for _, s := range sessions {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			s.LocalDiscriminator,
			s.Session,
			s.Interface,
			s.Type,
			s.LocalState,
			s.RemoteState,
			s.LocalDiag,
		)
	}

	if err := w.Flush(); err != nil {
		return "", fmt.Errorf("flush tabwriter: %w", err)
	}

	return buf.String(), nil
}

func formatSessionDetail(s diag.SessionSnapshot) (string, error) {
	var buf strings.Builder
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)

	fmt.Fprintf(w, "Peer Address:\t%s\n", s.Session)
	fmt.Fprintf(w, "Interface:\t%s\n", s.Interface)
	fmt.Fprintf(w, "Type:\t%s\n", s.Type)
	fmt.Fprintf(w, "Local State:\t%s\n", s.LocalState)
	fmt.Fprintf(w, "Remote State:\t%s\n", s.RemoteState)
	fmt.Fprintf(w, "Local Diagnostic:\t%s\n", s.LocalDiag)
	fmt.Fprintf(w, "Remote Diagnostic:\t%s\n", s.RemoteDiag)
	fmt.Fprintf(w, "Local Discriminator:\t%d\n", s.LocalDiscriminator)
	fmt.Fprintf(w, "Remote Discriminator:\t%d\n", s.RemoteDiscriminator)
	fmt.Fprintf(w, "Detect Multiplier:\t%d\n", s.DetectMult)
	fmt.Fprintf(w, "Desired Min TX:\t%s\n", usecToDuration(s.DesiredMinTxUsec))
	fmt.Fprintf(w, "Required Min RX:\t%s\n", usecToDuration(s.RequiredMinRxUsec))
	fmt.Fprintf(w, "Remote Min RX:\t%s\n", usecToDuration(s.RemoteMinRxUsec))
	fmt.Fprintf(w, "Negotiated TX:\t%s\n", usecToDuration(s.NegotiatedTxUsec))
	fmt.Fprintf(w, "Detection Time:\t%s\n", time.Duration(s.DetectionTimeUsec)*time.Microsecond)
	fmt.Fprintf(w, "Poll:\t%t\n", s.Poll)
	fmt.Fprintf(w, "Final:\t%t\n", s.Final)

	if s.LastSeenUsec > 0 {
		fmt.Fprintf(w, "Last Packet Received:\t%s\n",
			time.UnixMicro(s.LastSeenUsec).Format(time.RFC3339Nano))
	}

	if err := w.Flush(); err != nil {
		return "", fmt.Errorf("flush tabwriter: %w", err)
	}

	return buf.String(), nil
}

func formatEventTable(event diag.SessionEvent) string {
	ts := time.UnixMicro(event.WallClockUsec).Format(time.RFC3339Nano)

	return fmt.Sprintf("[%s] peer=%s state=%s diag=%s",
		ts, event.Session, event.NewState, event.Diagnostic)
}

// --- JSON formatters ---

func formatSessionsJSON(sessions []diag.SessionSnapshot) (string, error) {
	data, err := json.MarshalIndent(sessions, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal sessions to JSON: %w", err)
	}

	return string(data), nil
}

func formatSessionJSON(session diag.SessionSnapshot) (string, error) {
	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal session to JSON: %w", err)
	}

	return string(data), nil
}

func formatEventJSON(event diag.SessionEvent) (string, error) {
	data, err := json.MarshalIndent(event, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal event to JSON: %w", err)
	}

	return string(data), nil
}

func usecToDuration(usec uint32) time.Duration {
	return time.Duration(usec) * time.Microsecond
}
