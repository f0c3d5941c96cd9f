// Package diag implements the diagnostics dump and session event formats
// used by gobfdctl to inspect a running daemon without a control-plane RPC.
package diag

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// SessionSnapshot is one session's worth of state as captured by a
// diagnostics dump. Field names match the text dump's keys.
type SessionSnapshot struct {
	Session             string `json:"session"`
	Interface           string `json:"interface"`
	Type                string `json:"type"`
	LocalState          string `json:"local_state"`
	RemoteState         string `json:"remote_state"`
	LocalDiag           string `json:"local_diag"`
	RemoteDiag          string `json:"remote_diag"`
	LocalDiscriminator  uint32 `json:"local_discriminator"`
	RemoteDiscriminator uint32 `json:"remote_discriminator"`
	DesiredMinTxUsec    uint32 `json:"desired_min_tx_usec"`
	RequiredMinRxUsec   uint32 `json:"required_min_rx_usec"`
	RemoteMinRxUsec     uint32 `json:"remote_min_rx_usec"`
	NegotiatedTxUsec    uint32 `json:"negotiated_tx_usec"`
	DetectMult          uint8  `json:"detect_mult"`
	DetectionTimeUsec   uint64 `json:"detection_time_usec"`
	LastSeenUsec        int64  `json:"last_seen_usec"`
	Poll                bool   `json:"poll"`
	Final               bool   `json:"final"`
}

// snapshotFields lists the dump keys in write order, paired with accessors.
// Keeping the order explicit makes the text dump stable across runs, which
// matters for anyone diffing two snapshots by eye.
var snapshotFields = []string{
	"session", "interface", "type",
	"local_state", "remote_state", "local_diag", "remote_diag",
	"local_discriminator", "remote_discriminator",
	"desired_min_tx_usec", "required_min_rx_usec", "remote_min_rx_usec", "negotiated_tx_usec",
	"detect_mult", "detection_time_usec", "last_seen_usec",
	"poll", "final",
}

// WriteDump writes a human-readable snapshot of every session to w: one
// key: value pair per line, sessions separated by a blank line. This is not
// a programmatic API; it exists so an operator (or gobfdctl) can read the
// state of a running daemon directly off disk.
func WriteDump(w io.Writer, sessions []SessionSnapshot) error {
	bw := bufio.NewWriter(w)

	for i, s := range sessions {
		if i > 0 {
			if _, err := bw.WriteString("\n"); err != nil {
				return fmt.Errorf("write dump separator: %w", err)
			}
		}

		values := map[string]string{
			"session":              s.Session,
			"interface":            s.Interface,
			"type":                 s.Type,
			"local_state":          s.LocalState,
			"remote_state":         s.RemoteState,
			"local_diag":           s.LocalDiag,
			"remote_diag":          s.RemoteDiag,
			"local_discriminator":  strconv.FormatUint(uint64(s.LocalDiscriminator), 10),
			"remote_discriminator": strconv.FormatUint(uint64(s.RemoteDiscriminator), 10),
			"desired_min_tx_usec":  strconv.FormatUint(uint64(s.DesiredMinTxUsec), 10),
			"required_min_rx_usec": strconv.FormatUint(uint64(s.RequiredMinRxUsec), 10),
			"remote_min_rx_usec":   strconv.FormatUint(uint64(s.RemoteMinRxUsec), 10),
			"negotiated_tx_usec":   strconv.FormatUint(uint64(s.NegotiatedTxUsec), 10),
			"detect_mult":          strconv.FormatUint(uint64(s.DetectMult), 10),
			"detection_time_usec":  strconv.FormatUint(s.DetectionTimeUsec, 10),
			"last_seen_usec":       strconv.FormatInt(s.LastSeenUsec, 10),
			"poll":                 strconv.FormatBool(s.Poll),
			"final":                strconv.FormatBool(s.Final),
		}

		for _, key := range snapshotFields {
			if _, err := fmt.Fprintf(bw, "%s: %s\n", key, values[key]); err != nil {
				return fmt.Errorf("write dump field %s: %w", key, err)
			}
		}
	}

	return bw.Flush()
}

// ParseDump parses a diagnostics dump previously written by WriteDump.
func ParseDump(r io.Reader) ([]SessionSnapshot, error) {
	var (
		sessions []SessionSnapshot
		cur      SessionSnapshot
		active   bool
	)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			if active {
				sessions = append(sessions, cur)
				cur = SessionSnapshot{}
				active = false
			}

			continue
		}

		key, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("parse dump line %q: missing colon", line)
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		active = true

		if err := assignField(&cur, key, value); err != nil {
			return nil, fmt.Errorf("parse dump line %q: %w", line, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read dump: %w", err)
	}

	if active {
		sessions = append(sessions, cur)
	}

	return sessions, nil
}

func assignField(s *SessionSnapshot, key, value string) error {
	switch key {
	case "session":
		s.Session = value
	case "interface":
		s.Interface = value
	case "type":
		s.Type = value
	case "local_state":
		s.LocalState = value
	case "remote_state":
		s.RemoteState = value
	case "local_diag":
		s.LocalDiag = value
	case "remote_diag":
		s.RemoteDiag = value
	case "local_discriminator":
		v, err := strconv.ParseUint(value, 10, 32)
		if err != nil {
			return err
		}
		s.LocalDiscriminator = uint32(v)
	case "remote_discriminator":
		v, err := strconv.ParseUint(value, 10, 32)
		if err != nil {
			return err
		}
		s.RemoteDiscriminator = uint32(v)
	case "desired_min_tx_usec":
		v, err := strconv.ParseUint(value, 10, 32)
		if err != nil {
			return err
		}
		s.DesiredMinTxUsec = uint32(v)
	case "required_min_rx_usec":
		v, err := strconv.ParseUint(value, 10, 32)
		if err != nil {
			return err
		}
		s.RequiredMinRxUsec = uint32(v)
	case "remote_min_rx_usec":
		v, err := strconv.ParseUint(value, 10, 32)
		if err != nil {
			return err
		}
		s.RemoteMinRxUsec = uint32(v)
	case "negotiated_tx_usec":
		v, err := strconv.ParseUint(value, 10, 32)
		if err != nil {
			return err
		}
		s.NegotiatedTxUsec = uint32(v)
	case "detect_mult":
		v, err := strconv.ParseUint(value, 10, 8)
		if err != nil {
			return err
		}
		s.DetectMult = uint8(v)
	case "detection_time_usec":
		v, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return err
		}
		s.DetectionTimeUsec = v
	case "last_seen_usec":
		v, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		s.LastSeenUsec = v
	case "poll":
		v, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		s.Poll = v
	case "final":
		v, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		s.Final = v
	default:
		// Unknown keys are ignored rather than rejected so gobfdctl keeps
		// reading dumps written by a newer daemon version.
	}

	return nil
}

// FindByDiscriminator returns the session with the given local discriminator.
func FindByDiscriminator(sessions []SessionSnapshot, discr uint32) (SessionSnapshot, bool) {
	for _, s := range sessions {
		if s.LocalDiscriminator == discr {
			return s, true
		}
	}

	return SessionSnapshot{}, false
}

// FindByPeer returns the session whose peer address matches the given string.
func FindByPeer(sessions []SessionSnapshot, peer string) (SessionSnapshot, bool) {
	for _, s := range sessions {
		if s.Session == peer {
			return s, true
		}
	}

	return SessionSnapshot{}, false
}
