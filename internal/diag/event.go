package diag

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
)

// SessionEvent is emitted whenever a session's local_state transitions. The
// engine delivers these in order, per session, over the local consumer IPC;
// it does not retransmit on loss, so a subscriber that reconnects re-syncs
// from the next dump rather than replaying history.
type SessionEvent struct {
	Session       string `json:"session"`
	NewState      string `json:"new_state"`
	Diagnostic    string `json:"diagnostic"`
	WallClockUsec int64  `json:"wallclock_usec"`
}

// EncodeEvent writes one newline-delimited JSON record to w.
func EncodeEvent(w io.Writer, ev SessionEvent) error {
	enc := json.NewEncoder(w)
	if err := enc.Encode(ev); err != nil {
		return fmt.Errorf("encode session event: %w", err)
	}

	return nil
}

// EventReader decodes a stream of newline-delimited SessionEvent records,
// such as the one read off the consumer IPC socket by gobfdctl monitor.
type EventReader struct {
	scanner *bufio.Scanner
}

// NewEventReader wraps r for sequential SessionEvent decoding.
func NewEventReader(r io.Reader) *EventReader {
	return &EventReader{scanner: bufio.NewScanner(r)}
}

// Next reads and decodes the next event. It returns io.EOF when the stream
// ends cleanly.
func (r *EventReader) Next() (SessionEvent, error) {
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			return SessionEvent{}, fmt.Errorf("read session event: %w", err)
		}

		return SessionEvent{}, io.EOF
	}

	var ev SessionEvent
	if err := json.Unmarshal(r.scanner.Bytes(), &ev); err != nil {
		return SessionEvent{}, fmt.Errorf("decode session event: %w", err)
	}

	return ev, nil
}
