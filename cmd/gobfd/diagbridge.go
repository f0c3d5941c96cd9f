package main

import (
	"time"

	"github.com/clayne/keepalived/internal/bfd"
	"github.com/clayne/keepalived/internal/diag"
)

// buildSnapshots converts the manager's live session view into the
// diagnostics dump format (component I). Every field the dump file
// documents is populated from the corresponding session snapshot field.
func buildSnapshots(mgr *bfd.Manager) []diag.SessionSnapshot {
	sessions := mgr.Sessions()
	out := make([]diag.SessionSnapshot, 0, len(sessions))

	for _, s := range sessions {
		out = append(out, diag.SessionSnapshot{
			Session:             s.PeerAddr.String(),
			Interface:           s.Interface,
			Type:                s.Type.String(),
			LocalState:          s.State.String(),
			RemoteState:         s.RemoteState.String(),
			LocalDiag:           s.LocalDiag.String(),
			RemoteDiag:          s.RemoteDiag.String(),
			LocalDiscriminator:  s.LocalDiscr,
			RemoteDiscriminator: s.RemoteDiscr,
			DesiredMinTxUsec:    uint32(s.DesiredMinTx.Microseconds()),
			RequiredMinRxUsec:   uint32(s.RequiredMinRx.Microseconds()),
			RemoteMinRxUsec:     uint32(s.RemoteMinRx.Microseconds()),
			NegotiatedTxUsec:    uint32(s.NegotiatedTxInterval.Microseconds()),
			DetectMult:          s.DetectMultiplier,
			DetectionTimeUsec:   uint64(s.DetectionTime.Microseconds()),
			LastSeenUsec:        usecSinceEpoch(s.LastPacketReceived),
			Poll:                s.Poll,
			Final:               s.Final,
		})
	}

	return out
}

// usecSinceEpoch converts t to microseconds since the Unix epoch, or 0 for
// the zero Time (no packet received yet).
func usecSinceEpoch(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMicro()
}

// buildEvent converts a manager state change into the wire format of the
// consumer event socket (spec component G).
func buildEvent(sc bfd.StateChange) diag.SessionEvent {
	return diag.SessionEvent{
		Session:       sc.PeerAddr.String(),
		NewState:      sc.NewState.String(),
		Diagnostic:    sc.Diag.String(),
		WallClockUsec: sc.Timestamp.UnixMicro(),
	}
}
