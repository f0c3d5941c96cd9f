package bfd

// StateCallback is a function invoked when a BFD session changes state.
//
// The two consumers are the VRRP engine, which demotes or promotes a
// router instance on Up/Down transitions, and the service-health checker,
// which folds BFD liveness into its own real-server health view. Neither
// consumer is known to this package; both subscribe via the same channel.
//
// Callbacks are invoked synchronously by the consumer goroutine. Long-running
// operations should be dispatched asynchronously to avoid blocking the
// notification pipeline.
//
// Usage with Manager.StateChanges():
//
//	go func() {
//	    for change := range mgr.StateChanges() {
//	        for _, cb := range callbacks {
//	            cb(change)
//	        }
//	    }
//	}()
//
// The Manager exposes state change notifications via the StateChanges() channel.
// External consumers read from this channel and invoke registered callbacks.
// This decoupled design avoids an import cycle between the bfd package and
// the VRRP and checker packages that react to its events.
//
// For BFD flap dampening (RFC 5882 Section 3.2), the callback consumer
// should implement exponential backoff before propagating rapid Down->Up->Down
// oscillations into a VRRP priority change.
type StateCallback func(change StateChange)
