// Package bfd implements the BFD (RFC 5880/5881/5883) session engine used
// by keepalived's failover core to detect peer liveness across single-hop
// and multi-hop paths.
//
// It owns the FSM (Section 6.8), session timers and TX/RX scheduling,
// discriminator allocation and packet demultiplexing, and the Control
// packet codec. Session state transitions are surfaced as an ordered
// stream of StateChange events for the VRRP engine and service-health
// checker to consume; the engine itself has no knowledge of either
// consumer.
package bfd
