package bfd

import "net/netip"

// MetricsReporter is the metrics sink the Manager and its Sessions report
// to. internal/metrics.Collector satisfies this interface; callers that do
// not care about metrics can leave it unset and get noopMetrics instead.
type MetricsReporter interface {
	RegisterSession(peer, local netip.Addr, sessionType string)
	UnregisterSession(peer, local netip.Addr, sessionType string)
	IncPacketsSent(peer, local netip.Addr)
	IncPacketsReceived(peer, local netip.Addr)
	IncPacketsDropped(peer, local netip.Addr)
	RecordStateTransition(peer, local netip.Addr, from, to string)
	IncAuthFailures(peer, local netip.Addr)
	IncGTSMDrops(peer, local netip.Addr)
	IncDiscriminatorRetries()
}

// noopMetrics discards every call. It is the default MetricsReporter so the
// engine never needs a nil check at the call site.
type noopMetrics struct{}

func (noopMetrics) RegisterSession(netip.Addr, netip.Addr, string)               {}
func (noopMetrics) UnregisterSession(netip.Addr, netip.Addr, string)             {}
func (noopMetrics) IncPacketsSent(netip.Addr, netip.Addr)                        {}
func (noopMetrics) IncPacketsReceived(netip.Addr, netip.Addr)                    {}
func (noopMetrics) IncPacketsDropped(netip.Addr, netip.Addr)                     {}
func (noopMetrics) RecordStateTransition(netip.Addr, netip.Addr, string, string) {}
func (noopMetrics) IncAuthFailures(netip.Addr, netip.Addr)                       {}
func (noopMetrics) IncGTSMDrops(netip.Addr, netip.Addr)                          {}
func (noopMetrics) IncDiscriminatorRetries()                                     {}
