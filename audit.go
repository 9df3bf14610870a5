package goRelay

import (
	"io"
	"log/slog"

	"github.com/MrEthical07/goRelay/internal/audit"
)

// AuditEvent is one audit record emitted per dispatch, probe, or token failure.
type AuditEvent = audit.Event

// AuditSink receives audit events from the relay's async dispatcher.
type AuditSink = audit.Sink

// Audit event types.
const (
	AuditTagDispatch       = audit.EventTagDispatch
	AuditAppProbe          = audit.EventAppProbe
	AuditAppDispatch       = audit.EventAppDispatch
	AuditTokenUnavailable  = audit.EventTokenUnavailable
	AuditDispatchThrottled = audit.EventDispatchThrottled

	// AuditOther labels drop counts for event types outside this list.
	AuditOther = audit.EventOther
)

// NoOpSink drops audit events.
type NoOpSink = audit.NoOpSink

// NewChannelSink buffers audit events in a channel.
func NewChannelSink(buffer int) *audit.ChannelSink {
	return audit.NewChannelSink(buffer)
}

// NewJSONWriterSink writes one JSON object per line to w.
func NewJSONWriterSink(w io.Writer) *audit.JSONWriterSink {
	return audit.NewJSONWriterSink(w)
}

// NewSlogSink logs audit events through logger.
func NewSlogSink(logger *slog.Logger) *audit.SlogSink {
	return audit.NewSlogSink(logger)
}
