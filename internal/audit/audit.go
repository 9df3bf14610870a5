package audit

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"time"
)

// Event types emitted by the relay.
const (
	EventTagDispatch       = "tag_dispatch"
	EventAppProbe          = "app_probe"
	EventAppDispatch       = "app_dispatch"
	EventTokenUnavailable  = "token_unavailable"
	EventDispatchThrottled = "dispatch_throttled"

	// EventOther buckets counters for event types not listed above.
	EventOther = "other"
)

// EventTypes lists the relay event types in a stable order.
var EventTypes = []string{
	EventTagDispatch,
	EventAppProbe,
	EventAppDispatch,
	EventTokenUnavailable,
	EventDispatchThrottled,
}

// Event is one audit record.
type Event struct {
	Timestamp  time.Time         `json:"timestamp"`
	EventType  string            `json:"event_type"`
	DeliveryID string            `json:"delivery_id,omitempty"`
	IssueID    string            `json:"issue_id,omitempty"`
	Tag        string            `json:"tag,omitempty"`
	Repo       string            `json:"repo,omitempty"`
	Status     int               `json:"status,omitempty"`
	Success    bool              `json:"success"`
	Error      string            `json:"error,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// Sink receives emitted audit events.
type Sink interface {
	Emit(ctx context.Context, event Event)
}

// NoOpSink drops audit events.
type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, Event) {}

// ChannelSink writes audit events into a buffered channel.
type ChannelSink struct {
	events chan Event
}

func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{
		events: make(chan Event, buffer),
	}
}

func (s *ChannelSink) Emit(ctx context.Context, event Event) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

func (s *ChannelSink) Events() <-chan Event {
	return s.events
}

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink struct {
	writer io.Writer
	mu     sync.Mutex
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{
		writer: w,
	}
}

func (s *JSONWriterSink) Emit(ctx context.Context, event Event) {
	if s == nil || s.writer == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, _ = s.writer.Write(data)
	_, _ = s.writer.Write([]byte("\n"))
}

// SlogSink logs each event at info (success) or warn (failure).
type SlogSink struct {
	logger *slog.Logger
}

func NewSlogSink(logger *slog.Logger) *SlogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogSink{logger: logger}
}

func (s *SlogSink) Emit(ctx context.Context, event Event) {
	level := slog.LevelInfo
	if !event.Success {
		level = slog.LevelWarn
	}
	attrs := []slog.Attr{
		slog.String("event_type", event.EventType),
		slog.Bool("success", event.Success),
	}
	if event.DeliveryID != "" {
		attrs = append(attrs, slog.String("delivery_id", event.DeliveryID))
	}
	if event.IssueID != "" {
		attrs = append(attrs, slog.String("issue_id", event.IssueID))
	}
	if event.Tag != "" {
		attrs = append(attrs, slog.String("tag", event.Tag))
	}
	if event.Repo != "" {
		attrs = append(attrs, slog.String("repo", event.Repo))
	}
	if event.Status != 0 {
		attrs = append(attrs, slog.Int("status", event.Status))
	}
	if event.Error != "" {
		attrs = append(attrs, slog.String("error", event.Error))
	}
	for k, v := range event.Metadata {
		attrs = append(attrs, slog.String(k, v))
	}
	s.logger.LogAttrs(ctx, level, "audit", attrs...)
}
