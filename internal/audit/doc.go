// Package audit records relay outcomes asynchronously.
//
// # Components
//
//   - [Sink]: interface for event consumers (channel, JSON writer, slog, no-op).
//   - [Dispatcher]: buffered async relay with drop-if-full / block-if-full semantics.
//   - [Event]: one record per dispatch, probe, or token failure.
//
// # Architecture boundaries
//
// This package owns buffering and sink delivery. It does NOT decide which events to
// emit; the relay does.
package audit
