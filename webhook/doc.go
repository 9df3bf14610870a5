// Package webhook is the HTTP ingress for tracker events, built on gin.
//
// Routes:
//
//   - POST /v1/events/tag-added accepts a JSON [goRelay.TagEvent] and runs the relay rules.
//   - POST /v1/probe runs the GitHub App authentication probe.
//   - GET /healthz reports backend health.
//   - GET /metrics when a metrics handler is supplied.
//
// Both POST routes require the X-Relay-Secret header to match the configured
// shared secret.
//
// # What this package must NOT do
//
//   - Decide which rules run. All decisions are delegated to the relay.
//   - Echo the shared secret or GitHub credentials in responses.
package webhook
