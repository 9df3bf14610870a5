// Package goRelay turns issue-tracker "tag added" events into GitHub calls.
//
// A [Relay] holds an ordered list of [Rule]s. Each rule binds one tag to one
// action: fire repository_dispatch with a personal access token, probe whether a
// GitHub App token minted on this host is accepted, or fire repository_dispatch
// with an installation access token obtained through the app.
//
// Relays are built once through [Builder.Build] and are safe to call from
// multiple goroutines afterwards.
//
// # Architecture boundaries
//
// goRelay is the public surface. It exposes [Relay], [Builder], [Config], and
// value types ([Outcome], [ProbeResult], [MetricsSnapshot]). Token assembly lives
// in the jwt package, REST calls in the github package, and throttling and audit
// delivery under internal/.
//
// # What this package must NOT do
//
//   - Log or return key material, app tokens, or installation tokens.
//   - Abort the remaining rules of an event because one rule failed.
//   - Perform I/O during construction other than key parsing.
package goRelay
