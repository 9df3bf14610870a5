package internaldefs

import (
	"sort"

	goRelay "github.com/MrEthical07/goRelay"
)

// CounterDef binds a relay counter to its exported name.
type CounterDef struct {
	ID   goRelay.MetricID
	Name string
	Help string
}

// HistogramDef binds a relay histogram to its exported name.
type HistogramDef struct {
	ID   goRelay.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: goRelay.MetricTagEventReceived, Name: "gorelay_tag_event_received_total", Help: "Tag-added events accepted."},
	{ID: goRelay.MetricRuleMatched, Name: "gorelay_rule_matched_total", Help: "Rule executions triggered by an added tag."},
	{ID: goRelay.MetricDispatchSuccess, Name: "gorelay_dispatch_success_total", Help: "Repository dispatches accepted by GitHub."},
	{ID: goRelay.MetricDispatchFailure, Name: "gorelay_dispatch_failure_total", Help: "Repository dispatches that failed or were rejected."},
	{ID: goRelay.MetricDispatchThrottled, Name: "gorelay_dispatch_throttled_total", Help: "Repository dispatches skipped by the throttle."},
	{ID: goRelay.MetricTokenMinted, Name: "gorelay_token_minted_total", Help: "GitHub App tokens minted."},
	{ID: goRelay.MetricTokenUnavailable, Name: "gorelay_token_unavailable_total", Help: "Mint attempts where no signer succeeded."},
	{ID: goRelay.MetricSignerAttemptFailed, Name: "gorelay_signer_attempt_failed_total", Help: "Individual signer candidates that failed."},
	{ID: goRelay.MetricProbeSuccess, Name: "gorelay_probe_success_total", Help: "Installation lookups that accepted the app token."},
	{ID: goRelay.MetricProbeFailure, Name: "gorelay_probe_failure_total", Help: "Installation lookups that did not accept the app token."},
	{ID: goRelay.MetricInstallationTokenIssued, Name: "gorelay_installation_token_issued_total", Help: "Installation access tokens obtained."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: goRelay.MetricGitHubLatency, Name: "gorelay_github_latency_seconds", Help: "GitHub REST call latency."},
}

// AuditDroppedName is the counter for audit events lost to backpressure,
// labelled by AuditEventTypeLabel.
const (
	AuditDroppedName    = "gorelay_audit_dropped_total"
	AuditDroppedHelp    = "Dropped audit events due to dispatcher backpressure, by event type."
	AuditEventTypeLabel = "event_type"
)

// SortedKeys returns the keys of m in order, for stable label output.
func SortedKeys(m map[string]uint64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// HistogramUpperBounds are the finite bucket bounds in seconds. The eighth bucket
// is +Inf.
var HistogramUpperBounds = []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}

// NormalizeBuckets copies raw into a fixed array, zero-filling missing buckets.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
