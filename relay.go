package goRelay

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/goRelay/github"
	"github.com/MrEthical07/goRelay/internal/audit"
	"github.com/MrEthical07/goRelay/internal/rate"
	"github.com/MrEthical07/goRelay/jwt"
	"github.com/redis/go-redis/v9"
)

// Probe conclusions.
const (
	ConclusionFeasible          = "app authentication appears feasible from this environment"
	ConclusionSignerUnavailable = "app authentication not supported in this runtime"
	ConclusionNotAccepted       = "token likely not accepted; app authentication likely not feasible"
	ConclusionLookupError       = "installation lookup could not be completed"
	ConclusionNotConfigured     = "app authentication not configured"
)

// Relay turns tracker tag events into GitHub calls.
//
// Relay is safe for concurrent use after Build.
type Relay struct {
	config    Config
	github    *github.Client
	assembler *jwt.Assembler
	publicKey *rsa.PublicKey
	limiter   *rate.Limiter
	redis     redis.UniversalClient
	audit     *audit.Dispatcher
	metrics   *Metrics
	logger    *slog.Logger
	newID     func() string

	closed atomic.Bool
}

// HandleTagAdded describes the handletagadded operation and its observable behavior.
//
// HandleTagAdded runs every rule whose tag was added, in configuration order, and
// returns one Outcome per executed rule. A failing rule never stops the ones after
// it; the returned error is reserved for events that cannot be processed at all.
func (r *Relay) HandleTagAdded(ctx context.Context, ev TagEvent) ([]Outcome, error) {
	if r.closed.Load() {
		return nil, ErrRelayClosed
	}
	if strings.TrimSpace(ev.IssueID) == "" {
		return nil, fmt.Errorf("%w: missing issue id", ErrInvalidEvent)
	}

	r.metrics.Inc(MetricTagEventReceived)

	var outcomes []Outcome
	for _, rule := range r.config.Rules {
		tag, ok := ev.Match(rule.Tag)
		if !ok {
			continue
		}
		if err := ctx.Err(); err != nil {
			out := r.newOutcome(rule)
			out.fail(err)
			outcomes = append(outcomes, out)
			continue
		}

		r.metrics.Inc(MetricRuleMatched)
		r.logger.Info("tag rule matched", "rule", rule.Name, "tag", rule.Tag, "issue", ev.displayKey(), "action", string(rule.Action), "request_id", requestIDFromContext(ctx))

		var out Outcome
		switch rule.Action {
		case ActionDispatch:
			out = r.dispatch(ctx, rule, ev, tag)
		case ActionProbe:
			out = r.probeRule(ctx, rule)
		case ActionAppDispatch:
			out = r.appDispatch(ctx, rule, ev, tag)
		}
		outcomes = append(outcomes, out)
	}

	return outcomes, nil
}

func (r *Relay) newOutcome(rule Rule) Outcome {
	return Outcome{
		Rule:   rule.Name,
		Tag:    rule.Tag,
		Action: rule.Action,
		Repo:   r.repoFor(rule),
	}
}

func (r *Relay) repoFor(rule Rule) string {
	if rule.Repo != "" {
		return rule.Repo
	}
	return r.config.GitHub.Repo
}

/*
====================================
DISPATCH
====================================
*/

func (r *Relay) dispatch(ctx context.Context, rule Rule, ev TagEvent, tag string) Outcome {
	out := r.newOutcome(rule)
	out.DeliveryID = r.newID()
	if r.throttled(ctx, rule, ev, &out) {
		return out
	}
	return r.send(ctx, rule, ev, tag, out, r.config.GitHub.Token, audit.EventTagDispatch)
}

// throttled charges one dispatch against the issue and tag budget. It must run
// before any GitHub call for the rule. A limiter outage lets the dispatch through.
func (r *Relay) throttled(ctx context.Context, rule Rule, ev TagEvent, out *Outcome) bool {
	err := r.limiter.Allow(ctx, ev.IssueID, rule.Tag)
	if err == nil {
		return false
	}
	if !errors.Is(err, rate.ErrRateLimited) {
		r.logger.Warn("dispatch limiter unavailable, allowing", "rule", rule.Name, "error", err)
		return false
	}

	r.metrics.Inc(MetricDispatchThrottled)
	out.fail(ErrDispatchThrottled)
	out.Detail = "throttled"
	r.logger.Warn("dispatch throttled", "rule", rule.Name, "issue", ev.displayKey(), "tag", rule.Tag)
	r.emitAudit(ctx, audit.EventDispatchThrottled, ev, *out, nil)
	return true
}

func (r *Relay) send(ctx context.Context, rule Rule, ev TagEvent, tag string, out Outcome, bearer, eventType string) Outcome {
	req := github.DispatchRequest{
		EventType: rule.EventType,
		ClientPayload: github.ClientPayload{
			IssueID:     ev.IssueID,
			IssueKey:    ev.IssueKey,
			Title:       ev.Summary,
			Description: ev.Description,
			Tag:         tag,
			DeliveryID:  out.DeliveryID,
		},
	}

	start := time.Now()
	resp, err := r.github.Dispatch(ctx, bearer, out.Repo, req)
	r.metrics.Observe(MetricGitHubLatency, time.Since(start))

	switch {
	case err != nil:
		r.metrics.Inc(MetricDispatchFailure)
		out.fail(err)
		r.logger.Error("dispatch failed", "rule", rule.Name, "repo", out.Repo, "error", err)
	case !resp.Success:
		r.metrics.Inc(MetricDispatchFailure)
		out.Status = resp.Status
		out.Detail = string(resp.Body)
		out.fail(fmt.Errorf("%w: status %d", ErrDispatchRejected, resp.Status))
		r.logger.Error("dispatch rejected", "rule", rule.Name, "repo", out.Repo, "status", resp.Status, "body", out.Detail)
	default:
		r.metrics.Inc(MetricDispatchSuccess)
		out.Success = true
		out.Status = resp.Status
		out.Detail = "dispatched " + rule.EventType
		r.logger.Info("dispatch sent", "rule", rule.Name, "repo", out.Repo, "status", resp.Status, "delivery_id", out.DeliveryID)
	}

	r.emitAudit(ctx, eventType, ev, out, map[string]string{"event_type": rule.EventType})
	return out
}

func (r *Relay) appDispatch(ctx context.Context, rule Rule, ev TagEvent, tag string) Outcome {
	out := r.newOutcome(rule)
	out.DeliveryID = r.newID()
	if r.throttled(ctx, rule, ev, &out) {
		return out
	}

	tok, err := r.mint(ctx)
	if err != nil {
		out.fail(err)
		r.emitAudit(ctx, audit.EventAppDispatch, ev, out, nil)
		return out
	}

	inst, resp, err := r.installation(ctx, tok.Value, out.Repo)
	if err != nil {
		out.fail(err)
		if resp != nil {
			out.Status = resp.Status
			out.Detail = string(resp.Body)
		}
		r.emitAudit(ctx, audit.EventAppDispatch, ev, out, map[string]string{"signer": tok.Signer})
		return out
	}

	start := time.Now()
	access, resp, err := r.github.CreateInstallationToken(ctx, tok.Value, inst.ID)
	r.metrics.Observe(MetricGitHubLatency, time.Since(start))
	if err == nil && (access == nil || access.Token == "") {
		status := 0
		if resp != nil {
			status = resp.Status
			out.Status = resp.Status
			out.Detail = string(resp.Body)
		}
		err = fmt.Errorf("%w: status %d", ErrInstallationTokenFailed, status)
	} else if err != nil {
		err = fmt.Errorf("%w: %w", ErrInstallationTokenFailed, err)
	}
	if err != nil {
		out.fail(err)
		r.logger.Error("installation token exchange failed", "rule", rule.Name, "installation_id", inst.ID, "error", err)
		r.emitAudit(ctx, audit.EventAppDispatch, ev, out, map[string]string{"signer": tok.Signer})
		return out
	}
	r.metrics.Inc(MetricInstallationTokenIssued)

	return r.send(ctx, rule, ev, tag, out, access.Token, audit.EventAppDispatch)
}

/*
====================================
APP AUTH PROBE
====================================
*/

// Probe describes the probe operation and its observable behavior.
//
// Probe mints an app token and asks GitHub to resolve the installation for repo,
// which only succeeds if the token was accepted. An empty repo probes the
// configured default. Probe never returns an error; failures are reported through
// ProbeResult.Conclusion and ProbeResult.Err.
func (r *Relay) Probe(ctx context.Context, repo string) ProbeResult {
	if repo == "" {
		repo = r.config.GitHub.Repo
	}
	res := ProbeResult{Repo: repo, Tried: []string{}}

	if r.closed.Load() {
		res.fail(ErrRelayClosed, ConclusionLookupError)
		return res
	}

	tok, err := r.mint(ctx)
	if err != nil {
		var unavailable *jwt.UnavailableError
		switch {
		case errors.As(err, &unavailable):
			res.Tried = unavailable.Tried()
			res.fail(err, ConclusionSignerUnavailable)
			r.logger.Warn("RS256 signer not available", "tried", strings.Join(res.Tried, " | "), "conclusion", res.Conclusion)
		case errors.Is(err, ErrAppAuthDisabled):
			res.fail(err, ConclusionNotConfigured)
			r.logger.Warn("app auth not configured, probe skipped", "repo", repo, "conclusion", res.Conclusion)
		default:
			res.fail(err, ConclusionLookupError)
			r.logger.Error("app token mint failed", "repo", repo, "error", err, "conclusion", res.Conclusion)
		}
		r.emitProbe(ctx, res)
		return res
	}
	res.Signer = tok.Signer
	res.Tried = tok.Tried

	if r.publicKey != nil {
		if _, err := jwt.Verify(tok.Value, r.publicKey, jwt.VerifyOptions{
			Issuer: tok.Claims.Issuer,
			Now:    func() time.Time { return time.Unix((tok.Claims.IssuedAt+tok.Claims.ExpiresAt)/2, 0) },
		}); err != nil {
			r.logger.Warn("minted token failed local verification", "signer", tok.Signer, "error", err)
		}
	}

	inst, resp, err := r.installation(ctx, tok.Value, repo)
	if resp != nil {
		res.Status = resp.Status
		res.Body = string(resp.Body)
	}
	switch {
	case errors.Is(err, ErrInstallationLookupFailed):
		r.metrics.Inc(MetricProbeFailure)
		res.fail(err, ConclusionNotAccepted)
		r.logger.Warn("installation lookup failed", "repo", repo, "status", res.Status, "response", res.Body)
	case err != nil:
		r.metrics.Inc(MetricProbeFailure)
		res.fail(err, ConclusionLookupError)
		r.logger.Error("github call error", "repo", repo, "error", err)
	default:
		r.metrics.Inc(MetricProbeSuccess)
		res.Viable = true
		res.InstallationID = inst.ID
		res.Conclusion = ConclusionFeasible
		r.logger.Info("installation lookup succeeded", "repo", repo, "status", res.Status, "installation_id", inst.ID, "signer", tok.Signer)
	}

	r.emitProbe(ctx, res)
	return res
}

func (r *Relay) probeRule(ctx context.Context, rule Rule) Outcome {
	out := r.newOutcome(rule)
	res := r.Probe(ctx, out.Repo)

	out.Success = res.Viable
	out.Status = res.Status
	out.Detail = res.Conclusion
	if res.Err != nil {
		out.fail(res.Err)
	}
	return out
}

func (r *Relay) mint(ctx context.Context) (*jwt.Token, error) {
	if r.assembler == nil {
		return nil, ErrAppAuthDisabled
	}

	tok, err := r.assembler.Mint(ctx)
	if err != nil {
		var unavailable *jwt.UnavailableError
		if errors.As(err, &unavailable) {
			r.metrics.Inc(MetricTokenUnavailable)
			r.metrics.Add(MetricSignerAttemptFailed, uint64(len(unavailable.Attempts)))
			r.audit.Emit(ctx, audit.Event{
				EventType: audit.EventTokenUnavailable,
				Success:   false,
				Error:     err.Error(),
				Metadata:  map[string]string{"tried": strings.Join(unavailable.Tried(), " | ")},
			})
		}
		return nil, err
	}

	r.metrics.Inc(MetricTokenMinted)
	if failed := len(tok.Tried) - 1; failed > 0 {
		r.metrics.Add(MetricSignerAttemptFailed, uint64(failed))
	}
	return tok, nil
}

func (r *Relay) installation(ctx context.Context, appJWT, repo string) (*github.Installation, *github.Response, error) {
	start := time.Now()
	inst, resp, err := r.github.Installation(ctx, appJWT, repo)
	r.metrics.Observe(MetricGitHubLatency, time.Since(start))

	if err != nil {
		return nil, resp, err
	}
	if resp == nil || !resp.Success || inst == nil {
		status := 0
		if resp != nil {
			status = resp.Status
		}
		return nil, resp, fmt.Errorf("%w: status %d", ErrInstallationLookupFailed, status)
	}
	return inst, resp, nil
}

/*
====================================
AUDIT
====================================
*/

func (r *Relay) emitAudit(ctx context.Context, eventType string, ev TagEvent, out Outcome, meta map[string]string) {
	if meta == nil {
		meta = map[string]string{}
	}
	meta["rule"] = out.Rule
	if id := requestIDFromContext(ctx); id != "" {
		meta["request_id"] = id
	}
	r.audit.Emit(ctx, audit.Event{
		EventType:  eventType,
		DeliveryID: out.DeliveryID,
		IssueID:    ev.IssueID,
		Tag:        out.Tag,
		Repo:       out.Repo,
		Status:     out.Status,
		Success:    out.Success,
		Error:      out.Error,
		Metadata:   meta,
	})
}

func (r *Relay) emitProbe(ctx context.Context, res ProbeResult) {
	meta := map[string]string{
		"conclusion": res.Conclusion,
		"tried":      strings.Join(res.Tried, " | "),
	}
	if id := requestIDFromContext(ctx); id != "" {
		meta["request_id"] = id
	}
	if res.Signer != "" {
		meta["signer"] = res.Signer
	}
	if res.InstallationID != 0 {
		meta["installation_id"] = strconv.FormatInt(res.InstallationID, 10)
	}
	r.audit.Emit(ctx, audit.Event{
		EventType: audit.EventAppProbe,
		Repo:      res.Repo,
		Status:    res.Status,
		Success:   res.Viable,
		Error:     res.Error,
		Metadata:  meta,
	})
}

/*
====================================
LIFECYCLE / INTROSPECTION
====================================
*/

// Close stops the audit dispatcher after draining buffered events. Calls after the
// first are no-ops.
func (r *Relay) Close() {
	if r.closed.Swap(true) {
		return
	}
	r.audit.Close()
}

// MetricsSnapshot returns a copy of the relay counters.
func (r *Relay) MetricsSnapshot() MetricsSnapshot {
	return r.metrics.Snapshot()
}

// Metrics exposes the live counters for exporters.
func (r *Relay) Metrics() *Metrics {
	return r.metrics
}

// AuditDropped reports audit events discarded because the buffer was full.
func (r *Relay) AuditDropped() uint64 {
	return r.audit.Dropped()
}

// AuditDroppedByType splits AuditDropped by audit event type. Every known type
// is present, with zeros when auditing is disabled.
func (r *Relay) AuditDroppedByType() map[string]uint64 {
	if byType := r.audit.DroppedByType(); byType != nil {
		return byType
	}
	out := make(map[string]uint64, len(audit.EventTypes)+1)
	for _, name := range audit.EventTypes {
		out[name] = 0
	}
	out[audit.EventOther] = 0
	return out
}

// Repo is the default target repository.
func (r *Relay) Repo() string {
	return r.config.GitHub.Repo
}
