package goRelay

import "time"

// SecurityReport summarizes the credentials and guards a relay was built with. It
// never carries key material or tokens.
type SecurityReport struct {
	GitHubBaseURL      string
	APIVersion         string
	PATConfigured      bool
	AppAuthEnabled     bool
	AppID              string
	Signers            []string
	TokenBackdate      time.Duration
	TokenLifetime      time.Duration
	LocalVerification  bool
	ThrottleActive     bool
	ThrottleBudget     int
	ThrottleWindow     time.Duration
	AuditEnabled       bool
	AuditDropIfFull    bool
	RuleCount          int
	AppRuleCount       int
	DispatchEventTypes []string
}

func (r *Relay) SecurityReport() SecurityReport {
	if r == nil {
		return SecurityReport{}
	}

	report := SecurityReport{
		GitHubBaseURL:     r.config.GitHub.BaseURL,
		APIVersion:        r.config.GitHub.APIVersion,
		PATConfigured:     r.config.GitHub.Token != "",
		AppAuthEnabled:    r.assembler != nil,
		LocalVerification: r.publicKey != nil,
		ThrottleActive:    r.limiter.Active(),
		AuditEnabled:      r.config.Audit.Enabled,
		AuditDropIfFull:   r.config.Audit.DropIfFull,
		RuleCount:         len(r.config.Rules),
	}

	if r.assembler != nil {
		report.AppID = r.config.App.ID
		report.Signers = r.assembler.Candidates()
		report.TokenBackdate = r.config.App.Backdate
		report.TokenLifetime = r.config.App.Lifetime
	}
	if report.ThrottleActive {
		report.ThrottleBudget = r.config.Throttle.MaxDispatches
		report.ThrottleWindow = r.config.Throttle.Window
	}

	for _, rule := range r.config.Rules {
		if rule.Action != ActionDispatch {
			report.AppRuleCount++
		}
		if rule.EventType != "" {
			report.DispatchEventTypes = append(report.DispatchEventTypes, rule.EventType)
		}
	}

	return report
}
