package goRelay

import "strings"

// TagEvent is one "tags added to issue" change reported by the tracker.
type TagEvent struct {
	IssueID     string   `json:"issueId"`
	IssueKey    string   `json:"issueKey,omitempty"`
	Summary     string   `json:"summary"`
	Description string   `json:"description"`
	AddedTags   []string `json:"addedTags"`
}

// Added reports whether tag is among the added tags, ignoring case.
func (e TagEvent) Added(tag string) bool {
	_, ok := e.Match(tag)
	return ok
}

// Match returns the added tag equal to tag, ignoring case and surrounding
// space, spelled the way the tracker sent it.
func (e TagEvent) Match(tag string) (string, bool) {
	tag = strings.TrimSpace(tag)
	for _, t := range e.AddedTags {
		if t = strings.TrimSpace(t); strings.EqualFold(t, tag) {
			return t, true
		}
	}
	return "", false
}

func (e TagEvent) displayKey() string {
	if e.IssueKey != "" {
		return e.IssueKey
	}
	return e.IssueID
}

// Outcome is the result of one rule executed for one event.
type Outcome struct {
	Rule       string `json:"rule"`
	Tag        string `json:"tag"`
	Action     Action `json:"action"`
	Repo       string `json:"repo"`
	DeliveryID string `json:"deliveryId,omitempty"`
	Success    bool   `json:"success"`
	Status     int    `json:"status,omitempty"`
	Detail     string `json:"detail,omitempty"`
	Error      string `json:"error,omitempty"`
	Err        error  `json:"-"`
}

// ProbeResult reports whether app authentication is viable from this host.
type ProbeResult struct {
	Repo           string   `json:"repo"`
	Viable         bool     `json:"viable"`
	Signer         string   `json:"signer,omitempty"`
	Tried          []string `json:"tried"`
	InstallationID int64    `json:"installationId,omitempty"`
	Status         int      `json:"status,omitempty"`
	Body           string   `json:"body,omitempty"`
	Conclusion     string   `json:"conclusion"`
	Error          string   `json:"error,omitempty"`
	Err            error    `json:"-"`
}

func (o *Outcome) fail(err error) {
	o.Success = false
	o.Err = err
	if err != nil {
		o.Error = err.Error()
	}
}

func (p *ProbeResult) fail(err error, conclusion string) {
	p.Viable = false
	p.Err = err
	p.Conclusion = conclusion
	if err != nil {
		p.Error = err.Error()
	}
}
