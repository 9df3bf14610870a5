package github

import "time"

// DispatchRequest is the repository_dispatch body.
type DispatchRequest struct {
	EventType     string        `json:"event_type"`
	ClientPayload ClientPayload `json:"client_payload"`
}

// ClientPayload carries the issue that triggered the dispatch.
type ClientPayload struct {
	IssueID     string `json:"issueId"`
	IssueKey    string `json:"issueKey,omitempty"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Tag         string `json:"tag"`
	DeliveryID  string `json:"deliveryId"`
}

// Installation is the subset of the installation resource the relay reads.
type Installation struct {
	ID      int64 `json:"id"`
	AppID   int64 `json:"app_id"`
	Account struct {
		Login string `json:"login"`
	} `json:"account"`
	TargetType string `json:"target_type"`
}

// InstallationToken is a short-lived installation access token.
type InstallationToken struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}
