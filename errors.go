package goRelay

import "errors"

var (
	// ErrInvalidEvent is returned for tag events without an issue id.
	ErrInvalidEvent = errors.New("invalid tag event")
	// ErrRelayClosed is returned after Close.
	ErrRelayClosed = errors.New("relay closed")
	// ErrAppAuthDisabled is returned when no app identity is configured.
	ErrAppAuthDisabled = errors.New("app authentication not configured")
	// ErrDispatchThrottled marks an outcome skipped by the dispatch limiter.
	ErrDispatchThrottled = errors.New("dispatch throttled")
	// ErrDispatchRejected marks a dispatch GitHub answered with a non-2xx status.
	ErrDispatchRejected = errors.New("dispatch rejected")
	// ErrInstallationLookupFailed marks an app JWT GitHub did not accept.
	ErrInstallationLookupFailed = errors.New("installation lookup failed")
	// ErrInstallationTokenFailed marks a failed installation token exchange.
	ErrInstallationTokenFailed = errors.New("installation token exchange failed")
)
