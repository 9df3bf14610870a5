package github

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the public GitHub REST endpoint.
	DefaultBaseURL = "https://api.github.com"
	// DefaultAPIVersion pins the REST API version header.
	DefaultAPIVersion = "2022-11-28"

	mediaType    = "application/vnd.github+json"
	maxBodyBytes = 1 << 20
)

var (
	// ErrInvalidRepo rejects repository names that are not owner/name.
	ErrInvalidRepo = errors.New("repository must be owner/name")
	// ErrMissingCredential rejects calls without a bearer credential.
	ErrMissingCredential = errors.New("missing bearer credential")
)

// Response is the outcome of one REST call.
type Response struct {
	Success bool
	Status  int
	Body    []byte
}

// Client issues GitHub REST calls. It is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	apiVersion string
	userAgent  string
}

// Option configures a [Client].
type Option func(*Client)

// WithBaseURL targets a GitHub Enterprise or test server.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient replaces the transport.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// WithAPIVersion overrides the X-GitHub-Api-Version header. Empty omits it.
func WithAPIVersion(v string) Option {
	return func(c *Client) { c.apiVersion = v }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// NewClient returns a client for DefaultBaseURL unless overridden.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		apiVersion: DefaultAPIVersion,
		userAgent:  "goRelay",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Dispatch fires a repository_dispatch event.
func (c *Client) Dispatch(ctx context.Context, bearer, repo string, req DispatchRequest) (*Response, error) {
	if err := validateRepo(repo); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.EventType) == "" {
		return nil, errors.New("dispatch event_type is required")
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal dispatch payload: %w", err)
	}
	return c.do(ctx, http.MethodPost, "/repos/"+repo+"/dispatches", bearer, body)
}

// Installation resolves the app installation for repo using an app JWT.
func (c *Client) Installation(ctx context.Context, appJWT, repo string) (*Installation, *Response, error) {
	if err := validateRepo(repo); err != nil {
		return nil, nil, err
	}
	resp, err := c.do(ctx, http.MethodGet, "/repos/"+repo+"/installation", appJWT, nil)
	if err != nil || !resp.Success {
		return nil, resp, err
	}
	var inst Installation
	if err := json.Unmarshal(resp.Body, &inst); err != nil {
		return nil, resp, fmt.Errorf("decode installation: %w", err)
	}
	return &inst, resp, nil
}

// CreateInstallationToken exchanges an app JWT for an installation access token.
func (c *Client) CreateInstallationToken(ctx context.Context, appJWT string, installationID int64) (*InstallationToken, *Response, error) {
	if installationID <= 0 {
		return nil, nil, errors.New("installation id must be positive")
	}
	path := "/app/installations/" + strconv.FormatInt(installationID, 10) + "/access_tokens"
	resp, err := c.do(ctx, http.MethodPost, path, appJWT, nil)
	if err != nil || !resp.Success {
		return nil, resp, err
	}
	var tok InstallationToken
	if err := json.Unmarshal(resp.Body, &tok); err != nil {
		return nil, resp, fmt.Errorf("decode installation token: %w", err)
	}
	if tok.Token == "" {
		return nil, resp, errors.New("installation token response carried no token")
	}
	return &tok, resp, nil
}

func (c *Client) do(ctx context.Context, method, path, bearer string, body []byte) (*Response, error) {
	if strings.TrimSpace(bearer) == "" {
		return nil, ErrMissingCredential
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", mediaType)
	req.Header.Set("Authorization", "Bearer "+bearer)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiVersion != "" {
		req.Header.Set("X-GitHub-Api-Version", c.apiVersion)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(io.LimitReader(res.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	return &Response{
		Success: res.StatusCode >= 200 && res.StatusCode < 300,
		Status:  res.StatusCode,
		Body:    data,
	}, nil
}

func validateRepo(repo string) error {
	owner, name, ok := strings.Cut(repo, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return fmt.Errorf("%w: %q", ErrInvalidRepo, repo)
	}
	if url.PathEscape(owner) != owner || url.PathEscape(name) != name {
		return fmt.Errorf("%w: %q", ErrInvalidRepo, repo)
	}
	return nil
}
