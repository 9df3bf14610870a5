package github

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestServer(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(WithBaseURL(srv.URL+"/"), WithHTTPClient(srv.Client()))
}

func TestDispatchSendsHeadersAndPayload(t *testing.T) {
	var got DispatchRequest
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/repos/acme/widgets/dispatches" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer pat-123" {
			t.Errorf("authorization = %q", r.Header.Get("Authorization"))
		}
		if r.Header.Get("Accept") != "application/vnd.github+json" {
			t.Errorf("accept = %q", r.Header.Get("Accept"))
		}
		if r.Header.Get("X-GitHub-Api-Version") != DefaultAPIVersion {
			t.Errorf("api version = %q", r.Header.Get("X-GitHub-Api-Version"))
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("content type = %q", r.Header.Get("Content-Type"))
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	})

	resp, err := c.Dispatch(context.Background(), "pat-123", "acme/widgets", DispatchRequest{
		EventType: "youtrack-tag-dev-bot",
		ClientPayload: ClientPayload{
			IssueID: "2-17", Title: "Broken build", Description: "details", Tag: "andre", DeliveryID: "d1",
		},
	})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if !resp.Success || resp.Status != http.StatusNoContent {
		t.Fatalf("response %+v", resp)
	}
	if got.EventType != "youtrack-tag-dev-bot" || got.ClientPayload.Tag != "andre" || got.ClientPayload.IssueID != "2-17" {
		t.Fatalf("payload %+v", got)
	}
}

func TestDispatchNon2xxIsNotAnError(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Not Found"}`))
	})

	resp, err := c.Dispatch(context.Background(), "pat", "acme/widgets", DispatchRequest{EventType: "e"})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if resp.Success || resp.Status != http.StatusNotFound || string(resp.Body) != `{"message":"Not Found"}` {
		t.Fatalf("response %+v", resp)
	}
}

func TestDispatchValidatesInput(t *testing.T) {
	c := NewClient(WithBaseURL("http://127.0.0.1:1"))
	for _, repo := range []string{"", "acme", "acme/", "/widgets", "acme/widgets/extra", "ac me/widgets"} {
		if _, err := c.Dispatch(context.Background(), "pat", repo, DispatchRequest{EventType: "e"}); !errors.Is(err, ErrInvalidRepo) {
			t.Fatalf("repo %q err = %v", repo, err)
		}
	}
	if _, err := c.Dispatch(context.Background(), "", "acme/widgets", DispatchRequest{EventType: "e"}); !errors.Is(err, ErrMissingCredential) {
		t.Fatalf("missing bearer err = %v", err)
	}
	if _, err := c.Dispatch(context.Background(), "pat", "acme/widgets", DispatchRequest{}); err == nil {
		t.Fatal("expected missing event type to fail")
	}
}

func TestInstallationAndToken(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer app.jwt.sig" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/repos/acme/widgets/installation":
			_, _ = w.Write([]byte(`{"id":99,"app_id":123456,"account":{"login":"acme"},"target_type":"Organization"}`))
		case r.Method == http.MethodPost && r.URL.Path == "/app/installations/99/access_tokens":
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"token":"ghs_abc","expires_at":"2026-10-16T12:00:00Z"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	inst, resp, err := c.Installation(context.Background(), "app.jwt.sig", "acme/widgets")
	if err != nil || !resp.Success {
		t.Fatalf("installation: resp=%+v err=%v", resp, err)
	}
	if inst.ID != 99 || inst.AppID != 123456 || inst.Account.Login != "acme" {
		t.Fatalf("installation %+v", inst)
	}

	tok, resp, err := c.CreateInstallationToken(context.Background(), "app.jwt.sig", inst.ID)
	if err != nil || resp.Status != http.StatusCreated {
		t.Fatalf("token: resp=%+v err=%v", resp, err)
	}
	if tok.Token != "ghs_abc" || tok.ExpiresAt.IsZero() {
		t.Fatalf("token %+v", tok)
	}

	inst, resp, err = c.Installation(context.Background(), "wrong", "acme/widgets")
	if err != nil {
		t.Fatalf("rejected jwt should not be a transport error: %v", err)
	}
	if inst != nil || resp.Success || resp.Status != http.StatusUnauthorized {
		t.Fatalf("expected rejection, got inst=%v resp=%+v", inst, resp)
	}

	if _, _, err := c.CreateInstallationToken(context.Background(), "app.jwt.sig", 0); err == nil {
		t.Fatal("expected non-positive installation id to fail")
	}
}

func TestTransportErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	c := NewClient(WithBaseURL(srv.URL))
	srv.Close()

	if _, err := c.Dispatch(context.Background(), "pat", "acme/widgets", DispatchRequest{EventType: "e"}); err == nil {
		t.Fatal("expected closed server to yield a transport error")
	}
}
