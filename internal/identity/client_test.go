package identity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClientDeleteUser(t *testing.T) {
	var gotPath, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.Method + " " + r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c, err := NewClient(ClientConfig{BaseURL: srv.URL, ServiceToken: "svc-token"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if err := c.DeleteUser(context.Background(), "sub-1"); err != nil {
		t.Fatalf("delete user: %v", err)
	}
	if gotPath != "DELETE /admin/users/sub-1" {
		t.Fatalf("unexpected request: %s", gotPath)
	}
	if gotAuth != "Bearer svc-token" {
		t.Fatalf("missing service token header: %q", gotAuth)
	}
}

func TestClientDeleteUserTreatsNotFoundAsDeleted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c, err := NewClient(ClientConfig{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if err := c.DeleteUser(context.Background(), "gone"); err != nil {
		t.Fatalf("404 should count as deleted: %v", err)
	}
}

func TestClientUpdatePasswordSurfacesErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c, err := NewClient(ClientConfig{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if err := c.UpdatePassword(context.Background(), "sub-1", "new-pass"); err == nil {
		t.Fatalf("expected error on 403")
	}
	if err := c.UpdatePassword(context.Background(), "sub-1", ""); err == nil {
		t.Fatalf("expected error on empty password")
	}
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	if _, err := NewClient(ClientConfig{}); err == nil {
		t.Fatalf("expected constructor error for empty base url")
	}
}
