// ABOUTME: Tests for the model catalog lookup.
// ABOUTME: Uses httptest to check the request shape, id parsing, and error reporting.
package tui

import (
	"context"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"
)

func TestListModels(t *testing.T) {
	tests := map[string]struct {
		status  int
		body    string
		want    []string
		wantErr string
	}{
		"sorted and deduplicated": {http.StatusOK, `{"data":[{"id":"gpt-4o"},{"id":"gpt-4o-mini"},{"id":" "},{"id":"gpt-4o"},{"id":"babbage"}]}`, []string{"babbage", "gpt-4o", "gpt-4o-mini"}, ""},
		"empty catalog":           {http.StatusOK, `{"data":[]}`, []string{}, ""},
		"unauthorized":            {http.StatusUnauthorized, `{"error":{"message":"invalid api key"}}`, nil, "401"},
		"server error":            {http.StatusInternalServerError, "internal error", nil, "internal error"},
		"not json":                {http.StatusOK, "<html>", nil, "unexpected models response"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodGet || r.URL.Path != "/v1/models" {
					t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
				}
				if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
					t.Errorf("expected bearer auth, got %q", got)
				}
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			got, err := ListModels(context.Background(), server.URL+"/v1/", "sk-test")
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ListModels error: %v", err)
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("ListModels = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestListModelsUnreachable(t *testing.T) {
	if _, err := ListModels(context.Background(), "http://localhost:1", "sk-test"); err == nil {
		t.Fatal("expected error for unreachable server")
	}
}

func TestListModelsCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := ListModels(ctx, server.URL, "sk-test"); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}
