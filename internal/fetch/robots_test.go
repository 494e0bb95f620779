package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestRobotsPolicy(t *testing.T) {
	var robotsCalls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&robotsCalls, 1)
		_, _ = w.Write([]byte("User-agent: *\nDisallow: /private/\nAllow: /private/open\n\nUser-agent: BadBot\nDisallow: /\n"))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(t, testConfig())
	policy := NewRobotsPolicy(client, "ShopTadoru")

	tests := []struct {
		path     string
		expected bool
	}{
		{"/", true},
		{"/product/1", true},
		{"/private/secret", false},
		{"/private/open", true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			allowed, err := policy.IsAllowed(context.Background(), server.URL+tt.path)
			if err != nil {
				t.Fatalf("IsAllowed failed: %v", err)
			}
			if allowed != tt.expected {
				t.Errorf("Expected %v for %s, got %v", tt.expected, tt.path, allowed)
			}
		})
	}

	if robotsCalls != 1 {
		t.Errorf("Expected robots.txt to be fetched once, got %d", robotsCalls)
	}

	badBot := NewRobotsPolicy(client, "BadBot")
	allowed, err := badBot.IsAllowed(context.Background(), server.URL+"/product/1")
	if err != nil {
		t.Fatalf("IsAllowed failed: %v", err)
	}
	if allowed {
		t.Error("Expected BadBot to be disallowed")
	}
}

func TestRobotsPolicyStatusHandling(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		expected bool
	}{
		{"missing file allows all", http.StatusNotFound, true},
		{"forbidden allows all", http.StatusForbidden, true},
		{"server error disallows all", http.StatusInternalServerError, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			policy := NewRobotsPolicy(newTestClient(t, testConfig()), "ShopTadoru")
			allowed, err := policy.IsAllowed(context.Background(), server.URL+"/product/1")
			if err != nil {
				t.Fatalf("IsAllowed failed: %v", err)
			}
			if allowed != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, allowed)
			}
		})
	}
}

func TestRobotsPolicyUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	serverURL := server.URL
	server.Close()

	policy := NewRobotsPolicy(newTestClient(t, testConfig()), "ShopTadoru")
	allowed, err := policy.IsAllowed(context.Background(), serverURL+"/product/1")
	if err != nil {
		t.Fatalf("IsAllowed failed: %v", err)
	}
	if !allowed {
		t.Error("Expected unreachable robots.txt to allow all")
	}
}
