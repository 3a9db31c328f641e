package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"interviewlink/native/internal/domain"
)

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/interviews/sess-1" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		json.NewEncoder(w).Encode(domain.Interview{
			SessionID: "sess-1",
			Title:     "Backend screen",
			Status:    domain.InterviewScheduled,
		})
	}))
	defer srv.Close()

	iv, err := NewClient(srv.URL).Fetch(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if iv.SessionID != "sess-1" || iv.Status != domain.InterviewScheduled {
		t.Errorf("unexpected interview %+v", iv)
	}
}

func TestFetchNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	if _, err := NewClient(srv.URL).Fetch(context.Background(), "missing"); err == nil {
		t.Fatal("expected not-found error")
	}
}

func TestStart(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.Method + " " + r.URL.Path
		json.NewEncoder(w).Encode(domain.Interview{SessionID: "sess-1", Status: domain.InterviewActive})
	}))
	defer srv.Close()

	if err := NewClient(srv.URL).Start(context.Background(), "sess-1"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if gotPath != "POST /interviews/sess-1/start" {
		t.Errorf("request = %q", gotPath)
	}
}

func TestStartConflict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "already ended", http.StatusConflict)
	}))
	defer srv.Close()

	if err := NewClient(srv.URL).Start(context.Background(), "sess-1"); err == nil {
		t.Fatal("expected conflict error")
	}
}
