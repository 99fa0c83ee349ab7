package forward

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestForwardPostsPayload(t *testing.T) {
	var gotBody, gotMethod, gotType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody, gotMethod, gotType = string(b), r.Method, r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := New(srv.URL+"/write?db=prometheus", time.Second)
	payload := "up,__name__=up value=1 1609459200000000"
	if err := c.Forward(context.Background(), payload); err != nil {
		t.Fatalf("Forward failed: %v", err)
	}

	if gotMethod != http.MethodPost {
		t.Errorf("Expected POST, got %s", gotMethod)
	}
	if gotBody != payload {
		t.Errorf("Expected body %q, got %q", payload, gotBody)
	}
	if gotType != "text/plain; charset=utf-8" {
		t.Errorf("Expected text/plain content type, got %q", gotType)
	}
}

func TestForwardNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "database not found", http.StatusNotFound)
	}))
	defer srv.Close()

	err := New(srv.URL, time.Second).Forward(context.Background(), "x")
	var fe *ForwardError
	if !errors.As(err, &fe) {
		t.Fatalf("Expected *ForwardError, got %v", err)
	}
	if fe.StatusCode != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", fe.StatusCode)
	}
	if fe.Err != nil {
		t.Errorf("Expected no transport error, got %v", fe.Err)
	}
}

func TestForwardTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	err := New(url, time.Second).Forward(context.Background(), "x")
	var fe *ForwardError
	if !errors.As(err, &fe) || fe.Err == nil {
		t.Fatalf("Expected transport ForwardError, got %v", err)
	}
}

func TestForwardTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	start := time.Now()
	err := New(srv.URL, 50*time.Millisecond).Forward(context.Background(), "x")
	if err == nil {
		t.Fatal("Expected timeout error")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Forward was not bounded by its timeout, took %v", elapsed)
	}
}
