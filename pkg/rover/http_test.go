package rover

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/teslashibe/go-rover/pkg/command"
)

func TestSend_LabelPath(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.RequestURI()
		w.Write([]byte("moving right"))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.Client())
	resp, err := c.Send(context.Background(), srv.URL, command.Label(command.Right))
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if gotPath != "/right" {
		t.Errorf("path = %q, want /right", gotPath)
	}
	if resp.Body != "moving right" {
		t.Errorf("Body = %q", resp.Body)
	}
}

func TestSend_OffsetQuery(t *testing.T) {
	var gotURI string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotURI = r.URL.RequestURI()
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.Client())
	if _, err := c.Send(context.Background(), srv.URL+"/", command.Move(80, 10)); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if gotURI != "/?x=80.00&y=10.00" {
		t.Errorf("uri = %q, want /?x=80.00&y=10.00", gotURI)
	}
}

func TestSend_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "busy", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.Client())
	_, err := c.Send(context.Background(), srv.URL, command.Label(command.Stop))

	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("error = %v, want *RequestError", err)
	}
	if !reqErr.IsStatus() || !reqErr.IsServerError() {
		t.Errorf("StatusCode = %d, want 503", reqErr.StatusCode)
	}
	if errors.Is(err, ErrUnreachable) {
		t.Error("status errors should not wrap ErrUnreachable")
	}
}

func TestPing_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := NewHTTPClient(nil)
	_, err := c.Ping(context.Background(), url)
	if !errors.Is(err, ErrUnreachable) {
		t.Errorf("error = %v, want ErrUnreachable", err)
	}
}

func TestPing_MeasuresLatency(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.Client())
	resp, err := c.Ping(context.Background(), srv.URL+"/")
	if err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if gotPath != "/" && gotPath != "" {
		t.Errorf("path = %q, want base", gotPath)
	}
	if resp.Latency <= 0 {
		t.Errorf("Latency = %v, want > 0", resp.Latency)
	}
}
