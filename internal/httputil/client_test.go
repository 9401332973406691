package httputil

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestStandardClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		WriteJSONOK(w, map[string]string{"path": r.URL.Path})
	}))
	defer srv.Close()

	c := NewStandardClient(nil)
	if c.Client != http.DefaultClient {
		t.Error("nil client should fall back to http.DefaultClient")
	}

	resp, err := c.Get(srv.URL + "/api/status")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if want := "{\"path\":\"/api/status\"}\n"; string(body) != want {
		t.Errorf("body = %q, want %q", body, want)
	}
}

func TestMockHTTPClientQueue(t *testing.T) {
	boom := errors.New("connection refused")
	m := NewMockHTTPClient().
		AddResponse(http.StatusNotFound, "missing").
		AddErrorResponse(boom)

	resp, err := m.Get("http://dock.local/api/frames")
	if err != nil {
		t.Fatalf("first Get: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusNotFound || string(body) != "missing" {
		t.Errorf("first response = %d %q", resp.StatusCode, body)
	}

	if _, err := m.Get("http://dock.local/api/frames"); !errors.Is(err, boom) {
		t.Errorf("second Get error = %v, want %v", err, boom)
	}

	resp, err = m.Get("http://dock.local/api/stats")
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Errorf("drained queue should answer 200, got %v %v", resp, err)
	}

	if n := m.RequestCount(); n != 3 {
		t.Errorf("RequestCount = %d, want 3", n)
	}
	if r := m.GetRequest(2); r == nil || r.URL.Path != "/api/stats" {
		t.Errorf("GetRequest(2) = %v", r)
	}
	if m.GetRequest(5) != nil {
		t.Error("GetRequest out of range should be nil")
	}
}
