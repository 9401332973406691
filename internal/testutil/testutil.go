// Package testutil holds the HTTP helpers shared by handler tests.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// Request builds a request with no body.
func Request(method, path string) *http.Request {
	return httptest.NewRequest(method, path, nil)
}

// RequestWithBody builds a request carrying body as contentType.
func RequestWithBody(method, path, contentType, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", contentType)
	return req
}

// LocalRequest builds a request from a loopback address, which the tsweb
// debug handlers require.
func LocalRequest(method, path string) *http.Request {
	req := Request(method, path)
	req.RemoteAddr = "127.0.0.1:41234"
	return req
}

// Serve runs req through h and returns the recorded response.
func Serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// ExpectStatus reports a mismatched status code without stopping the test.
func ExpectStatus(t testing.TB, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("status code = %d, want %d", got, want)
	}
}

// DecodeJSON unmarshals body into v, failing the test if it is not JSON.
func DecodeJSON(t testing.TB, body string, v interface{}) {
	t.Helper()
	if err := json.Unmarshal([]byte(body), v); err != nil {
		t.Fatalf("decoding %q: %v", body, err)
	}
}
