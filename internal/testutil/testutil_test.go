package testutil

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestServeAndDecode(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", r.Header.Get("Content-Type"))
		w.Write([]byte(`{"remote":"` + r.RemoteAddr + `","method":"` + r.Method + `"}`))
	})

	rec := Serve(h, LocalRequest(http.MethodGet, "/debug/"))
	ExpectStatus(t, rec.Code, http.StatusOK)

	var got struct{ Remote, Method string }
	DecodeJSON(t, rec.Body.String(), &got)
	assert.Equal(t, "127.0.0.1:41234", got.Remote)
	assert.Equal(t, http.MethodGet, got.Method)

	rec = Serve(h, RequestWithBody(http.MethodPost, "/command", "application/json", `{}`))
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

// recordingTB captures Errorf instead of failing the enclosing test.
type recordingTB struct {
	testing.TB
	errors []string
}

func (r *recordingTB) Helper() {}
func (r *recordingTB) Errorf(format string, args ...interface{}) {
	r.errors = append(r.errors, fmt.Sprintf(format, args...))
}

func TestExpectStatusMismatch(t *testing.T) {
	rec := &recordingTB{TB: t}
	ExpectStatus(rec, http.StatusOK, http.StatusTeapot)
	assert.Equal(t, []string{"status code = 200, want 418"}, rec.errors)

	rec.errors = nil
	ExpectStatus(rec, http.StatusOK, http.StatusOK)
	assert.Empty(t, rec.errors)
}

func TestRequestHasNoBody(t *testing.T) {
	req := Request(http.MethodGet, "/api/status")
	assert.Equal(t, "/api/status", req.URL.Path)
	assert.Equal(t, http.NoBody, req.Body)
}
