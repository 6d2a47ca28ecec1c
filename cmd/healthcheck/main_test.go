package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProbe(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/readyz" {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	assert.NoError(t, probe(srv.URL+"/livez", time.Second))
	assert.ErrorContains(t, probe(srv.URL+"/readyz", time.Second), "503")
	assert.Error(t, probe("http://127.0.0.1:1/livez", 100*time.Millisecond))
}
