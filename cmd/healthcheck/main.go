// Package main is the container health probe. It exits 0 when the local
// server answers 200 on /livez, or on the path given as first argument
// (e.g. /readyz).
package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

func main() {
	path := "/livez"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}
	port := os.Getenv("GEO_PORT")
	if port == "" {
		port = "10000"
	}
	if err := probe("http://localhost:"+port+path, 8*time.Second); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func probe(url string, timeout time.Duration) error {
	client := &http.Client{Timeout: timeout}
	resp, err := client.Get(url)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: %s", url, resp.Status)
	}
	return nil
}
