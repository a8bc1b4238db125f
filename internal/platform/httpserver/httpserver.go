package httpserver

import (
	"net/http"
	"time"
)

// Timeouts bounds a single request. Write needs headroom for full-cohort CSV
// exports, which render in one response.
type Timeouts struct {
	ReadHeader time.Duration
	Read       time.Duration
	Write      time.Duration
}

// DefaultTimeouts suit the dashboard's read-mostly, export-heavy traffic.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		ReadHeader: 5 * time.Second,
		Read:       15 * time.Second,
		Write:      60 * time.Second,
	}
}

// New builds an HTTP server for the dashboard API.
func New(addr string, handler http.Handler, t Timeouts) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: t.ReadHeader,
		ReadTimeout:       t.Read,
		WriteTimeout:      t.Write,
	}
}
