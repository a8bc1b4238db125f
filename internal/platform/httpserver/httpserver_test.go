package httpserver

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewAppliesTimeouts(t *testing.T) {
	handler := http.NewServeMux()
	srv := New(":9090", handler, Timeouts{
		ReadHeader: 2 * time.Second,
		Read:       10 * time.Second,
		Write:      30 * time.Second,
	})

	assert.Equal(t, ":9090", srv.Addr)
	assert.Equal(t, 2*time.Second, srv.ReadHeaderTimeout)
	assert.Equal(t, 10*time.Second, srv.ReadTimeout)
	assert.Equal(t, 30*time.Second, srv.WriteTimeout)
}

func TestDefaultTimeoutsAllowLongExports(t *testing.T) {
	d := DefaultTimeouts()
	assert.Greater(t, d.Write, d.Read, "exports stream a whole cohort in one response")
}
