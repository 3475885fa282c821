// Package httpclient builds the outbound HTTP clients used for live
// model-list fetches, with bounded response reads and circuit breaking so a
// misbehaving platform endpoint cannot stall or flood the resolution engine.
package httpclient

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultTimeout = 30 * time.Second

// New returns an http.Client for outbound platform calls. It respects
// HTTP(S)_PROXY/NO_PROXY from the environment.
func New(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: Transport(),
	}
}

// Transport returns a clone of the default transport so per-client tweaks
// never mutate http.DefaultTransport.
func Transport() *http.Transport {
	base, ok := http.DefaultTransport.(*http.Transport)
	if !ok {
		return &http.Transport{Proxy: http.ProxyFromEnvironment}
	}
	transport := base.Clone()
	transport.Proxy = http.ProxyFromEnvironment
	return transport
}

// BodyLimitError reports a response body that exceeded the read limit.
type BodyLimitError struct {
	Limit int64
}

func (e BodyLimitError) Error() string {
	return fmt.Sprintf("response body exceeded %d bytes", e.Limit)
}

// IsBodyLimit reports whether err is a body limit violation.
func IsBodyLimit(err error) bool {
	var limitErr BodyLimitError
	return errors.As(err, &limitErr)
}

// ReadBody drains r up to limit bytes. limit <= 0 reads unbounded; a body
// longer than limit returns BodyLimitError with nothing consumed by the
// caller.
func ReadBody(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		return io.ReadAll(r)
	}
	bounded := &io.LimitedReader{R: r, N: limit + 1}
	data, err := io.ReadAll(bounded)
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, BodyLimitError{Limit: limit}
	}
	return data, nil
}
