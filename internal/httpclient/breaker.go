package httpclient

import (
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"switchboard/internal/logging"
)

// BreakerState is the circuit position.
type BreakerState int

const (
	// BreakerClosed allows requests through.
	BreakerClosed BreakerState = iota
	// BreakerOpen rejects requests until the cooldown elapses.
	BreakerOpen
	// BreakerHalfOpen probes whether the endpoint recovered.
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerOpenError reports a request rejected by an open circuit.
type BreakerOpenError struct {
	Name    string
	RetryIn time.Duration
}

func (e BreakerOpenError) Error() string {
	return fmt.Sprintf("circuit %q open, retry in %s", e.Name, e.RetryIn.Round(time.Millisecond))
}

// IsBreakerOpen reports whether err came from an open circuit.
func IsBreakerOpen(err error) bool {
	var openErr BreakerOpenError
	return errors.As(err, &openErr)
}

// BreakerConfig tunes the circuit thresholds.
type BreakerConfig struct {
	// FailureThreshold opens the circuit after this many consecutive
	// failures while closed.
	FailureThreshold int
	// SuccessThreshold closes the circuit after this many consecutive
	// successes while half-open.
	SuccessThreshold int
	// Cooldown is how long an open circuit waits before probing.
	Cooldown time.Duration
}

// DefaultBreakerConfig matches the thresholds used for platform endpoints.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Cooldown:         30 * time.Second,
	}
}

// Breaker is a consecutive-failure circuit breaker. Callers that inspect
// responses use Allow before the request and Mark after it; the transport
// wrapper below does exactly that.
type Breaker struct {
	name   string
	config BreakerConfig
	logger logging.Logger
	clock  func() time.Time

	mu          sync.Mutex
	state       BreakerState
	failures    int
	successes   int
	lastFailure time.Time
}

// NewBreaker builds a closed breaker. logger may be nil.
func NewBreaker(name string, config BreakerConfig, logger logging.Logger) *Breaker {
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = DefaultBreakerConfig().FailureThreshold
	}
	if config.SuccessThreshold <= 0 {
		config.SuccessThreshold = DefaultBreakerConfig().SuccessThreshold
	}
	if config.Cooldown <= 0 {
		config.Cooldown = DefaultBreakerConfig().Cooldown
	}
	return &Breaker{
		name:   name,
		config: config,
		logger: logging.OrNop(logger),
		clock:  time.Now,
	}
}

// Allow reports whether a request may proceed, transitioning an open
// circuit to half-open once the cooldown has elapsed.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != BreakerOpen {
		return nil
	}
	elapsed := b.clock().Sub(b.lastFailure)
	if elapsed >= b.config.Cooldown {
		b.state = BreakerHalfOpen
		b.successes = 0
		b.logger.Info("circuit %q probing recovery", b.name)
		return nil
	}
	return BreakerOpenError{Name: b.name, RetryIn: b.config.Cooldown - elapsed}
}

// Mark records one request outcome; nil means success.
func (b *Breaker) Mark(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil {
		b.markSuccess()
		return
	}
	b.markFailure()
}

func (b *Breaker) markSuccess() {
	switch b.state {
	case BreakerClosed:
		b.failures = 0
	case BreakerHalfOpen:
		b.successes++
		if b.successes >= b.config.SuccessThreshold {
			b.state = BreakerClosed
			b.failures = 0
			b.successes = 0
			b.logger.Info("circuit %q closed", b.name)
		}
	}
}

func (b *Breaker) markFailure() {
	b.lastFailure = b.clock()
	switch b.state {
	case BreakerClosed:
		b.failures++
		if b.failures >= b.config.FailureThreshold {
			b.state = BreakerOpen
			b.logger.Warn("circuit %q opened after %d consecutive failures", b.name, b.failures)
		}
	case BreakerHalfOpen:
		b.state = BreakerOpen
		b.successes = 0
		b.logger.Warn("circuit %q reopened, probe failed", b.name)
	}
}

// State returns the current circuit position.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

type breakerRoundTripper struct {
	base    http.RoundTripper
	breaker *Breaker
}

// WrapTransport guards a transport with a breaker. Server errors and 429s
// count as failures; everything else, including 4xx client errors, counts
// as success because the endpoint itself answered.
func WrapTransport(base http.RoundTripper, breaker *Breaker) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &breakerRoundTripper{base: base, breaker: breaker}
}

func (t *breakerRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.breaker.Allow(); err != nil {
		return nil, err
	}
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		t.breaker.Mark(err)
		return nil, err
	}
	if resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests {
		t.breaker.Mark(fmt.Errorf("http status %d", resp.StatusCode))
	} else {
		t.breaker.Mark(nil)
	}
	return resp, nil
}
