// Package modellist resolves the live model list for a platform over an
// asynchronous request/response channel. The channel is an abstraction over
// whatever transport actually answers — the bundled catalog, a platform HTTP
// endpoint, or a remote host process — so the resolution engine never calls
// a transport directly and tests can swap in fakes.
package modellist

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"switchboard/internal/async"
	"switchboard/internal/logging"
)

const defaultRequestTimeout = 10 * time.Second

// Request asks one platform for its live model list. ID correlates the
// eventual response on a shared channel.
type Request struct {
	ID         string `json:"id"`
	PlatformID string `json:"platformId"`
}

// Response answers one Request. Success=false carries no models and is
// treated by consumers exactly like an empty list; Err is diagnostic only.
type Response struct {
	ID         string   `json:"id"`
	PlatformID string   `json:"platformId"`
	Success    bool     `json:"success"`
	Models     []string `json:"models,omitempty"`
	Err        string   `json:"error,omitempty"`
}

// Channel is the transport contract: Send dispatches a request, and the
// matching Response eventually appears on Responses. Responses may arrive
// out of order; correlation is by Request.ID.
type Channel interface {
	Send(ctx context.Context, req Request) error
	Responses() <-chan Response
}

// Requester is the consumer-facing contract. Request never returns an
// error: every failure mode collapses into Success=false.
type Requester interface {
	Request(ctx context.Context, platformID string) Response
}

// Service matches requests to responses over a Channel. One reader
// goroutine drains the channel and routes by request id; callers block on
// their private reply slot until the response, the context, or the timeout
// wins.
type Service struct {
	channel Channel
	logger  logging.Logger
	timeout time.Duration
	newID   func() string

	mu      sync.Mutex
	pending map[string]chan Response

	done      chan struct{}
	closeOnce sync.Once
}

var _ Requester = (*Service)(nil)

// NewService starts the response reader. Close releases it.
func NewService(channel Channel, timeout time.Duration, logger logging.Logger) *Service {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	s := &Service{
		channel: channel,
		logger:  logging.OrNop(logger),
		timeout: timeout,
		newID:   uuid.NewString,
		pending: make(map[string]chan Response),
		done:    make(chan struct{}),
	}
	async.Go(s.logger, "modellist-responses", s.readLoop)
	return s
}

// Request sends one model-list request and waits for its answer. A send
// failure, timeout, or context cancellation yields Success=false; nothing
// here is ever fatal to the caller.
func (s *Service) Request(ctx context.Context, platformID string) Response {
	id := s.newID()
	reply := make(chan Response, 1)

	s.mu.Lock()
	s.pending[id] = reply
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.pending, id)
		s.mu.Unlock()
	}()

	req := Request{ID: id, PlatformID: platformID}
	if err := s.channel.Send(ctx, req); err != nil {
		s.logger.Warn("model list send for %s failed: %v", platformID, err)
		return Response{ID: id, PlatformID: platformID, Err: err.Error()}
	}

	timer := time.NewTimer(s.timeout)
	defer timer.Stop()
	select {
	case resp := <-reply:
		return resp
	case <-ctx.Done():
		return Response{ID: id, PlatformID: platformID, Err: ctx.Err().Error()}
	case <-timer.C:
		s.logger.Warn("model list request for %s timed out after %s", platformID, s.timeout)
		return Response{ID: id, PlatformID: platformID, Err: "model list request timed out"}
	}
}

// Close stops the response reader. In-flight requests finish via their own
// timeouts.
func (s *Service) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

func (s *Service) readLoop() {
	responses := s.channel.Responses()
	for {
		select {
		case resp, ok := <-responses:
			if !ok {
				return
			}
			s.route(resp)
		case <-s.done:
			return
		}
	}
}

func (s *Service) route(resp Response) {
	s.mu.Lock()
	reply, ok := s.pending[resp.ID]
	if ok {
		delete(s.pending, resp.ID)
	}
	s.mu.Unlock()
	if !ok {
		// Late answer to a request that already timed out or was abandoned.
		s.logger.Debug("dropping model list response for unknown request %s", resp.ID)
		return
	}
	reply <- resp
}
