package modellist

import (
	"context"

	"switchboard/internal/async"
	"switchboard/internal/catalog"
	"switchboard/internal/logging"
)

// Loopback answers model-list requests from the local catalog. It is the
// channel of record for platforms without a listable endpoint and the
// default in tests and offline runs.
type Loopback struct {
	catalog *catalog.Cache
	logger  logging.Logger
	out     chan Response
}

var _ Channel = (*Loopback)(nil)

func NewLoopback(cat *catalog.Cache, logger logging.Logger) *Loopback {
	return &Loopback{
		catalog: cat,
		logger:  logging.OrNop(logger),
		out:     make(chan Response, 8),
	}
}

// Send answers asynchronously, preserving the request/response contract
// even though the data is local.
func (l *Loopback) Send(ctx context.Context, req Request) error {
	async.Go(l.logger, "modellist-loopback", func() {
		resp := l.answer(ctx, req)
		select {
		case l.out <- resp:
		case <-ctx.Done():
		}
	})
	return nil
}

func (l *Loopback) Responses() <-chan Response {
	return l.out
}

func (l *Loopback) answer(ctx context.Context, req Request) Response {
	platform, ok, err := l.catalog.Platform(ctx, req.PlatformID)
	if err != nil {
		return Response{ID: req.ID, PlatformID: req.PlatformID, Err: err.Error()}
	}
	if !ok {
		return Response{ID: req.ID, PlatformID: req.PlatformID, Err: "unknown platform"}
	}
	return Response{
		ID:         req.ID,
		PlatformID: req.PlatformID,
		Success:    true,
		Models:     platform.ModelIDs(),
	}
}
