package credentials

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"switchboard/internal/catalog"
)

// Status is one pass's credential snapshot: platform id → usable. It is
// rebuilt per resolution pass and never reused across passes.
type Status map[string]bool

// Allowed reports whether platformID passed the gate. Missing entries are
// false.
func (s Status) Allowed(platformID string) bool { return s[platformID] }

// Snapshot checks every platform concurrently and collects the results.
// Individual check failures are already degraded to false inside the gate,
// so the fan-out itself never fails.
func Snapshot(ctx context.Context, gate Gate, platforms []catalog.Platform) Status {
	status := make(Status, len(platforms))
	if gate == nil {
		return status
	}

	var mu sync.Mutex
	group, ctx := errgroup.WithContext(ctx)
	for _, platform := range platforms {
		id := platform.ID
		group.Go(func() error {
			allowed := gate.Check(ctx, id)
			mu.Lock()
			status[id] = allowed
			mu.Unlock()
			return nil
		})
	}
	_ = group.Wait()
	return status
}
