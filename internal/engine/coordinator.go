// Package engine owns the resolution pass lifecycle. Every trigger starts a
// pass tagged with a monotonically increasing generation id; the pass runs
// the selector chain against a private staging buffer and the result is
// committed to the externally visible state only if the whole chain
// succeeded and no newer pass was issued meanwhile. In-flight passes are
// never cancelled by newer triggers; their results are simply discarded as
// stale at commit time.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"switchboard/internal/async"
	"switchboard/internal/catalog"
	"switchboard/internal/credentials"
	"switchboard/internal/logging"
	"switchboard/internal/modellist"
	"switchboard/internal/params"
	"switchboard/internal/prefs"
	"switchboard/internal/selection"
)

// Config wires a Coordinator. Catalog, Prefs, Models, and Resolver are
// required; Gate may be nil for fleets without credential-gated surfaces.
type Config struct {
	Catalog  *catalog.Cache
	Gate     credentials.Gate
	Prefs    *prefs.Store
	Models   modellist.Requester
	Resolver *params.Resolver
	Policy   Policy
	Logger   logging.Logger
	Clock    func() time.Time
	// Observer receives pass lifecycle events; nil disables observation.
	Observer PassObserver
}

// Coordinator is the single writer of the committed view. All commit
// decisions happen under one mutex, so a commit is atomic with respect to
// Snapshot and Subscribe.
type Coordinator struct {
	catalog  *catalog.Cache
	gate     credentials.Gate
	prefs    *prefs.Store
	models   modellist.Requester
	resolver *params.Resolver
	policy   Policy
	logger   logging.Logger
	clock    func() time.Time
	observer PassObserver

	// Passes run on baseCtx, not the trigger's context: a trigger's caller
	// going away must not abort a pass that may still commit.
	baseCtx    context.Context
	baseCancel context.CancelFunc

	mu         sync.Mutex
	generation uint64
	inflight   int
	stable     View
	lastErr    error
	subs       map[int]chan View
	nextSubID  int
	closed     bool
}

// NewCoordinator builds an idle coordinator; the first trigger starts the
// first pass.
func NewCoordinator(config Config) *Coordinator {
	clock := config.Clock
	if clock == nil {
		clock = time.Now
	}
	baseCtx, baseCancel := context.WithCancel(context.Background())
	return &Coordinator{
		catalog:    config.Catalog,
		gate:       config.Gate,
		prefs:      config.Prefs,
		models:     config.Models,
		resolver:   config.Resolver,
		policy:     config.Policy,
		logger:     logging.OrNop(config.Logger),
		clock:      clock,
		observer:   orNopObserver(config.Observer),
		baseCtx:    baseCtx,
		baseCancel: baseCancel,
		subs:       make(map[int]chan View),
	}
}

// Refresh starts a pass for session and returns its generation id without
// waiting; the outcome arrives on the subscription stream.
func (c *Coordinator) Refresh(session Session) uint64 {
	return c.start(session, TriggerRefresh)
}

// SelectPlatform persists the user's platform choice — pinned to the tab
// when one exists, and as the interface-wide default — then starts a pass.
// A failed write aborts before any pass starts so the caller can surface
// the store fault.
func (c *Coordinator) SelectPlatform(ctx context.Context, session Session, platformID string) (uint64, error) {
	if session.TabID != 0 {
		if err := c.prefs.SetTabPlatform(ctx, session.TabID, platformID); err != nil {
			return 0, err
		}
	}
	if err := c.prefs.SetGlobalPlatform(ctx, session.Interface, platformID); err != nil {
		return 0, err
	}
	return c.start(session, TriggerSelectPlatform), nil
}

// SelectModel persists the model choice for the interface and platform,
// then starts a pass.
func (c *Coordinator) SelectModel(ctx context.Context, session Session, platformID, modelID string) (uint64, error) {
	if err := c.prefs.SetModelPreference(ctx, session.Interface, platformID, modelID); err != nil {
		return 0, err
	}
	return c.start(session, TriggerSelectModel), nil
}

// Snapshot returns the current view: the last committed state plus the
// live Loading and Err signals.
func (c *Coordinator) Snapshot() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

// Subscribe returns a view stream seeded with the current view and updated
// at every pass start and finish. The channel holds only the latest view;
// a slow consumer sees the newest state, never a backlog. cancel releases
// the subscription and closes the channel.
func (c *Coordinator) Subscribe() (<-chan View, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextSubID
	c.nextSubID++
	ch := make(chan View, 1)
	c.subs[id] = ch
	ch <- c.viewLocked()

	cancel := func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if sub, ok := c.subs[id]; ok {
			delete(c.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Close stops new passes and cancels the external calls of in-flight ones.
// Their results are discarded through the usual staleness path.
func (c *Coordinator) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()
	c.baseCancel()
}

// ---- pass lifecycle ----

func (c *Coordinator) start(session Session, trigger Trigger) uint64 {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return 0
	}
	c.generation++
	gen := c.generation
	c.inflight++
	c.notifyLocked()
	c.mu.Unlock()

	c.logger.Debug("pass %d started by %s (tab=%d interface=%s)", gen, trigger, session.TabID, session.Interface)
	c.observer.PassStarted(gen, trigger, session)
	started := c.clock()
	async.Go(c.logger, fmt.Sprintf("resolution-pass-%d", gen), func() {
		staged, err := c.resolve(c.baseCtx, session)
		outcome := c.finish(gen, staged, err)
		c.observer.PassFinished(gen, outcome, c.clock().Sub(started))
	})
	return gen
}

// resolve runs the selector chain, staging every intermediate result in
// local values. Nothing here can touch the committed state.
func (c *Coordinator) resolve(ctx context.Context, session Session) (View, error) {
	staged := View{UpdatedAt: c.clock()}

	platforms, err := c.catalog.Platforms(ctx)
	if err != nil {
		return staged, err
	}
	staged.Platforms = platforms

	var status credentials.Status
	gated := session.Interface.RequiresCredentials()
	if gated {
		status = credentials.Snapshot(ctx, c.gate, platforms)
	}

	var tabPref string
	if session.TabID != 0 {
		pref, _, err := c.prefs.TabPlatform(ctx, session.TabID)
		if err != nil {
			return staged, err
		}
		tabPref = pref
	}
	globalPref, _, err := c.prefs.GlobalPlatform(ctx, session.Interface)
	if err != nil {
		return staged, err
	}

	platformRes, ok := selection.ResolvePlatform(selection.PlatformInputs{
		TabPreference:      tabPref,
		GlobalPreference:   globalPref,
		Platforms:          platforms,
		Credentials:        status,
		RequireCredentials: gated,
	})
	if !ok {
		// No valid preference is a committed outcome, not a failure: the
		// consumer shows its platform chooser.
		return staged, nil
	}
	staged.SelectedPlatform = platformRes.PlatformID
	staged.PlatformSource = platformRes.Source

	if !session.Interface.ExposesModelChoice() {
		// The popup hands off to the platform's own web UI; no per-call
		// model or parameter set applies, so the pass ends here.
		return staged, nil
	}

	listing := c.models.Request(ctx, platformRes.PlatformID)
	if listing.Success {
		staged.Models = append([]string(nil), listing.Models...)
	} else {
		// A failed listing is treated identically to an empty one.
		staged.Models = []string{}
	}

	modelPref, _, err := c.prefs.ModelPreference(ctx, session.Interface, platformRes.PlatformID)
	if err != nil {
		return staged, err
	}
	modelRes, ok := selection.ResolveModel(selection.ModelInputs{
		Preference:         modelPref,
		DefaultModel:       defaultModelFor(platforms, platformRes.PlatformID),
		LiveModels:         staged.Models,
		AllowFirstFallback: c.policy.AllowFirstModelFallback,
	})
	if !ok {
		return staged, nil
	}
	staged.SelectedModel = modelRes.ModelID
	staged.ModelSource = modelRes.Source

	resolved, err := c.resolver.Resolve(ctx, platformRes.PlatformID, modelRes.ModelID, params.Options{
		TabID:           session.TabID,
		Interface:       session.Interface,
		UseThinkingMode: session.UseThinkingMode,
	})
	if err != nil {
		return staged, err
	}
	staged.Parameters = &resolved

	return staged, nil
}

func (c *Coordinator) finish(gen uint64, staged View, err error) PassOutcome {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.inflight--
	var outcome PassOutcome
	switch {
	case shouldCommit(gen, c.generation, err):
		staged.Generation = gen
		c.stable = staged
		c.lastErr = nil
		outcome = PassCommitted
		c.logger.Info("pass %d committed: platform=%q model=%q", gen, staged.SelectedPlatform, staged.SelectedModel)
	case err != nil && gen == c.generation:
		// Only the most recent pass may surface its failure.
		c.lastErr = err
		outcome = PassFailed
		c.logger.Warn("pass %d failed: %v", gen, err)
	default:
		outcome = PassDiscarded
		c.logger.Debug("pass %d discarded, superseded by generation %d", gen, c.generation)
	}
	c.notifyLocked()
	return outcome
}

// shouldCommit is the commit rule: a finished pass may overwrite the
// stable state only when it completed without a fatal error and carries
// the highest generation id issued so far. Any other outcome leaves the
// previous commit untouched.
func shouldCommit(passGen, highestIssued uint64, err error) bool {
	return err == nil && passGen == highestIssued
}

func (c *Coordinator) viewLocked() View {
	view := c.stable.clone()
	view.Loading = c.inflight > 0
	view.Err = c.lastErr
	return view
}

// notifyLocked pushes the current view to every subscriber without ever
// blocking: a full slot is drained and replaced with the newest view.
func (c *Coordinator) notifyLocked() {
	view := c.viewLocked()
	for _, ch := range c.subs {
		select {
		case ch <- view:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- view:
			default:
			}
		}
	}
}

func defaultModelFor(platforms []catalog.Platform, platformID string) string {
	for _, platform := range platforms {
		if platform.ID == platformID {
			return platform.DefaultModel
		}
	}
	return ""
}
