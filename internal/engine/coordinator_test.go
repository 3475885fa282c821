package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"switchboard/internal/catalog"
	"switchboard/internal/credentials"
	"switchboard/internal/kvstore"
	"switchboard/internal/logging"
	"switchboard/internal/modellist"
	"switchboard/internal/params"
	"switchboard/internal/prefs"
	"switchboard/internal/selection"
)

func newTestResolver(cat *catalog.Cache, preferences *prefs.Store) *params.Resolver {
	return params.NewResolver(cat, preferences, nil)
}

func engineCatalog() *catalog.Cache {
	return catalog.NewCache(catalog.Static([]catalog.Platform{
		{
			ID:                 "alpha",
			Name:               "Alpha",
			TemperatureDefault: 0.7,
			DefaultModel:       "a1",
			Models: []catalog.Model{
				{ID: "a1", Tokens: catalog.Tokens{ContextWindow: 16000, MaxOutput: 4096, ParameterName: "max_tokens"}},
				{ID: "a2", Tokens: catalog.Tokens{ContextWindow: 16000, MaxOutput: 4096, ParameterName: "max_tokens"}},
			},
		},
		{
			ID:                 "beta",
			Name:               "Beta",
			TemperatureDefault: 1.0,
			DefaultModel:       "b1",
			Models: []catalog.Model{
				{ID: "b1", Tokens: catalog.Tokens{ContextWindow: 8000, MaxOutput: 2048, ParameterName: "max_tokens"}},
			},
		},
	}), nil)
}

type listerFunc func(ctx context.Context, platformID string) modellist.Response

func (f listerFunc) Request(ctx context.Context, platformID string) modellist.Response {
	return f(ctx, platformID)
}

func catalogLister(models map[string][]string) listerFunc {
	return func(_ context.Context, platformID string) modellist.Response {
		list, ok := models[platformID]
		if !ok {
			return modellist.Response{PlatformID: platformID, Err: "unknown platform"}
		}
		return modellist.Response{PlatformID: platformID, Success: true, Models: list}
	}
}

// flakyStore fails reads whose key carries a configured prefix, so a test
// can break one collaborator call mid-chain.
type flakyStore struct {
	kvstore.Store
	mu         sync.Mutex
	failPrefix string
}

func (f *flakyStore) setFailPrefix(prefix string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failPrefix = prefix
}

func (f *flakyStore) Get(ctx context.Context, scope kvstore.Scope, key string) (json.RawMessage, bool, error) {
	f.mu.Lock()
	prefix := f.failPrefix
	f.mu.Unlock()
	if prefix != "" && strings.HasPrefix(key, prefix) {
		return nil, false, context.DeadlineExceeded
	}
	return f.Store.Get(ctx, scope, key)
}

func newTestCoordinator(t *testing.T, store kvstore.Store, gate credentials.Gate, lister modellist.Requester, policy Policy) (*Coordinator, *prefs.Store) {
	t.Helper()
	cat := engineCatalog()
	preferences := prefs.NewStore(store, nil)
	coordinator := NewCoordinator(Config{
		Catalog:  cat,
		Gate:     gate,
		Prefs:    preferences,
		Models:   lister,
		Resolver: newTestResolver(cat, preferences),
		Policy:   policy,
		Logger:   logging.Nop(),
		Clock:    func() time.Time { return time.Unix(1700000000, 0) },
	})
	t.Cleanup(coordinator.Close)
	return coordinator, preferences
}

func waitForView(t *testing.T, views <-chan View, pred func(View) bool) View {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case view, ok := <-views:
			if !ok {
				t.Fatal("view stream closed while waiting")
			}
			if pred(view) {
				return view
			}
		case <-deadline:
			t.Fatal("timed out waiting for a matching view")
			return View{}
		}
	}
}

func TestFullChainCommit(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := kvstore.NewMemoryStore()
	lister := catalogLister(map[string][]string{"alpha": {"a1", "a2"}})
	coordinator, preferences := newTestCoordinator(t, store, credentials.StaticGate{"alpha": true}, lister, DefaultPolicy())

	if err := preferences.SetGlobalPlatform(ctx, prefs.InterfaceSidepanel, "alpha"); err != nil {
		t.Fatalf("SetGlobalPlatform: %v", err)
	}
	if err := preferences.SetModelPreference(ctx, prefs.InterfaceSidepanel, "alpha", "a2"); err != nil {
		t.Fatalf("SetModelPreference: %v", err)
	}

	views, cancel := coordinator.Subscribe()
	defer cancel()

	gen := coordinator.Refresh(Session{Interface: prefs.InterfaceSidepanel})
	view := waitForView(t, views, func(v View) bool { return v.Generation == gen && !v.Loading })

	if view.SelectedPlatform != "alpha" || view.PlatformSource != selection.SourceGlobalPreference {
		t.Fatalf("platform = %q via %q, want alpha via global preference", view.SelectedPlatform, view.PlatformSource)
	}
	if view.SelectedModel != "a2" || view.ModelSource != selection.SourceModelPreference {
		t.Fatalf("model = %q via %q, want a2 via model preference", view.SelectedModel, view.ModelSource)
	}
	if len(view.Models) != 2 {
		t.Fatalf("models = %v, want the live listing", view.Models)
	}
	if view.Parameters == nil || view.Parameters.Model != "a2" {
		t.Fatalf("parameters = %+v, want resolved for a2", view.Parameters)
	}
	if view.Err != nil {
		t.Fatalf("Err = %v, want nil after a commit", view.Err)
	}
	if !view.UpdatedAt.Equal(time.Unix(1700000000, 0)) {
		t.Fatalf("UpdatedAt = %v, want the injected clock", view.UpdatedAt)
	}
}

func TestNoPreferenceCommitsUnselected(t *testing.T) {
	t.Parallel()

	lister := catalogLister(map[string][]string{"alpha": {"a1"}})
	coordinator, _ := newTestCoordinator(t, kvstore.NewMemoryStore(), credentials.StaticGate{}, lister, DefaultPolicy())

	views, cancel := coordinator.Subscribe()
	defer cancel()

	gen := coordinator.Refresh(Session{Interface: prefs.InterfaceSidepanel})
	view := waitForView(t, views, func(v View) bool { return v.Generation == gen && !v.Loading })

	if view.SelectedPlatform != "" {
		t.Fatalf("platform = %q, want unselected rather than a guess", view.SelectedPlatform)
	}
	if len(view.Platforms) != 2 {
		t.Fatalf("platforms = %d entries, want the full listing", len(view.Platforms))
	}
	if view.Err != nil {
		t.Fatalf("Err = %v, want nil: no preference is not a failure", view.Err)
	}
}

func TestTabPreferenceWinsEndToEnd(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	lister := catalogLister(map[string][]string{"alpha": {"a1"}, "beta": {"b1"}})
	coordinator, preferences := newTestCoordinator(t, kvstore.NewMemoryStore(), nil, lister, DefaultPolicy())

	if err := preferences.SetGlobalPlatform(ctx, prefs.InterfacePopup, "beta"); err != nil {
		t.Fatalf("SetGlobalPlatform: %v", err)
	}
	if err := preferences.SetTabPlatform(ctx, 7, "alpha"); err != nil {
		t.Fatalf("SetTabPlatform: %v", err)
	}

	views, cancel := coordinator.Subscribe()
	defer cancel()

	gen := coordinator.Refresh(Session{TabID: 7, Interface: prefs.InterfacePopup})
	view := waitForView(t, views, func(v View) bool { return v.Generation == gen && !v.Loading })

	if view.SelectedPlatform != "alpha" || view.PlatformSource != selection.SourceTabPreference {
		t.Fatalf("platform = %q via %q, want the tab preference", view.SelectedPlatform, view.PlatformSource)
	}
}

func TestStalePassNeverOverwritesNewerCommit(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	alphaGate := make(chan struct{})
	lister := listerFunc(func(_ context.Context, platformID string) modellist.Response {
		if platformID == "alpha" {
			<-alphaGate
			return modellist.Response{PlatformID: "alpha", Success: true, Models: []string{"a1"}}
		}
		return modellist.Response{PlatformID: "beta", Success: true, Models: []string{"b1"}}
	})
	coordinator, preferences := newTestCoordinator(t, kvstore.NewMemoryStore(), credentials.StaticGate{"alpha": true, "beta": true}, lister, DefaultPolicy())

	if err := preferences.SetGlobalPlatform(ctx, prefs.InterfaceSidepanel, "alpha"); err != nil {
		t.Fatalf("SetGlobalPlatform: %v", err)
	}

	views, cancel := coordinator.Subscribe()
	defer cancel()
	session := Session{Interface: prefs.InterfaceSidepanel}

	older := coordinator.Refresh(session)

	newer, err := coordinator.SelectPlatform(ctx, session, "beta")
	if err != nil {
		t.Fatalf("SelectPlatform: %v", err)
	}
	if newer <= older {
		t.Fatalf("generations not monotonic: %d then %d", older, newer)
	}
	waitForView(t, views, func(v View) bool { return v.Generation == newer })

	// Let the older pass finish after the newer one already committed.
	close(alphaGate)
	view := waitForView(t, views, func(v View) bool { return !v.Loading })

	if view.Generation != newer {
		t.Fatalf("Generation = %d, want the newer commit %d retained", view.Generation, newer)
	}
	if view.SelectedPlatform != "beta" {
		t.Fatalf("platform = %q, the stale pass must not overwrite beta", view.SelectedPlatform)
	}
}

func TestMidPassFailureLeavesStableUntouched(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := &flakyStore{Store: kvstore.NewMemoryStore()}
	lister := catalogLister(map[string][]string{"alpha": {"a1", "a2"}})
	coordinator, preferences := newTestCoordinator(t, store, credentials.StaticGate{"alpha": true}, lister, DefaultPolicy())

	if err := preferences.SetGlobalPlatform(ctx, prefs.InterfaceSidepanel, "alpha"); err != nil {
		t.Fatalf("SetGlobalPlatform: %v", err)
	}

	views, cancel := coordinator.Subscribe()
	defer cancel()
	session := Session{Interface: prefs.InterfaceSidepanel}

	first := coordinator.Refresh(session)
	committed := waitForView(t, views, func(v View) bool { return v.Generation == first && !v.Loading })
	if committed.SelectedPlatform != "alpha" || committed.SelectedModel == "" {
		t.Fatalf("setup commit = %+v, want a full alpha resolution", committed)
	}

	// Break the model preference read; the next pass must fail mid-chain.
	store.setFailPrefix("globalModelPreference:")
	coordinator.Refresh(session)

	view := waitForView(t, views, func(v View) bool { return !v.Loading && v.Err != nil })
	if view.Generation != first {
		t.Fatalf("Generation = %d, want the original commit %d retained", view.Generation, first)
	}
	if view.SelectedPlatform != committed.SelectedPlatform || view.SelectedModel != committed.SelectedModel {
		t.Fatalf("stable state changed on failure: %+v vs %+v", view, committed)
	}
	if len(view.Models) != len(committed.Models) {
		t.Fatalf("models changed on failure: %v vs %v", view.Models, committed.Models)
	}

	// A later healthy pass clears the error.
	store.setFailPrefix("")
	gen := coordinator.Refresh(session)
	healed := waitForView(t, views, func(v View) bool { return v.Generation == gen && !v.Loading })
	if healed.Err != nil {
		t.Fatalf("Err = %v, want cleared after a successful pass", healed.Err)
	}
}

func TestListingFailureResolvesNoModel(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	lister := listerFunc(func(_ context.Context, platformID string) modellist.Response {
		return modellist.Response{PlatformID: platformID, Err: "endpoint down"}
	})
	coordinator, preferences := newTestCoordinator(t, kvstore.NewMemoryStore(), credentials.StaticGate{"alpha": true}, lister, DefaultPolicy())

	if err := preferences.SetGlobalPlatform(ctx, prefs.InterfaceSidepanel, "alpha"); err != nil {
		t.Fatalf("SetGlobalPlatform: %v", err)
	}

	views, cancel := coordinator.Subscribe()
	defer cancel()

	gen := coordinator.Refresh(Session{Interface: prefs.InterfaceSidepanel})
	view := waitForView(t, views, func(v View) bool { return v.Generation == gen && !v.Loading })

	if view.SelectedPlatform != "alpha" {
		t.Fatalf("platform = %q, want alpha: a listing failure is not fatal", view.SelectedPlatform)
	}
	if len(view.Models) != 0 || view.SelectedModel != "" || view.Parameters != nil {
		t.Fatalf("view = %+v, want no models and no parameters", view)
	}
	if view.Err != nil {
		t.Fatalf("Err = %v, want nil", view.Err)
	}
}

func TestPopupCommitsPlatformOnly(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	lister := listerFunc(func(_ context.Context, platformID string) modellist.Response {
		t.Errorf("model list requested for %s; the popup has no model choice", platformID)
		return modellist.Response{}
	})
	coordinator, preferences := newTestCoordinator(t, kvstore.NewMemoryStore(), nil, lister, DefaultPolicy())

	if err := preferences.SetGlobalPlatform(ctx, prefs.InterfacePopup, "alpha"); err != nil {
		t.Fatalf("SetGlobalPlatform: %v", err)
	}

	views, cancel := coordinator.Subscribe()
	defer cancel()

	gen := coordinator.Refresh(Session{Interface: prefs.InterfacePopup})
	view := waitForView(t, views, func(v View) bool { return v.Generation == gen && !v.Loading })

	if view.SelectedPlatform != "alpha" {
		t.Fatalf("platform = %q, want alpha", view.SelectedPlatform)
	}
	if view.SelectedModel != "" || view.Parameters != nil || len(view.Models) != 0 {
		t.Fatalf("view = %+v, want no model stage for the popup", view)
	}
	if view.Err != nil {
		t.Fatalf("Err = %v, want nil", view.Err)
	}
}

// recordingObserver captures pass lifecycle events for assertions.
type recordingObserver struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingObserver) PassStarted(generation uint64, trigger Trigger, session Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, fmt.Sprintf("start:%d:%s:%s", generation, trigger, session.Interface))
}

func (r *recordingObserver) PassFinished(generation uint64, outcome PassOutcome, took time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, fmt.Sprintf("finish:%d:%s", generation, outcome))
}

func (r *recordingObserver) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func TestObserverSeesEveryPass(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	first := &recordingObserver{}
	second := &recordingObserver{}
	cat := engineCatalog()
	preferences := prefs.NewStore(kvstore.NewMemoryStore(), nil)
	coordinator := NewCoordinator(Config{
		Catalog:  cat,
		Prefs:    preferences,
		Models:   catalogLister(map[string][]string{"alpha": {"a1"}}),
		Resolver: newTestResolver(cat, preferences),
		Policy:   DefaultPolicy(),
		Logger:   logging.Nop(),
		Observer: Observers(first, second, nil),
	})
	t.Cleanup(coordinator.Close)

	views, cancel := coordinator.Subscribe()
	defer cancel()
	session := Session{Interface: prefs.InterfacePopup}

	gen, err := coordinator.SelectPlatform(ctx, session, "alpha")
	if err != nil {
		t.Fatalf("SelectPlatform: %v", err)
	}
	waitForView(t, views, func(v View) bool { return v.Generation == gen && !v.Loading })

	// The finish callback runs after the commit is visible, so poll.
	want := []string{
		fmt.Sprintf("start:%d:select_platform:popup", gen),
		fmt.Sprintf("finish:%d:committed", gen),
	}
	deadline := time.Now().Add(2 * time.Second)
	for _, observer := range []*recordingObserver{first, second} {
		for {
			got := observer.snapshot()
			if len(got) == 2 {
				if got[0] != want[0] || got[1] != want[1] {
					t.Fatalf("events = %v, want %v", got, want)
				}
				break
			}
			if time.Now().After(deadline) {
				t.Fatalf("events = %v, want %v", got, want)
			}
			time.Sleep(5 * time.Millisecond)
		}
	}
}

func TestSubscribeSeedsCurrentView(t *testing.T) {
	t.Parallel()

	lister := catalogLister(map[string][]string{})
	coordinator, _ := newTestCoordinator(t, kvstore.NewMemoryStore(), nil, lister, DefaultPolicy())

	views, cancel := coordinator.Subscribe()
	defer cancel()

	select {
	case view := <-views:
		if view.Generation != 0 || view.Loading {
			t.Fatalf("seed view = %+v, want the idle zero state", view)
		}
	case <-time.After(time.Second):
		t.Fatal("Subscribe did not seed the stream")
	}
}

func TestRefreshAfterCloseIsNoop(t *testing.T) {
	t.Parallel()

	lister := catalogLister(map[string][]string{})
	coordinator, _ := newTestCoordinator(t, kvstore.NewMemoryStore(), nil, lister, DefaultPolicy())

	coordinator.Close()
	coordinator.Close()
	if gen := coordinator.Refresh(Session{Interface: prefs.InterfacePopup}); gen != 0 {
		t.Fatalf("Refresh after Close = %d, want 0", gen)
	}
}

func TestShouldCommit(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		passGen       uint64
		highestIssued uint64
		err           error
		want          bool
	}{
		{name: "current pass without error commits", passGen: 5, highestIssued: 5, want: true},
		{name: "stale pass is discarded", passGen: 3, highestIssued: 5, want: false},
		{name: "current pass with error is discarded", passGen: 5, highestIssued: 5, err: context.DeadlineExceeded, want: false},
		{name: "stale failing pass is discarded", passGen: 3, highestIssued: 5, err: context.DeadlineExceeded, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := shouldCommit(tt.passGen, tt.highestIssued, tt.err); got != tt.want {
				t.Fatalf("shouldCommit(%d, %d, %v) = %v, want %v", tt.passGen, tt.highestIssued, tt.err, got, tt.want)
			}
		})
	}
}
