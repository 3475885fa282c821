package engine

import "time"

// Trigger names what started a pass.
type Trigger string

const (
	TriggerRefresh        Trigger = "refresh"
	TriggerSelectPlatform Trigger = "select_platform"
	TriggerSelectModel    Trigger = "select_model"
)

// PassOutcome classifies how a finished pass ended.
type PassOutcome string

const (
	// PassCommitted - the pass overwrote the stable state.
	PassCommitted PassOutcome = "committed"
	// PassFailed - the pass hit a fatal error and surfaced it.
	PassFailed PassOutcome = "failed"
	// PassDiscarded - the pass was superseded and its result dropped.
	PassDiscarded PassOutcome = "discarded"
)

// PassObserver receives pass lifecycle events for metrics and tracing. All
// callbacks run on the pass goroutine under no coordinator lock and must not
// block.
type PassObserver interface {
	PassStarted(generation uint64, trigger Trigger, session Session)
	PassFinished(generation uint64, outcome PassOutcome, took time.Duration)
}

// Observers fans events out to every non-nil observer in order.
func Observers(observers ...PassObserver) PassObserver {
	var active []PassObserver
	for _, o := range observers {
		if o != nil {
			active = append(active, o)
		}
	}
	switch len(active) {
	case 0:
		return nopObserver{}
	case 1:
		return active[0]
	default:
		return multiObserver(active)
	}
}

type multiObserver []PassObserver

func (m multiObserver) PassStarted(generation uint64, trigger Trigger, session Session) {
	for _, o := range m {
		o.PassStarted(generation, trigger, session)
	}
}

func (m multiObserver) PassFinished(generation uint64, outcome PassOutcome, took time.Duration) {
	for _, o := range m {
		o.PassFinished(generation, outcome, took)
	}
}

type nopObserver struct{}

func (nopObserver) PassStarted(uint64, Trigger, Session)            {}
func (nopObserver) PassFinished(uint64, PassOutcome, time.Duration) {}

func orNopObserver(o PassObserver) PassObserver {
	if o == nil {
		return nopObserver{}
	}
	return o
}
