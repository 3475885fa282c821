package async

import (
	"runtime/debug"

	"switchboard/internal/logging"
)

// Go runs fn on a new goroutine and converts panics into error logs, so a
// background resolution pass or notifier can never crash the host process.
func Go(logger logging.Logger, name string, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logging.OrNop(logger).Error("goroutine %q panicked: %v\n%s", name, r, debug.Stack())
			}
		}()
		fn()
	}()
}
