package relayer

import (
	"errors"
	"time"

	"github.com/getsentry/sentry-go"
)

const (
	InternalError           = "Internal server error"
	SimulationFailedMessage = "Simulation failed and should not proceed"
	NoProfitMessage         = "No profit detected"
)

var (
	ErrInvalidRequest   = errors.New("invalid flash loan request")
	ErrSimulationFailed = errors.New("simulation failed and should not proceed")
	ErrNoProfit         = errors.New("no profit detected")
	ErrRelayerMismatch  = errors.New("relayer address mismatch")
)

// goSafe runs fn in a goroutine, reporting a panic to Sentry before re-panicking.
func goSafe(fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				sentryRecover(r)
				panic(r)
			}
		}()
		fn()
	}()
}

// sentryRecover is a no-op when Sentry is not initialized.
func sentryRecover(rec interface{}) {
	sentry.CurrentHub().Recover(rec)
}

func sentryCapture(err error) {
	sentry.CaptureException(err)
}

func sentryFlushSafely(timeout time.Duration) {
	_ = sentry.Flush(timeout)
}
