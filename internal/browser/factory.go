package browser

import (
	"context"
	"time"

	"faucet-agent/internal/ports"
)

// Factory creates one browser session. Session creation is deferred to the
// scenario's launch step so that a provisioning failure surfaces there, as
// a fatal session fault, rather than during dependency wiring.
type Factory func(ctx context.Context) (ports.Driver, error)

func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}
