package httpx

import (
	"context"
	"time"

	"github.com/aussiebroadwan/bouncer/pkg/authz"
	"github.com/aussiebroadwan/bouncer/pkg/jwtx"
	"github.com/aussiebroadwan/bouncer/pkg/slogx"
)

// DecisionEvent describes what the guard did with one request.
type DecisionEvent struct {
	RequestID string
	Method    string
	Path      string

	// Identity is nil for anonymous callers and rejected tokens.
	Identity *authz.Identity

	// Decision is the zero value when the token was rejected before the
	// enforcer ran; VerifyErr says why.
	Decision  authz.Decision
	VerifyErr error

	Status     int
	OccurredAt time.Time
}

// Allowed reports whether the request was let through.
func (e DecisionEvent) Allowed() bool {
	return e.VerifyErr == nil && e.Decision.Allow
}

// Outcome is a short label for the event: the decision reason, or the
// verification error code when the token was rejected.
func (e DecisionEvent) Outcome() string {
	if e.VerifyErr != nil {
		return jwtx.Code(e.VerifyErr)
	}
	return e.Decision.Reason
}

// Recorder receives every guard outcome. Implementations must not block.
type Recorder interface {
	Record(ctx context.Context, ev DecisionEvent)
}

// RecorderFunc adapts a function to Recorder.
type RecorderFunc func(ctx context.Context, ev DecisionEvent)

func (f RecorderFunc) Record(ctx context.Context, ev DecisionEvent) { f(ctx, ev) }

// Recorders fans an event out to several recorders in order.
type Recorders []Recorder

func (rs Recorders) Record(ctx context.Context, ev DecisionEvent) {
	for _, r := range rs {
		r.Record(ctx, ev)
	}
}

// LogRecorder logs denials at info and grants at debug on the request's
// contextual logger.
var LogRecorder = RecorderFunc(func(ctx context.Context, ev DecisionEvent) {
	log := slogx.FromContext(ctx)

	args := []any{
		"outcome", ev.Outcome(),
		"status", ev.Status,
	}
	if ev.Identity != nil {
		args = append(args, "sub", ev.Identity.Subject, "principal", ev.Identity.Principal)
	}
	if ev.Decision.Rule != "" {
		args = append(args, "rule", ev.Decision.Rule)
	}
	if ev.VerifyErr != nil {
		args = append(args, "error", ev.VerifyErr)
	}

	if ev.Allowed() {
		log.DebugContext(ctx, "access granted", args...)
		return
	}
	log.InfoContext(ctx, "access denied", args...)
})
