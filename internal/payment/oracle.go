// Package payment abstracts the payment gateway behind a synchronous
// accept/decline oracle so a real processor can be substituted without
// touching the booking coordinator's transaction logic.
package payment

import (
	"context"
	"sync"
	"time"
)

// Result is the oracle's terminal answer for one charge attempt.
type Result struct {
	Accepted bool
	Reason   string // set when declined
}

// Oracle decides a charge synchronously.  Implementations must be
// idempotent per attempt token: repeating a token returns the first
// decision without charging again.  A context deadline hit during the
// call is returned as an error and treated by callers as a decline.
type Oracle interface {
	Charge(ctx context.Context, attemptToken string, amountCents uint32, method string) (Result, error)
}

// Decider maps a charge to accept/decline.  Used to script the mock
// gateway's behavior.
type Decider func(amountCents uint32, method string) (accepted bool, reason string)

// MockGateway is the built-in oracle.  It accepts everything by
// default, can be scripted with a Decider, simulates processor latency,
// and caches decisions by attempt token.
type MockGateway struct {
	mu      sync.Mutex
	seen    map[string]Result
	decide  Decider
	latency time.Duration
}

// Option configures a MockGateway.
type Option func(*MockGateway)

// WithDecider installs a scripted accept/decline rule.
func WithDecider(d Decider) Option {
	return func(g *MockGateway) { g.decide = d }
}

// WithLatency makes every first-time charge take d before answering.
func WithLatency(d time.Duration) Option {
	return func(g *MockGateway) { g.latency = d }
}

// NewMockGateway constructs the mock oracle.
func NewMockGateway(opts ...Option) *MockGateway {
	g := &MockGateway{seen: make(map[string]Result)}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Charge decides the attempt.  Zero-amount charges are always declined.
func (g *MockGateway) Charge(ctx context.Context, attemptToken string, amountCents uint32, method string) (Result, error) {
	g.mu.Lock()
	if r, ok := g.seen[attemptToken]; ok {
		g.mu.Unlock()
		return r, nil
	}
	g.mu.Unlock()

	if g.latency > 0 {
		select {
		case <-time.After(g.latency):
		case <-ctx.Done():
			return Result{}, ctx.Err()
		}
	} else if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	res := Result{Accepted: true}
	if amountCents == 0 {
		res = Result{Accepted: false, Reason: "zero amount"}
	} else if g.decide != nil {
		ok, reason := g.decide(amountCents, method)
		res = Result{Accepted: ok, Reason: reason}
	}

	g.mu.Lock()
	g.seen[attemptToken] = res
	g.mu.Unlock()
	return res, nil
}
