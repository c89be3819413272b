package payment

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChargeAcceptsByDefault(t *testing.T) {
	g := NewMockGateway()
	res, err := g.Charge(context.Background(), "tok-1", 50000, "card")
	require.NoError(t, err)
	assert.True(t, res.Accepted)
	assert.Empty(t, res.Reason)
}

func TestChargeDeclinesZeroAmount(t *testing.T) {
	g := NewMockGateway()
	res, err := g.Charge(context.Background(), "tok-1", 0, "card")
	require.NoError(t, err)
	assert.False(t, res.Accepted)
	assert.Equal(t, "zero amount", res.Reason)
}

func TestChargeIsIdempotentPerToken(t *testing.T) {
	calls := 0
	g := NewMockGateway(WithDecider(func(amountCents uint32, method string) (bool, string) {
		calls++
		return calls == 1, "scripted decline"
	}))
	ctx := context.Background()

	first, err := g.Charge(ctx, "tok-1", 50000, "card")
	require.NoError(t, err)
	assert.True(t, first.Accepted)

	// Repeating the token replays the cached decision, the decider is
	// not consulted again.
	again, err := g.Charge(ctx, "tok-1", 50000, "card")
	require.NoError(t, err)
	assert.Equal(t, first, again)
	assert.Equal(t, 1, calls)

	// A fresh token gets a fresh decision.
	second, err := g.Charge(ctx, "tok-2", 50000, "card")
	require.NoError(t, err)
	assert.False(t, second.Accepted)
	assert.Equal(t, "scripted decline", second.Reason)
}

func TestChargeScriptedDecider(t *testing.T) {
	g := NewMockGateway(WithDecider(func(amountCents uint32, method string) (bool, string) {
		if method == "upi" {
			return false, "upi unavailable"
		}
		return true, ""
	}))
	ctx := context.Background()

	res, err := g.Charge(ctx, "tok-1", 50000, "upi")
	require.NoError(t, err)
	assert.False(t, res.Accepted)
	assert.Equal(t, "upi unavailable", res.Reason)

	res, err = g.Charge(ctx, "tok-2", 50000, "card")
	require.NoError(t, err)
	assert.True(t, res.Accepted)
}

func TestChargeRespectsContextDuringLatency(t *testing.T) {
	g := NewMockGateway(WithLatency(time.Second))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := g.Charge(ctx, "tok-1", 50000, "card")
	require.ErrorIs(t, err, context.DeadlineExceeded)

	// The interrupted attempt was never decided, so retrying the same
	// token with a live context still works.
	res, err := g.Charge(context.Background(), "tok-1", 50000, "card")
	require.NoError(t, err)
	assert.True(t, res.Accepted)
}
