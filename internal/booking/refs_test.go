package booking

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBookingRefFormat(t *testing.T) {
	at := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	ref, err := NewBookingRef(at)
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^PNR-1788256800-[0-9A-F]{6}$`), ref)
}

func TestNewHoldTokenIsUnique(t *testing.T) {
	a, err := NewHoldToken()
	require.NoError(t, err)
	b, err := NewHoldToken()
	require.NoError(t, err)
	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
}
