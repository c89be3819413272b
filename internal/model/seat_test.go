package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	legal := [][2]SeatStatus{
		{SeatAvailable, SeatHeld},
		{SeatHeld, SeatBooked},
		{SeatHeld, SeatAvailable},
		{SeatBooked, SeatAvailable},
	}
	for _, e := range legal {
		assert.True(t, CanTransition(e[0], e[1]), "%s -> %s", e[0], e[1])
	}

	illegal := [][2]SeatStatus{
		{SeatAvailable, SeatBooked},
		{SeatAvailable, SeatAvailable},
		{SeatHeld, SeatHeld},
		{SeatBooked, SeatHeld},
		{SeatBooked, SeatBooked},
	}
	for _, e := range illegal {
		assert.False(t, CanTransition(e[0], e[1]), "%s -> %s", e[0], e[1])
	}
}
