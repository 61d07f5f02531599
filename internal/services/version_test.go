package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNextVersionUsesWallClock(t *testing.T) {
	before := uint64(time.Now().UnixMilli())
	v := NextVersion(0)
	after := uint64(time.Now().UnixMilli())
	assert.GreaterOrEqual(t, v, before)
	assert.LessOrEqual(t, v, after)
}

func TestNextVersionAlwaysAdvances(t *testing.T) {
	// A previous stamp ahead of the wall clock still advances by one, so a
	// skewed clock can never produce a stale or equal version.
	future := uint64(time.Now().UnixMilli()) + 1_000_000
	assert.Equal(t, future+1, NextVersion(future))
}
