package reservation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPolicyWithinHours(t *testing.T) {
	p := DefaultPolicy()
	p.Location = time.UTC

	assert.True(t, p.WithinHours(at(7, 0), at(7, 30)))
	assert.True(t, p.WithinHours(at(21, 30), at(22, 0)))
	assert.False(t, p.WithinHours(at(6, 59), at(7, 29)))
	assert.False(t, p.WithinHours(at(21, 31), at(22, 1)))
	assert.False(t, p.WithinHours(at(21, 0), at(31, 0)), "next-day end")
}

func TestPolicyAllowedDuration(t *testing.T) {
	p := DefaultPolicy()

	for _, m := range []int{30, 60, 90, 120, 180, 240, 360, 480} {
		assert.True(t, p.AllowedDuration(time.Duration(m)*time.Minute), "%d minutes", m)
	}
	for _, m := range []int{0, 15, 45, 300, 540} {
		assert.False(t, p.AllowedDuration(time.Duration(m)*time.Minute), "%d minutes", m)
	}
}

func TestPolicyCheckOrder(t *testing.T) {
	p := DefaultPolicy()
	p.Location = time.UTC

	// Out of hours wins over a bad duration.
	assert.ErrorIs(t, p.Check(at(6, 0), at(6, 45)), ErrOutOfHours)
	assert.ErrorIs(t, p.Check(at(9, 0), at(9, 45)), ErrInvalidDuration)
	assert.NoError(t, p.Check(at(9, 0), at(17, 0)))
}

func TestPolicyCustomWindow(t *testing.T) {
	p := Policy{
		Location:         time.UTC,
		Opening:          8*time.Hour + 30*time.Minute,
		Closing:          24 * time.Hour,
		AllowedDurations: []time.Duration{time.Hour},
	}

	assert.ErrorIs(t, p.Check(at(8, 0), at(9, 0)), ErrOutOfHours)
	assert.NoError(t, p.Check(at(8, 30), at(9, 30)))
	assert.NoError(t, p.Check(at(23, 0), at(24, 0)), "closing at midnight admits the last hour")
}
