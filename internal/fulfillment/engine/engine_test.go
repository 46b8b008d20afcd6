package engine

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/social-bet-fulfillment/internal/fulfillment/domain"
)

var now = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func TestComputeTable(t *testing.T) {
	cases := []struct {
		winners, confirmations int
		want                   domain.FulfillmentStatus
		stamped                bool
	}{
		{0, 0, domain.FulfillmentFulfilled, true},
		{1, 0, domain.FulfillmentPending, false},
		{1, 1, domain.FulfillmentFulfilled, true},
		{2, 0, domain.FulfillmentPending, false},
		{2, 1, domain.FulfillmentPartiallyFulfilled, false},
		{2, 2, domain.FulfillmentFulfilled, true},
		{5, 4, domain.FulfillmentPartiallyFulfilled, false},
		{5, 5, domain.FulfillmentFulfilled, true},
		// fora da pré-condição, mas Compute é total
		{3, 4, domain.FulfillmentFulfilled, true},
		{-1, 0, domain.FulfillmentFulfilled, true},
		{2, -3, domain.FulfillmentPending, false},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("w%d_c%d", tc.winners, tc.confirmations), func(t *testing.T) {
			r := Compute(tc.winners, tc.confirmations, nil, now)
			assert.Equal(t, tc.want, r.Status)
			if tc.stamped {
				require.NotNil(t, r.AllWinnersConfirmedAt)
				assert.True(t, r.AllWinnersConfirmedAt.Equal(now))
			} else {
				assert.Nil(t, r.AllWinnersConfirmedAt)
			}
		})
	}
}

func TestComputeExhaustiveSmallGrid(t *testing.T) {
	for w := 0; w <= 6; w++ {
		for c := 0; c <= w; c++ {
			r := Compute(w, c, nil, now)
			switch {
			case w == 0 || c == w:
				assert.Equal(t, domain.FulfillmentFulfilled, r.Status, "w=%d c=%d", w, c)
			case c == 0:
				assert.Equal(t, domain.FulfillmentPending, r.Status, "w=%d c=%d", w, c)
			default:
				assert.Equal(t, domain.FulfillmentPartiallyFulfilled, r.Status, "w=%d c=%d", w, c)
			}
		}
	}
}

func TestComputePreservesFirstFulfilledAt(t *testing.T) {
	first := now.Add(-time.Hour)
	r := Compute(2, 2, &first, now)
	require.NotNil(t, r.AllWinnersConfirmedAt)
	assert.True(t, r.AllWinnersConfirmedAt.Equal(first))

	// idempotente: mesma entrada, mesmo resultado
	again := Compute(2, 2, r.AllWinnersConfirmedAt, now.Add(time.Minute))
	assert.Equal(t, r.Status, again.Status)
	assert.True(t, again.AllWinnersConfirmedAt.Equal(first))
}

func TestComputeIsMonotonicAsConfirmationsAccrue(t *testing.T) {
	const w = 4
	prev := domain.FulfillmentPending
	for c := 0; c <= w; c++ {
		r := Compute(w, c, nil, now)
		assert.False(t, r.Status.Before(prev), "c=%d went from %s to %s", c, prev, r.Status)
		prev = r.Status
	}
	assert.Equal(t, domain.FulfillmentFulfilled, prev)
}

func TestResultChanged(t *testing.T) {
	b := &domain.Bet{FulfillmentStatus: domain.FulfillmentPending}
	assert.False(t, Compute(2, 0, nil, now).Changed(b))
	assert.True(t, Compute(2, 1, nil, now).Changed(b))

	at := now
	b = &domain.Bet{FulfillmentStatus: domain.FulfillmentFulfilled, AllWinnersConfirmedAt: &at}
	assert.False(t, Compute(2, 2, b.AllWinnersConfirmedAt, now.Add(time.Hour)).Changed(b))

	b = &domain.Bet{FulfillmentStatus: domain.FulfillmentFulfilled}
	assert.True(t, Compute(0, 0, nil, now).Changed(b))
}
