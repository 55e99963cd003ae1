package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tessera-live/ticket-reservation/internal/model"
)

func TestSweepIgnoresLiveHolds(t *testing.T) {
	store, clk, holds := newHoldFixture()
	sweeper := NewSweepService(store, store, clk, 100)
	ctx := context.Background()

	res, err := holds.Reserve(ctx, 100, 1, ReserveRequest{SeatIDs: []uint64{1}})
	require.NoError(t, err)

	swept, err := sweeper.SweepOnce(ctx)
	require.NoError(t, err)
	require.Zero(t, swept.SeatsReleased)
	require.Zero(t, swept.CartsExpired)
	require.Equal(t, model.SeatHeld, store.seatState(1, 1))
	require.Equal(t, model.CartOpen, store.cartStatus(res.CartID))
}

func TestSweepReleasesOnlyLapsedCarts(t *testing.T) {
	store, clk, holds := newHoldFixture()
	sweeper := NewSweepService(store, store, clk, 100)
	ctx := context.Background()

	stale, err := holds.Reserve(ctx, 100, 1, ReserveRequest{SeatIDs: []uint64{1, 2}})
	require.NoError(t, err)

	// A second buyer reserves later; their hold is still live at sweep time.
	clk.Advance(8 * time.Minute)
	fresh, err := holds.Reserve(ctx, 200, 1, ReserveRequest{SeatIDs: []uint64{3}})
	require.NoError(t, err)

	clk.Advance(3 * time.Minute)
	swept, err := sweeper.SweepOnce(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, swept.SeatsReleased)
	require.Equal(t, 1, swept.CartsExpired)

	require.Equal(t, model.SeatAvailable, store.seatState(1, 1))
	require.Equal(t, model.SeatAvailable, store.seatState(1, 2))
	require.Equal(t, model.CartExpired, store.cartStatus(stale.CartID))
	require.Empty(t, store.cartSeats[stale.CartID])

	require.Equal(t, model.SeatHeld, store.seatState(1, 3))
	require.Equal(t, model.CartOpen, store.cartStatus(fresh.CartID))
}

func TestSweepBatchLimitStillClearsWholeCart(t *testing.T) {
	store, clk, holds := newHoldFixture()
	// Batch of one lists a single expired hold, but the cart's remaining
	// holds share the same deadline and are reclaimed with it.
	sweeper := NewSweepService(store, store, clk, 1)
	ctx := context.Background()

	res, err := holds.Reserve(ctx, 100, 1, ReserveRequest{SeatIDs: []uint64{1, 2, 3}})
	require.NoError(t, err)

	clk.Advance(11 * time.Minute)
	swept, err := sweeper.SweepOnce(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, swept.SeatsReleased)
	require.Equal(t, 1, swept.CartsExpired)
	require.Equal(t, model.CartExpired, store.cartStatus(res.CartID))
	for _, id := range []uint64{1, 2, 3} {
		require.Equal(t, model.SeatAvailable, store.seatState(1, id))
	}
}

func TestSweepIsIdempotent(t *testing.T) {
	store, clk, holds := newHoldFixture()
	sweeper := NewSweepService(store, store, clk, 100)
	ctx := context.Background()

	_, err := holds.Reserve(ctx, 100, 1, ReserveRequest{SeatIDs: []uint64{1}})
	require.NoError(t, err)
	clk.Advance(11 * time.Minute)

	first, err := sweeper.SweepOnce(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, first.SeatsReleased)

	second, err := sweeper.SweepOnce(ctx)
	require.NoError(t, err)
	require.Zero(t, second.SeatsReleased)
	require.Zero(t, second.CartsExpired)
	require.Equal(t, model.SeatAvailable, store.seatState(1, 1))
}
