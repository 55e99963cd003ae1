package service

import (
	"context"
	"sort"
	"time"

	"github.com/tessera-live/ticket-reservation/internal/clock"
	"github.com/tessera-live/ticket-reservation/internal/logger"
	"github.com/tessera-live/ticket-reservation/internal/model"
)

// SweepService reclaims holds that outlived their deadline.  It is safe to
// run concurrently with itself and with reserve/checkout traffic: every
// release is a compare-and-set against the row's current expiry, so a hold
// renewed or converted after being listed is left alone.
type SweepService struct {
	ledger SeatLedger
	carts  CartStore
	clk    clock.Clock
	batch  int
}

// NewSweepService wires a SweepService.  batch caps the expired holds
// examined per pass.
func NewSweepService(ledger SeatLedger, carts CartStore, clk clock.Clock, batch int) *SweepService {
	return &SweepService{ledger: ledger, carts: carts, clk: clk, batch: batch}
}

// SweepResult reports one pass of the sweeper.
type SweepResult struct {
	SeatsReleased int `json:"seats_released"`
	CartsExpired  int `json:"carts_expired"`
}

// SweepOnce releases every expired hold it can find, up to the batch limit,
// and expires the carts whose holds were reclaimed.
func (s *SweepService) SweepOnce(ctx context.Context) (SweepResult, error) {
	now := s.clk.Now()
	candidates, err := s.ledger.ExpiredHolds(ctx, now, s.batch)
	if err != nil {
		return SweepResult{}, err
	}
	if len(candidates) == 0 {
		return SweepResult{}, nil
	}

	byCart := make(map[uint64][]model.SeatStatus)
	for _, st := range candidates {
		if st.HeldByCartID == nil {
			continue
		}
		byCart[*st.HeldByCartID] = append(byCart[*st.HeldByCartID], st)
	}
	cartIDs := make([]uint64, 0, len(byCart))
	for id := range byCart {
		cartIDs = append(cartIDs, id)
	}
	sort.Slice(cartIDs, func(i, j int) bool { return cartIDs[i] < cartIDs[j] })

	var result SweepResult
	for _, cartID := range cartIDs {
		released, expired, err := s.sweepCart(ctx, cartID, byCart[cartID], now)
		if err != nil {
			return result, err
		}
		result.SeatsReleased += released
		if expired {
			result.CartsExpired++
		}
	}
	if result.SeatsReleased > 0 || result.CartsExpired > 0 {
		logger.Get().Infow("sweep completed",
			"seats_released", result.SeatsReleased, "carts_expired", result.CartsExpired)
	}
	return result, nil
}

// sweepCart reclaims one cart's expired holds in a single transaction, so
// the cart's membership and the ledger never disagree at a commit boundary.
// The cart row lock serializes with reserve and checkout on the same cart.
func (s *SweepService) sweepCart(ctx context.Context, cartID uint64, holds []model.SeatStatus, now time.Time) (released int, expired bool, err error) {
	err = s.ledger.WithTx(ctx, func(ctx context.Context) error {
		cart, err := s.carts.GetByIDForUpdate(ctx, cartID)
		if err != nil {
			return err
		}
		for _, h := range holds {
			ok, err := s.ledger.ReleaseExpired(ctx, h.EventID, h.SeatID, cartID, now)
			if err != nil {
				return err
			}
			if ok {
				released++
			}
		}
		if cart == nil || cart.Status != model.CartOpen || released == 0 {
			return nil
		}
		// The batch limit may have listed only some of the cart's holds;
		// they all share one expiry, so reclaim the rest now.
		members, err := s.carts.SeatIDs(ctx, cartID)
		if err != nil {
			return err
		}
		swept := make(map[uint64]bool, len(holds))
		for _, h := range holds {
			swept[h.SeatID] = true
		}
		for _, id := range members {
			if swept[id] {
				continue
			}
			ok, err := s.ledger.ReleaseExpired(ctx, cart.EventID, id, cartID, now)
			if err != nil {
				return err
			}
			if ok {
				released++
			}
		}
		if _, err := s.carts.MarkExpired(ctx, cartID); err != nil {
			return err
		}
		if err := s.carts.ClearSeats(ctx, cartID); err != nil {
			return err
		}
		expired = true
		return nil
	})
	if err != nil {
		return 0, false, err
	}
	return released, expired, nil
}
