package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/tessera-live/ticket-reservation/internal/clock"
	"github.com/tessera-live/ticket-reservation/internal/logger"
	"github.com/tessera-live/ticket-reservation/internal/model"
	"github.com/tessera-live/ticket-reservation/internal/payment"
)

// Metadata keys bound to every payment intent at authorize time.  Confirm
// re-reads them from the processor and refuses to settle a cart they do not
// name, which is what stops a buyer from paying for a cheap cart and
// redeeming the confirmation against an expensive one.
const (
	metaCartID    = "cart_id"
	metaUserID    = "user_id"
	metaEventID   = "event_id"
	metaSeatCount = "seat_count"
)

// PaymentService is the reconciliation adapter between the payment processor
// and the checkout orchestrator.
type PaymentService struct {
	gateway  payment.Gateway
	carts    CartStore
	catalog  Catalog
	checkout *CheckoutService
	clk      clock.Clock
	currency string
}

// NewPaymentService wires a PaymentService.
func NewPaymentService(gateway payment.Gateway, carts CartStore, catalog Catalog, checkout *CheckoutService, clk clock.Clock, currency string) *PaymentService {
	return &PaymentService{gateway: gateway, carts: carts, catalog: catalog, checkout: checkout, clk: clk, currency: currency}
}

// AuthorizeResult is a freshly minted payment intent for a cart.
type AuthorizeResult struct {
	PaymentIntentID string         `json:"payment_intent_id"`
	Status          payment.Status `json:"status"`
	AmountCents     uint32         `json:"amount_cents"`
	Currency        string         `json:"currency"`
}

// Authorize creates a payment intent for the buyer's open cart, binding the
// cart's identity into the intent's metadata.
func (s *PaymentService) Authorize(ctx context.Context, userID, cartID uint64) (*AuthorizeResult, error) {
	cart, seatIDs, total, err := s.loadCart(ctx, userID, cartID)
	if err != nil {
		return nil, err
	}
	meta := map[string]string{
		metaCartID:    strconv.FormatUint(cart.ID, 10),
		metaUserID:    strconv.FormatUint(cart.UserID, 10),
		metaEventID:   strconv.FormatUint(cart.EventID, 10),
		metaSeatCount: strconv.Itoa(len(seatIDs)),
	}
	in, err := s.gateway.CreateIntent(ctx, total, s.currency, meta)
	if err != nil {
		return nil, err
	}
	logger.Get().Infow("payment intent created",
		"payment_intent_id", in.ID, "cart_id", cart.ID, "amount_cents", total)
	return &AuthorizeResult{PaymentIntentID: in.ID, Status: in.Status, AmountCents: in.AmountCents, Currency: in.Currency}, nil
}

// Confirm settles a cart against a succeeded payment intent.  The intent's
// metadata must name exactly this cart, buyer, event and seat count; any
// mismatch is treated as attempted cart substitution and rejected with
// ErrForbidden.  On success the checkout orchestrator runs as usual.
func (s *PaymentService) Confirm(ctx context.Context, userID, cartID uint64, intentID string) (*CheckoutResult, error) {
	in, err := s.gateway.RetrieveIntent(ctx, intentID)
	if err != nil {
		if errors.Is(err, payment.ErrIntentNotFound) {
			return nil, fmt.Errorf("%w: payment intent %s", ErrNotFound, intentID)
		}
		return nil, err
	}
	switch in.Status {
	case payment.StatusSucceeded:
	case payment.StatusPending:
		return nil, fmt.Errorf("%w: payment intent %s is still pending", ErrConflict, intentID)
	default:
		return nil, fmt.Errorf("%w: payment intent %s failed", ErrConflict, intentID)
	}

	cart, seatIDs, _, err := s.loadCart(ctx, userID, cartID)
	if err != nil {
		return nil, err
	}
	if err := s.verifyBinding(in, cart, len(seatIDs)); err != nil {
		return nil, err
	}
	return s.checkout.Checkout(ctx, userID, cartID)
}

// verifyBinding checks the intent's echo-backed metadata against the cart
// being settled.
func (s *PaymentService) verifyBinding(in *payment.Intent, cart *model.Cart, seatCount int) error {
	want := map[string]string{
		metaCartID:    strconv.FormatUint(cart.ID, 10),
		metaUserID:    strconv.FormatUint(cart.UserID, 10),
		metaEventID:   strconv.FormatUint(cart.EventID, 10),
		metaSeatCount: strconv.Itoa(seatCount),
	}
	for key, expect := range want {
		if got := in.Metadata[key]; got != expect {
			logger.Get().Warnw("payment metadata mismatch",
				"payment_intent_id", in.ID, "key", key, "want", expect, "got", got)
			return fmt.Errorf("%w: payment intent %s is not bound to cart %d", ErrForbidden, in.ID, cart.ID)
		}
	}
	return nil
}

// loadCart fetches the buyer's cart, enforcing ownership and liveness, and
// totals its seats at current prices.
func (s *PaymentService) loadCart(ctx context.Context, userID, cartID uint64) (*model.Cart, []uint64, uint32, error) {
	cart, err := s.carts.GetByID(ctx, cartID)
	if err != nil {
		return nil, nil, 0, err
	}
	if cart == nil || cart.UserID != userID {
		return nil, nil, 0, fmt.Errorf("%w: cart %d", ErrNotFound, cartID)
	}
	switch cart.Status {
	case model.CartConverted:
		return nil, nil, 0, fmt.Errorf("%w: cart %d already converted", ErrAlreadyProcessed, cartID)
	case model.CartExpired:
		return nil, nil, 0, fmt.Errorf("%w: cart %d expired", ErrGone, cartID)
	}
	if cart.Expired(s.clk.Now()) {
		return nil, nil, 0, fmt.Errorf("%w: cart %d expired", ErrGone, cartID)
	}
	seatIDs, err := s.carts.SeatIDs(ctx, cart.ID)
	if err != nil {
		return nil, nil, 0, err
	}
	if len(seatIDs) == 0 {
		return nil, nil, 0, fmt.Errorf("%w: cart %d has no seats", ErrConflict, cartID)
	}
	ev, err := s.catalog.GetEvent(ctx, cart.EventID)
	if err != nil {
		return nil, nil, 0, err
	}
	priced, err := s.catalog.PricedSeats(ctx, cart.EventID, ev.VenueID, seatIDs)
	if err != nil {
		return nil, nil, 0, err
	}
	var total uint32
	for _, id := range seatIDs {
		total += priced[id].PriceCents
	}
	return cart, seatIDs, total, nil
}
