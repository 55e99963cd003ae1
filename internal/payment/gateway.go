// Package payment abstracts the external payment processor.  The engine
// only needs to mint an intent for an amount with echo-back metadata and to
// read its status later; everything else about the processor is opaque.
package payment

import (
	"context"
	"errors"
	"time"
)

// Status is the processor-reported state of a payment intent.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// ErrIntentNotFound is returned when an intent id is unknown to the
// processor.
var ErrIntentNotFound = errors.New("payment intent not found")

// Intent is a payment authorization in flight.  Metadata is stored with the
// intent at creation and echoed back verbatim on retrieval; the reconciler
// relies on that echo-back to bind an intent to one specific cart.
type Intent struct {
	ID          string            `json:"id"`
	Status      Status            `json:"status"`
	AmountCents uint32            `json:"amount_cents"`
	Currency    string            `json:"currency"`
	Metadata    map[string]string `json:"metadata"`
	CreatedAt   time.Time         `json:"created_at"`
}

// Gateway is the processor contract.
type Gateway interface {
	CreateIntent(ctx context.Context, amountCents uint32, currency string, metadata map[string]string) (*Intent, error)
	RetrieveIntent(ctx context.Context, id string) (*Intent, error)
}
