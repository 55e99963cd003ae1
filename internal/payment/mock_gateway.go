package payment

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MockGateway is an in-memory Gateway for development and tests.  With
// autoSucceed set, every intent is minted already succeeded, which lets the
// full reserve→authorize→confirm flow run without a real processor.
type MockGateway struct {
	mu          sync.RWMutex
	intents     map[string]*Intent
	autoSucceed bool
}

// NewMockGateway returns an empty MockGateway.
func NewMockGateway(autoSucceed bool) *MockGateway {
	return &MockGateway{intents: make(map[string]*Intent), autoSucceed: autoSucceed}
}

// CreateIntent mints a new intent with an opaque id.
func (g *MockGateway) CreateIntent(_ context.Context, amountCents uint32, currency string, metadata map[string]string) (*Intent, error) {
	status := StatusPending
	if g.autoSucceed {
		status = StatusSucceeded
	}
	meta := make(map[string]string, len(metadata))
	for k, v := range metadata {
		meta[k] = v
	}
	in := &Intent{
		ID:          "pi_" + strings.ReplaceAll(uuid.NewString(), "-", ""),
		Status:      status,
		AmountCents: amountCents,
		Currency:    currency,
		Metadata:    meta,
		CreatedAt:   time.Now().UTC(),
	}
	g.mu.Lock()
	g.intents[in.ID] = in
	g.mu.Unlock()
	return in, nil
}

// RetrieveIntent returns a copy of the stored intent.
func (g *MockGateway) RetrieveIntent(_ context.Context, id string) (*Intent, error) {
	g.mu.RLock()
	in, ok := g.intents[id]
	g.mu.RUnlock()
	if !ok {
		return nil, ErrIntentNotFound
	}
	cp := *in
	cp.Metadata = make(map[string]string, len(in.Metadata))
	for k, v := range in.Metadata {
		cp.Metadata[k] = v
	}
	return &cp, nil
}

// SetStatus forces an intent's status.  Test hook.
func (g *MockGateway) SetStatus(id string, status Status) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	in, ok := g.intents[id]
	if !ok {
		return false
	}
	in.Status = status
	return true
}
