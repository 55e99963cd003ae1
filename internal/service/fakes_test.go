package service

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/tessera-live/ticket-reservation/internal/model"
	"github.com/tessera-live/ticket-reservation/internal/repository"
)

// fakeClock is a mutable clock for driving expiry in tests.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock(t time.Time) *fakeClock { return &fakeClock{t: t.UTC()} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type seatKey struct {
	eventID uint64
	seatID  uint64
}

type sectionPrice struct {
	cents uint32
	tier  string
}

// fakeStore is an in-memory backing store implementing SeatLedger,
// CartStore, Catalog and OrderStore.  WithTx takes the store lock for the
// whole callback and restores a snapshot when the callback errors, so the
// all-or-nothing guarantees behave the way a real transaction would.
type fakeStore struct {
	mu sync.Mutex

	events  map[uint64]model.Event
	seats   map[uint64]model.Seat
	pricing map[uint64]map[string]sectionPrice // eventID -> section -> price

	ledger    map[seatKey]model.SeatStatus
	carts     map[uint64]model.Cart
	cartSeats map[uint64]map[uint64]bool

	orders  map[uint64]model.Order
	items   map[uint64]model.OrderItem
	tickets map[uint64]model.Ticket

	nextCartID   uint64
	nextOrderID  uint64
	nextItemID   uint64
	nextTicketID uint64
}

func newFakeStore() *fakeStore {
	s := &fakeStore{
		events:    make(map[uint64]model.Event),
		seats:     make(map[uint64]model.Seat),
		pricing:   make(map[uint64]map[string]sectionPrice),
		ledger:    make(map[seatKey]model.SeatStatus),
		carts:     make(map[uint64]model.Cart),
		cartSeats: make(map[uint64]map[uint64]bool),
		orders:    make(map[uint64]model.Order),
		items:     make(map[uint64]model.OrderItem),
		tickets:   make(map[uint64]model.Ticket),
	}
	// One venue, one event: VIP seats 1-4 in row A, GA seats 5-8 in row B.
	s.events[1] = model.Event{ID: 1, VenueID: 1, Name: "Autumn Gala", StartsAt: time.Date(2026, 12, 1, 20, 0, 0, 0, time.UTC), Status: model.EventOnSale}
	for i := uint64(1); i <= 4; i++ {
		s.seats[i] = model.Seat{ID: i, VenueID: 1, RowLabel: "A", SeatNumber: strconv.FormatUint(i, 10), ColIndex: uint32(i - 1), Section: "VIP"}
	}
	for i := uint64(5); i <= 8; i++ {
		s.seats[i] = model.Seat{ID: i, VenueID: 1, RowLabel: "B", SeatNumber: strconv.FormatUint(i-4, 10), ColIndex: uint32(i - 5), Section: "GA"}
	}
	s.pricing[1] = map[string]sectionPrice{
		"VIP": {cents: 5000, tier: "VIP Tier"},
		"GA":  {cents: 2000, tier: "General"},
	}
	return s
}

type snapshot struct {
	ledger       map[seatKey]model.SeatStatus
	carts        map[uint64]model.Cart
	cartSeats    map[uint64]map[uint64]bool
	orders       map[uint64]model.Order
	items        map[uint64]model.OrderItem
	tickets      map[uint64]model.Ticket
	nextCartID   uint64
	nextOrderID  uint64
	nextItemID   uint64
	nextTicketID uint64
}

func (s *fakeStore) snapshot() snapshot {
	snap := snapshot{
		ledger:       make(map[seatKey]model.SeatStatus, len(s.ledger)),
		carts:        make(map[uint64]model.Cart, len(s.carts)),
		cartSeats:    make(map[uint64]map[uint64]bool, len(s.cartSeats)),
		orders:       make(map[uint64]model.Order, len(s.orders)),
		items:        make(map[uint64]model.OrderItem, len(s.items)),
		tickets:      make(map[uint64]model.Ticket, len(s.tickets)),
		nextCartID:   s.nextCartID,
		nextOrderID:  s.nextOrderID,
		nextItemID:   s.nextItemID,
		nextTicketID: s.nextTicketID,
	}
	for k, v := range s.ledger {
		snap.ledger[k] = v
	}
	for k, v := range s.carts {
		snap.carts[k] = v
	}
	for k, v := range s.cartSeats {
		m := make(map[uint64]bool, len(v))
		for id := range v {
			m[id] = true
		}
		snap.cartSeats[k] = m
	}
	for k, v := range s.orders {
		snap.orders[k] = v
	}
	for k, v := range s.items {
		snap.items[k] = v
	}
	for k, v := range s.tickets {
		snap.tickets[k] = v
	}
	return snap
}

func (s *fakeStore) restore(snap snapshot) {
	s.ledger = snap.ledger
	s.carts = snap.carts
	s.cartSeats = snap.cartSeats
	s.orders = snap.orders
	s.items = snap.items
	s.tickets = snap.tickets
	s.nextCartID = snap.nextCartID
	s.nextOrderID = snap.nextOrderID
	s.nextItemID = snap.nextItemID
	s.nextTicketID = snap.nextTicketID
}

type fakeTxKey struct{}

// WithTx serializes the callback against all other transactions and rolls
// every mutation back when it fails.
func (s *fakeStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(fakeTxKey{}) != nil {
		return fn(ctx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.snapshot()
	if err := fn(context.WithValue(ctx, fakeTxKey{}, true)); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}


// lock takes the store mutex for a standalone call.  Calls made inside
// WithTx already hold it and get a no-op unlock.
func (s *fakeStore) lock(ctx context.Context) func() {
	if ctx.Value(fakeTxKey{}) != nil {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// --- Catalog ---

func (s *fakeStore) GetEvent(ctx context.Context, eventID uint64) (*model.Event, error) {
	defer s.lock(ctx)()
	ev, ok := s.events[eventID]
	if !ok {
		return nil, repository.ErrEventNotFound
	}
	cp := ev
	return &cp, nil
}

func (s *fakeStore) PricedSeats(ctx context.Context, eventID, venueID uint64, seatIDs []uint64) (map[uint64]model.PricedSeat, error) {
	defer s.lock(ctx)()
	out := make(map[uint64]model.PricedSeat, len(seatIDs))
	prices := s.pricing[eventID]
	for _, id := range seatIDs {
		seat, ok := s.seats[id]
		if !ok || seat.VenueID != venueID {
			continue
		}
		price, ok := prices[seat.Section]
		if !ok {
			continue
		}
		out[id] = model.PricedSeat{
			SeatID: id, RowLabel: seat.RowLabel, SeatNumber: seat.SeatNumber,
			Section: seat.Section, PriceCents: price.cents, TierName: price.tier,
		}
	}
	return out, nil
}

// --- SeatLedger ---

func (s *fakeStore) GetStatus(ctx context.Context, eventID, seatID uint64) (model.SeatStatus, error) {
	defer s.lock(ctx)()
	if st, ok := s.ledger[seatKey{eventID, seatID}]; ok {
		return st, nil
	}
	return model.SeatStatus{EventID: eventID, SeatID: seatID, State: model.SeatAvailable}, nil
}

func (s *fakeStore) Statuses(ctx context.Context, eventID uint64, seatIDs []uint64) (map[uint64]model.SeatStatus, error) {
	defer s.lock(ctx)()
	out := make(map[uint64]model.SeatStatus)
	for _, id := range seatIDs {
		if st, ok := s.ledger[seatKey{eventID, id}]; ok {
			out[id] = st
		}
	}
	return out, nil
}

func (s *fakeStore) Hold(ctx context.Context, eventID, seatID, cartID uint64, expiresAt time.Time) (bool, error) {
	defer s.lock(ctx)()
	key := seatKey{eventID, seatID}
	st, ok := s.ledger[key]
	if ok && st.State != model.SeatAvailable {
		if st.State != model.SeatHeld || st.HeldByCartID == nil || *st.HeldByCartID != cartID {
			return false, nil
		}
	}
	holder := cartID
	exp := expiresAt.UTC()
	s.ledger[key] = model.SeatStatus{EventID: eventID, SeatID: seatID, State: model.SeatHeld, HeldByCartID: &holder, HoldExpiresAt: &exp}
	return true, nil
}

func (s *fakeStore) Release(ctx context.Context, eventID, seatID, cartID uint64) (bool, error) {
	defer s.lock(ctx)()
	key := seatKey{eventID, seatID}
	st, ok := s.ledger[key]
	if !ok || st.State != model.SeatHeld || st.HeldByCartID == nil || *st.HeldByCartID != cartID {
		return false, nil
	}
	s.ledger[key] = model.SeatStatus{EventID: eventID, SeatID: seatID, State: model.SeatAvailable}
	return true, nil
}

func (s *fakeStore) ReleaseExpired(ctx context.Context, eventID, seatID, cartID uint64, now time.Time) (bool, error) {
	defer s.lock(ctx)()
	key := seatKey{eventID, seatID}
	st, ok := s.ledger[key]
	if !ok || st.State != model.SeatHeld || st.HeldByCartID == nil || *st.HeldByCartID != cartID {
		return false, nil
	}
	if st.HoldExpiresAt == nil || st.HoldExpiresAt.After(now) {
		return false, nil
	}
	s.ledger[key] = model.SeatStatus{EventID: eventID, SeatID: seatID, State: model.SeatAvailable}
	return true, nil
}

func (s *fakeStore) MarkSold(ctx context.Context, eventID, seatID, cartID uint64) (bool, error) {
	defer s.lock(ctx)()
	key := seatKey{eventID, seatID}
	st, ok := s.ledger[key]
	if !ok || st.State != model.SeatHeld || st.HeldByCartID == nil || *st.HeldByCartID != cartID {
		return false, nil
	}
	s.ledger[key] = model.SeatStatus{EventID: eventID, SeatID: seatID, State: model.SeatSold}
	return true, nil
}

func (s *fakeStore) MarkAvailable(ctx context.Context, eventID, seatID uint64) error {
	defer s.lock(ctx)()
	key := seatKey{eventID, seatID}
	if st, ok := s.ledger[key]; ok && st.State == model.SeatSold {
		s.ledger[key] = model.SeatStatus{EventID: eventID, SeatID: seatID, State: model.SeatAvailable}
	}
	return nil
}

func (s *fakeStore) AvailableInSection(ctx context.Context, eventID, venueID uint64, section string, limit int) ([]uint64, error) {
	defer s.lock(ctx)()
	var ids []uint64
	for id, seat := range s.seats {
		if seat.VenueID != venueID || seat.Section != section {
			continue
		}
		st, ok := s.ledger[seatKey{eventID, id}]
		if ok && st.State != model.SeatAvailable {
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (s *fakeStore) ExpiredHolds(ctx context.Context, now time.Time, limit int) ([]model.SeatStatus, error) {
	defer s.lock(ctx)()
	var out []model.SeatStatus
	for _, st := range s.ledger {
		if st.State == model.SeatHeld && st.HoldExpiresAt != nil && !st.HoldExpiresAt.After(now) {
			out = append(out, st)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SeatID < out[j].SeatID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *fakeStore) SectionSummary(ctx context.Context, eventID, venueID uint64) ([]model.SectionSummary, error) {
	defer s.lock(ctx)()
	bySection := make(map[string]*model.SectionSummary)
	for id, seat := range s.seats {
		if seat.VenueID != venueID {
			continue
		}
		sum, ok := bySection[seat.Section]
		if !ok {
			price := s.pricing[eventID][seat.Section]
			sum = &model.SectionSummary{Section: seat.Section, PriceCents: price.cents, TierName: price.tier}
			bySection[seat.Section] = sum
		}
		sum.Total++
		st, ok := s.ledger[seatKey{eventID, id}]
		switch {
		case !ok || st.State == model.SeatAvailable:
			sum.Available++
		case st.State == model.SeatHeld:
			sum.Held++
		default:
			sum.Sold++
		}
	}
	names := make([]string, 0, len(bySection))
	for name := range bySection {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]model.SectionSummary, 0, len(names))
	for _, name := range names {
		out = append(out, *bySection[name])
	}
	return out, nil
}

func (s *fakeStore) SeatMap(ctx context.Context, eventID, venueID uint64) ([]model.SeatAvailability, error) {
	defer s.lock(ctx)()
	var out []model.SeatAvailability
	for id, seat := range s.seats {
		if seat.VenueID != venueID {
			continue
		}
		state := model.SeatAvailable
		if st, ok := s.ledger[seatKey{eventID, id}]; ok {
			state = st.State
		}
		out = append(out, model.SeatAvailability{
			SeatID: id, RowLabel: seat.RowLabel, SeatNumber: seat.SeatNumber,
			ColIndex: seat.ColIndex, Section: seat.Section, State: state,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RowLabel != out[j].RowLabel {
			return out[i].RowLabel < out[j].RowLabel
		}
		return out[i].ColIndex < out[j].ColIndex
	})
	return out, nil
}

// --- CartStore ---

func (s *fakeStore) OpenCart(ctx context.Context, userID, eventID uint64) (*model.Cart, error) {
	defer s.lock(ctx)()
	for _, c := range s.carts {
		if c.UserID == userID && c.EventID == eventID && c.Status == model.CartOpen {
			cp := c
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) GetByID(ctx context.Context, cartID uint64) (*model.Cart, error) {
	defer s.lock(ctx)()
	c, ok := s.carts[cartID]
	if !ok {
		return nil, nil
	}
	cp := c
	return &cp, nil
}

func (s *fakeStore) GetByIDForUpdate(ctx context.Context, cartID uint64) (*model.Cart, error) {
	return s.GetByID(ctx, cartID)
}

func (s *fakeStore) Create(ctx context.Context, c *model.Cart) error {
	defer s.lock(ctx)()
	// Mirrors the uq_carts_open unique key.
	for _, existing := range s.carts {
		if existing.UserID == c.UserID && existing.EventID == c.EventID && existing.Status == model.CartOpen {
			return repository.ErrCartExists
		}
	}
	s.nextCartID++
	c.ID = s.nextCartID
	c.Status = model.CartOpen
	s.carts[c.ID] = *c
	s.cartSeats[c.ID] = make(map[uint64]bool)
	return nil
}

func (s *fakeStore) SetExpiry(ctx context.Context, cartID uint64, expiresAt time.Time) error {
	defer s.lock(ctx)()
	if c, ok := s.carts[cartID]; ok && c.Status == model.CartOpen {
		c.ExpiresAt = expiresAt.UTC()
		s.carts[cartID] = c
	}
	return nil
}

func (s *fakeStore) MarkExpired(ctx context.Context, cartID uint64) (bool, error) {
	defer s.lock(ctx)()
	c, ok := s.carts[cartID]
	if !ok || c.Status != model.CartOpen {
		return false, nil
	}
	c.Status = model.CartExpired
	s.carts[cartID] = c
	return true, nil
}

func (s *fakeStore) MarkConverted(ctx context.Context, cartID uint64) (bool, error) {
	defer s.lock(ctx)()
	c, ok := s.carts[cartID]
	if !ok || c.Status != model.CartOpen {
		return false, nil
	}
	c.Status = model.CartConverted
	s.carts[cartID] = c
	return true, nil
}

func (s *fakeStore) AddSeats(ctx context.Context, cartID uint64, seatIDs []uint64) error {
	defer s.lock(ctx)()
	m, ok := s.cartSeats[cartID]
	if !ok {
		m = make(map[uint64]bool)
		s.cartSeats[cartID] = m
	}
	for _, id := range seatIDs {
		m[id] = true
	}
	return nil
}

func (s *fakeStore) RemoveSeat(ctx context.Context, cartID, seatID uint64) error {
	defer s.lock(ctx)()
	delete(s.cartSeats[cartID], seatID)
	return nil
}

func (s *fakeStore) ClearSeats(ctx context.Context, cartID uint64) error {
	defer s.lock(ctx)()
	s.cartSeats[cartID] = make(map[uint64]bool)
	return nil
}

func (s *fakeStore) SeatIDs(ctx context.Context, cartID uint64) ([]uint64, error) {
	defer s.lock(ctx)()
	ids := make([]uint64, 0, len(s.cartSeats[cartID]))
	for id := range s.cartSeats[cartID] {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (s *fakeStore) ListOpenByUser(ctx context.Context, userID uint64) ([]model.Cart, error) {
	defer s.lock(ctx)()
	var out []model.Cart
	for _, c := range s.carts {
		if c.UserID == userID && c.Status == model.CartOpen {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// --- OrderStore ---

func (s *fakeStore) CreateOrder(ctx context.Context, o *model.Order) error {
	defer s.lock(ctx)()
	s.nextOrderID++
	o.ID = s.nextOrderID
	s.orders[o.ID] = *o
	return nil
}

func (s *fakeStore) AddItem(ctx context.Context, it *model.OrderItem) error {
	defer s.lock(ctx)()
	s.nextItemID++
	it.ID = s.nextItemID
	s.items[it.ID] = *it
	return nil
}

func (s *fakeStore) AddTicket(ctx context.Context, t *model.Ticket) error {
	defer s.lock(ctx)()
	s.nextTicketID++
	t.ID = s.nextTicketID
	s.tickets[t.ID] = *t
	return nil
}

func (s *fakeStore) ListByUser(ctx context.Context, userID uint64) ([]model.OrderDetail, error) {
	defer s.lock(ctx)()
	var out []model.OrderDetail
	for _, o := range s.orders {
		if o.UserID != userID {
			continue
		}
		od := model.OrderDetail{
			OrderID: o.ID, EventID: o.EventID, EventName: s.events[o.EventID].Name,
			Status: o.Status, TotalCents: o.TotalCents, CreatedAt: o.CreatedAt,
			Lines: []model.OrderLine{},
		}
		for _, it := range s.items {
			if it.OrderID != o.ID {
				continue
			}
			seat := s.seats[it.SeatID]
			line := model.OrderLine{
				SeatID: it.SeatID, RowLabel: seat.RowLabel, SeatNumber: seat.SeatNumber,
				Section: seat.Section, UnitPriceCents: it.UnitPriceCents,
			}
			for _, t := range s.tickets {
				if t.OrderItemID == it.ID {
					line.TicketID = t.ID
					line.Barcode = t.Barcode
					line.TicketStatus = t.Status
				}
			}
			od.Lines = append(od.Lines, line)
		}
		sort.Slice(od.Lines, func(i, j int) bool { return od.Lines[i].SeatID < od.Lines[j].SeatID })
		out = append(out, od)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderID > out[j].OrderID })
	return out, nil
}

func (s *fakeStore) ticketDetail(ticketID uint64) (*model.TicketDetail, bool) {
	t, ok := s.tickets[ticketID]
	if !ok {
		return nil, false
	}
	it := s.items[t.OrderItemID]
	o := s.orders[it.OrderID]
	seat := s.seats[it.SeatID]
	return &model.TicketDetail{
		TicketID: t.ID, Barcode: t.Barcode, Status: t.Status,
		OrderID: o.ID, UserID: o.UserID, EventID: o.EventID, EventName: s.events[o.EventID].Name,
		SeatID: seat.ID, RowLabel: seat.RowLabel, SeatNumber: seat.SeatNumber, Section: seat.Section,
	}, true
}

func (s *fakeStore) GetTicketForUser(ctx context.Context, ticketID, userID uint64) (*model.TicketDetail, error) {
	defer s.lock(ctx)()
	td, ok := s.ticketDetail(ticketID)
	if !ok || td.UserID != userID {
		return nil, repository.ErrTicketNotFound
	}
	return td, nil
}

func (s *fakeStore) GetTicket(ctx context.Context, ticketID uint64) (*model.TicketDetail, error) {
	defer s.lock(ctx)()
	td, ok := s.ticketDetail(ticketID)
	if !ok {
		return nil, repository.ErrTicketNotFound
	}
	return td, nil
}

func (s *fakeStore) SetTicketStatus(ctx context.Context, ticketID uint64, from, to model.TicketStatus) (bool, error) {
	defer s.lock(ctx)()
	t, ok := s.tickets[ticketID]
	if !ok || t.Status != from {
		return false, nil
	}
	t.Status = to
	s.tickets[ticketID] = t
	return true, nil
}

// orderStore adapts fakeStore to the OrderStore interface; Create would
// otherwise collide with CartStore's Create.
type orderStore struct{ *fakeStore }

func (o orderStore) Create(ctx context.Context, ord *model.Order) error {
	return o.CreateOrder(ctx, ord)
}

// seatState is a test helper reading the current state of one seat.
func (s *fakeStore) seatState(eventID, seatID uint64) model.SeatState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.ledger[seatKey{eventID, seatID}]; ok {
		return st.State
	}
	return model.SeatAvailable
}

func (s *fakeStore) cartStatus(cartID uint64) model.CartStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.carts[cartID].Status
}
