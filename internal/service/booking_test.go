package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinebooker/cinebooker/internal/model"
	"github.com/cinebooker/cinebooker/internal/payment"
	"github.com/cinebooker/cinebooker/internal/repository"
)

// memStore is an in-memory Store with the same check-and-set semantics
// as the SQL implementation: a seat only moves from AVAILABLE to LOCKED
// if every requested seat is AVAILABLE under one lock acquisition.
type memStore struct {
	mu          sync.Mutex
	seats       map[uint64]*memSeat
	bookings    map[uint64]*model.Booking
	claims      map[uint64][]uint64 // booking id -> show seat ids
	nextID      uint64
	showIDs     map[uint64]bool
	paymentRefs map[uint64]string
}

type memSeat struct {
	showID      uint64
	status      string
	priceCents  uint32
	lockExpires *time.Time
}

func newMemStore() *memStore {
	return &memStore{
		seats:       make(map[uint64]*memSeat),
		bookings:    make(map[uint64]*model.Booking),
		claims:      make(map[uint64][]uint64),
		showIDs:     map[uint64]bool{1: true},
		nextID:      1,
		paymentRefs: make(map[uint64]string),
	}
}

func (m *memStore) addSeats(showID uint64, priceCents uint32, ids ...uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.showIDs[showID] = true
	for _, id := range ids {
		m.seats[id] = &memSeat{showID: showID, status: model.SeatAvailable, priceCents: priceCents}
	}
}

func (m *memStore) seatStatus(id uint64) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.seats[id].status
}

func (m *memStore) bookingStatus(id uint64) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bookings[id].Status
}

func (m *memStore) ReserveSeats(_ context.Context, userID, showID uint64, seatIDs []uint64, expiresAt time.Time) (*model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.showIDs[showID] {
		return nil, repository.ErrShowNotFound
	}
	var blocked []uint64
	for _, id := range seatIDs {
		seat, ok := m.seats[id]
		if !ok || seat.showID != showID || seat.status != model.SeatAvailable {
			blocked = append(blocked, id)
		}
	}
	if len(blocked) > 0 {
		return nil, &repository.SeatUnavailableError{SeatIDs: blocked}
	}

	var amount uint64
	exp := expiresAt
	for _, id := range seatIDs {
		seat := m.seats[id]
		seat.status = model.SeatLocked
		seat.lockExpires = &exp
		amount += uint64(seat.priceCents)
	}
	b := &model.Booking{
		ID:          m.nextID,
		UserID:      userID,
		ShowID:      showID,
		Status:      model.BookingPending,
		AmountCents: amount,
		SeatCount:   uint32(len(seatIDs)),
		BookedAt:    time.Now().UTC(),
	}
	m.nextID++
	m.bookings[b.ID] = b
	m.claims[b.ID] = append([]uint64(nil), seatIDs...)
	return copyBooking(b), nil
}

func (m *memStore) BookingForUser(_ context.Context, bookingID, userID uint64) (*model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[bookingID]
	if !ok {
		return nil, repository.ErrBookingNotFound
	}
	if b.UserID != userID {
		return nil, repository.ErrForbidden
	}
	return copyBooking(b), nil
}

func (m *memStore) LockExpiry(_ context.Context, bookingID uint64) (*time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var min *time.Time
	for _, id := range m.claims[bookingID] {
		seat := m.seats[id]
		if seat.status != model.SeatLocked || seat.lockExpires == nil {
			continue
		}
		if min == nil || seat.lockExpires.Before(*min) {
			exp := *seat.lockExpires
			min = &exp
		}
	}
	return min, nil
}

func (m *memStore) SetPaymentRef(_ context.Context, bookingID uint64, ref string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[bookingID]
	if !ok {
		return repository.ErrBookingNotFound
	}
	m.paymentRefs[bookingID] = ref
	b.PaymentRef = &ref
	return nil
}

func (m *memStore) ApproveBooking(_ context.Context, bookingID uint64, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[bookingID]
	if !ok {
		return repository.ErrBookingNotFound
	}
	if b.Status != model.BookingPending {
		return repository.ErrInvalidTransition
	}
	for _, id := range m.claims[bookingID] {
		if m.seats[id].status != model.SeatLocked {
			return repository.ErrInvalidTransition
		}
	}
	for _, id := range m.claims[bookingID] {
		m.seats[id].status = model.SeatBooked
		m.seats[id].lockExpires = nil
	}
	b.Status = model.BookingApproved
	b.ConfirmationCode = &code
	return nil
}

func (m *memStore) CancelBooking(_ context.Context, bookingID uint64, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[bookingID]
	if !ok {
		return repository.ErrBookingNotFound
	}
	if b.Status != model.BookingPending {
		return repository.ErrInvalidTransition
	}
	for _, id := range m.claims[bookingID] {
		m.seats[id].status = model.SeatAvailable
		m.seats[id].lockExpires = nil
	}
	b.Status = status
	return nil
}

func (m *memStore) SweepExpired(_ context.Context, now time.Time) (repository.SweepResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	released := make(map[uint64]bool)
	for id, seat := range m.seats {
		if seat.status == model.SeatLocked && seat.lockExpires != nil && seat.lockExpires.Before(now) {
			seat.status = model.SeatAvailable
			seat.lockExpires = nil
			released[id] = true
		}
	}
	var result repository.SweepResult
	result.SeatsReleased = len(released)
	for bookingID, b := range m.bookings {
		if b.Status != model.BookingPending {
			continue
		}
		touched, live := false, false
		for _, id := range m.claims[bookingID] {
			if released[id] {
				touched = true
			}
			if s := m.seats[id].status; s == model.SeatLocked || s == model.SeatBooked {
				live = true
			}
		}
		if touched && !live {
			b.Status = model.BookingCancelled
			result.BookingsCancelled++
		}
	}
	return result, nil
}

func copyBooking(b *model.Booking) *model.Booking {
	c := *b
	return &c
}

func newTestService(store *memStore, gw payment.Gateway, ttl time.Duration) *BookingService {
	return NewBookingService(store, gw, ttl, "EUR", CheckoutURLs{
		SuccessURL: "http://localhost/bookings/%d/confirm",
		CancelURL:  "http://localhost/bookings/%d",
	})
}

func TestReserveRejectsEmptySeatList(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, payment.NewMockGateway(), 10*time.Minute)

	_, err := svc.Reserve(context.Background(), 7, 1, nil)
	assert.ErrorIs(t, err, ErrNoSeats)
}

func TestReserveUnknownShow(t *testing.T) {
	store := newMemStore()
	store.addSeats(1, 1200, 10)
	svc := newTestService(store, payment.NewMockGateway(), 10*time.Minute)

	_, err := svc.Reserve(context.Background(), 7, 99, []uint64{10})
	assert.ErrorIs(t, err, repository.ErrShowNotFound)
}

func TestReserveCapturesAmountAtLockTime(t *testing.T) {
	store := newMemStore()
	store.addSeats(1, 1250, 10, 11, 12)
	svc := newTestService(store, payment.NewMockGateway(), 10*time.Minute)

	booking, err := svc.Reserve(context.Background(), 7, 1, []uint64{10, 11, 12})
	require.NoError(t, err)
	assert.Equal(t, uint64(3750), booking.AmountCents)
	assert.Equal(t, uint32(3), booking.SeatCount)
	assert.Equal(t, model.BookingPending, booking.Status)
	for _, id := range []uint64{10, 11, 12} {
		assert.Equal(t, model.SeatLocked, store.seatStatus(id))
	}
}

func TestReserveDeduplicatesSeatIDs(t *testing.T) {
	store := newMemStore()
	store.addSeats(1, 1000, 10)
	svc := newTestService(store, payment.NewMockGateway(), 10*time.Minute)

	booking, err := svc.Reserve(context.Background(), 7, 1, []uint64{10, 10, 10})
	require.NoError(t, err)
	assert.Equal(t, uint32(1), booking.SeatCount)
	assert.Equal(t, uint64(1000), booking.AmountCents)
}

func TestReserveAllOrNothing(t *testing.T) {
	store := newMemStore()
	store.addSeats(1, 1000, 10, 11, 12)
	svc := newTestService(store, payment.NewMockGateway(), 10*time.Minute)

	_, err := svc.Reserve(context.Background(), 7, 1, []uint64{11})
	require.NoError(t, err)

	// Overlapping request fails entirely; no partial lock on 10 or 12.
	_, err = svc.Reserve(context.Background(), 8, 1, []uint64{10, 11, 12})
	var unavailable *repository.SeatUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, []uint64{11}, unavailable.SeatIDs)
	assert.Equal(t, model.SeatAvailable, store.seatStatus(10))
	assert.Equal(t, model.SeatAvailable, store.seatStatus(12))
}

func TestConcurrentReserveSingleWinner(t *testing.T) {
	store := newMemStore()
	store.addSeats(1, 1000, 10, 11)
	svc := newTestService(store, payment.NewMockGateway(), 10*time.Minute)

	const racers = 16
	var wg sync.WaitGroup
	errs := make([]error, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Reserve(context.Background(), uint64(100+i), 1, []uint64{10, 11})
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
		} else {
			var unavailable *repository.SeatUnavailableError
			assert.ErrorAs(t, err, &unavailable)
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, model.SeatLocked, store.seatStatus(10))
	assert.Equal(t, model.SeatLocked, store.seatStatus(11))
}

func TestConfirmPaymentHappyPathAndIdempotency(t *testing.T) {
	store := newMemStore()
	store.addSeats(1, 1000, 10, 11)
	gw := payment.NewMockGateway()
	svc := newTestService(store, gw, 10*time.Minute)
	ctx := context.Background()

	booking, err := svc.Reserve(ctx, 7, 1, []uint64{10, 11})
	require.NoError(t, err)

	session, err := svc.InitiatePayment(ctx, 7, booking.ID)
	require.NoError(t, err)
	require.NoError(t, gw.MarkPaid(session.ID))

	approved, approvedNow, err := svc.ConfirmPayment(ctx, 7, booking.ID, session.ID)
	require.NoError(t, err)
	assert.True(t, approvedNow)
	assert.Equal(t, model.BookingApproved, approved.Status)
	require.NotNil(t, approved.ConfirmationCode)
	assert.Equal(t, model.SeatBooked, store.seatStatus(10))
	assert.Equal(t, model.SeatBooked, store.seatStatus(11))

	// Page refresh: same outcome, same code, no second approval.
	again, approvedNow, err := svc.ConfirmPayment(ctx, 7, booking.ID, session.ID)
	require.NoError(t, err)
	assert.False(t, approvedNow)
	assert.Equal(t, *approved.ConfirmationCode, *again.ConfirmationCode)
}

func TestConfirmPaymentUnpaidLeavesPending(t *testing.T) {
	store := newMemStore()
	store.addSeats(1, 1000, 10)
	gw := payment.NewMockGateway()
	svc := newTestService(store, gw, 10*time.Minute)
	ctx := context.Background()

	booking, err := svc.Reserve(ctx, 7, 1, []uint64{10})
	require.NoError(t, err)
	session, err := svc.InitiatePayment(ctx, 7, booking.ID)
	require.NoError(t, err)

	_, _, err = svc.ConfirmPayment(ctx, 7, booking.ID, session.ID)
	assert.ErrorIs(t, err, ErrPaymentNotCompleted)
	assert.Equal(t, model.BookingPending, store.bookingStatus(booking.ID))
	assert.Equal(t, model.SeatLocked, store.seatStatus(10))
}

func TestConfirmPaymentBeforeInitiateLeavesPending(t *testing.T) {
	store := newMemStore()
	store.addSeats(1, 1000, 10)
	svc := newTestService(store, payment.NewMockGateway(), 10*time.Minute)
	ctx := context.Background()

	booking, err := svc.Reserve(ctx, 7, 1, []uint64{10})
	require.NoError(t, err)

	// No checkout session exists yet; confirming must not 500 and must
	// not touch the booking.
	_, _, err = svc.ConfirmPayment(ctx, 7, booking.ID, "")
	assert.ErrorIs(t, err, ErrPaymentNotCompleted)
	assert.Equal(t, model.BookingPending, store.bookingStatus(booking.ID))
	assert.Equal(t, model.SeatLocked, store.seatStatus(10))
}

func TestConfirmPaymentUnknownSessionLeavesPending(t *testing.T) {
	store := newMemStore()
	store.addSeats(1, 1000, 10)
	svc := newTestService(store, payment.NewMockGateway(), 10*time.Minute)
	ctx := context.Background()

	booking, err := svc.Reserve(ctx, 7, 1, []uint64{10})
	require.NoError(t, err)

	_, _, err = svc.ConfirmPayment(ctx, 7, booking.ID, "mock_gone")
	assert.ErrorIs(t, err, ErrPaymentNotCompleted)
	assert.Equal(t, model.BookingPending, store.bookingStatus(booking.ID))
}

func TestConfirmPaymentWrongUser(t *testing.T) {
	store := newMemStore()
	store.addSeats(1, 1000, 10)
	svc := newTestService(store, payment.NewMockGateway(), 10*time.Minute)
	ctx := context.Background()

	booking, err := svc.Reserve(ctx, 7, 1, []uint64{10})
	require.NoError(t, err)
	_, _, err = svc.ConfirmPayment(ctx, 8, booking.ID, "whatever")
	assert.ErrorIs(t, err, repository.ErrForbidden)
}

func TestInitiatePaymentExpiredLockCancelsBooking(t *testing.T) {
	store := newMemStore()
	store.addSeats(1, 1000, 10)
	// Negative TTL produces an already-expired lock.
	svc := newTestService(store, payment.NewMockGateway(), -time.Minute)
	ctx := context.Background()

	booking, err := svc.Reserve(ctx, 7, 1, []uint64{10})
	require.NoError(t, err)

	_, err = svc.InitiatePayment(ctx, 7, booking.ID)
	assert.ErrorIs(t, err, ErrSessionExpired)
	assert.Equal(t, model.BookingCancelled, store.bookingStatus(booking.ID))
	assert.Equal(t, model.SeatAvailable, store.seatStatus(10))
}

func TestCancelReleasesSeatsImmediately(t *testing.T) {
	store := newMemStore()
	store.addSeats(1, 1000, 10, 11)
	svc := newTestService(store, payment.NewMockGateway(), 10*time.Minute)
	ctx := context.Background()

	booking, err := svc.Reserve(ctx, 7, 1, []uint64{10, 11})
	require.NoError(t, err)
	require.NoError(t, svc.Cancel(ctx, 7, booking.ID))

	assert.Equal(t, model.BookingCancelled, store.bookingStatus(booking.ID))
	assert.Equal(t, model.SeatAvailable, store.seatStatus(10))
	assert.Equal(t, model.SeatAvailable, store.seatStatus(11))

	// Terminal bookings reject another cancel.
	assert.ErrorIs(t, svc.Cancel(ctx, 7, booking.ID), repository.ErrInvalidTransition)

	// Freed seats are immediately lockable by someone else.
	_, err = svc.Reserve(ctx, 8, 1, []uint64{10, 11})
	assert.NoError(t, err)
}

func TestSweepReclaimsExpiredLocks(t *testing.T) {
	store := newMemStore()
	store.addSeats(1, 1000, 10, 11)
	svc := newTestService(store, payment.NewMockGateway(), 10*time.Minute)
	ctx := context.Background()

	booking, err := svc.Reserve(ctx, 7, 1, []uint64{10, 11})
	require.NoError(t, err)

	// Before expiry the sweep leaves everything alone.
	result, err := svc.Sweep(ctx, time.Now().UTC())
	require.NoError(t, err)
	assert.Zero(t, result.SeatsReleased)

	after := time.Now().UTC().Add(11 * time.Minute)
	result, err = svc.Sweep(ctx, after)
	require.NoError(t, err)
	assert.Equal(t, 2, result.SeatsReleased)
	assert.Equal(t, 1, result.BookingsCancelled)
	assert.Equal(t, model.BookingCancelled, store.bookingStatus(booking.ID))

	// Idempotent: a second pass finds nothing.
	result, err = svc.Sweep(ctx, after)
	require.NoError(t, err)
	assert.Zero(t, result.SeatsReleased)
	assert.Zero(t, result.BookingsCancelled)

	// The reclaimed seat can be locked by a new customer.
	_, err = svc.Reserve(ctx, 8, 1, []uint64{10})
	assert.NoError(t, err)
}

func TestConfirmAfterReapReportsExpiredSession(t *testing.T) {
	store := newMemStore()
	store.addSeats(1, 1000, 10)
	gw := payment.NewMockGateway()
	svc := newTestService(store, gw, 10*time.Minute)
	ctx := context.Background()

	booking, err := svc.Reserve(ctx, 7, 1, []uint64{10})
	require.NoError(t, err)
	session, err := svc.InitiatePayment(ctx, 7, booking.ID)
	require.NoError(t, err)
	require.NoError(t, gw.MarkPaid(session.ID))

	// Reaper beats the confirmation.
	_, err = svc.Sweep(ctx, time.Now().UTC().Add(11*time.Minute))
	require.NoError(t, err)

	_, _, err = svc.ConfirmPayment(ctx, 7, booking.ID, session.ID)
	assert.ErrorIs(t, err, repository.ErrInvalidTransition)
}

func TestSweepDoesNotTouchBookedSeats(t *testing.T) {
	store := newMemStore()
	store.addSeats(1, 1000, 10)
	gw := payment.NewMockGateway()
	svc := newTestService(store, gw, 10*time.Minute)
	ctx := context.Background()

	booking, err := svc.Reserve(ctx, 7, 1, []uint64{10})
	require.NoError(t, err)
	session, err := svc.InitiatePayment(ctx, 7, booking.ID)
	require.NoError(t, err)
	require.NoError(t, gw.MarkPaid(session.ID))
	_, _, err = svc.ConfirmPayment(ctx, 7, booking.ID, session.ID)
	require.NoError(t, err)

	result, err := svc.Sweep(ctx, time.Now().UTC().Add(24*time.Hour))
	require.NoError(t, err)
	assert.Zero(t, result.SeatsReleased)
	assert.Equal(t, model.SeatBooked, store.seatStatus(10))
	assert.Equal(t, model.BookingApproved, store.bookingStatus(booking.ID))
}
