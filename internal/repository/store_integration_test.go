package repository

import (
	"context"
	"database/sql"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinebooker/cinebooker/internal/database"
	"github.com/cinebooker/cinebooker/internal/model"
)

// These tests run against a real MySQL with the schema from
// migrations/schema.sql applied:
//
//	INTEGRATION_TEST=1 DB_USER=root DB_HOST=127.0.0.1 DB_PORT=3306 DB_NAME=cinebooker_test go test ./internal/repository/
func skipIfNoIntegration(t *testing.T) {
	t.Helper()
	if os.Getenv("INTEGRATION_TEST") == "" {
		t.Skip("Skipping integration test. Set INTEGRATION_TEST=1 to run.")
	}
}

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(
		os.Getenv("DB_USER"), os.Getenv("DB_PASS"),
		os.Getenv("DB_HOST"), os.Getenv("DB_PORT"), os.Getenv("DB_NAME"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

type fixture struct {
	store     *Store
	showSeats *ShowSeatRepo
	bookings  *BookingRepo
	showID    uint64
	seatIDs   []uint64
}

// newFixture provisions a hall with a 1x3 seat grid and one scheduled
// show, returning the show seat ids ready for reservation.
func newFixture(t *testing.T, db *sql.DB) *fixture {
	t.Helper()
	ctx := context.Background()

	hallRepo := NewHallRepo(db)
	seatRepo := NewSeatRepo(db)
	showRepo := NewShowRepo(db)
	showSeatRepo := NewShowSeatRepo(db)
	bookingRepo := NewBookingRepo(db)
	store := NewStore(db, showRepo, showSeatRepo, bookingRepo)

	hall := &model.Hall{OwnerID: 1, Name: "itest-" + time.Now().Format("150405.000000000"), SeatRows: 1, SeatCols: 3, IsActive: true}
	require.NoError(t, hallRepo.Create(ctx, hall))
	require.NoError(t, seatRepo.CreateGrid(ctx, hall.ID, 1, 3))
	seats, err := seatRepo.GetByHall(ctx, hall.ID)
	require.NoError(t, err)
	require.Len(t, seats, 3)

	physIDs := make([]uint64, len(seats))
	for i, s := range seats {
		physIDs[i] = s.ID
	}
	show := &model.Show{
		HallID:         hall.ID,
		MovieTitle:     "Integration Feature",
		StartsAt:       time.Now().UTC().Add(time.Hour).Truncate(time.Second),
		EndsAt:         time.Now().UTC().Add(3 * time.Hour).Truncate(time.Second),
		BasePriceCents: 1500,
		Status:         model.ShowScheduled,
	}
	require.NoError(t, store.CreateShowWithSeats(ctx, show, physIDs))

	entries, err := showSeatRepo.ListByShow(ctx, show.ID)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	ids := make([]uint64, len(entries))
	for i, e := range entries {
		ids[i] = e.ShowSeatID
	}
	return &fixture{store: store, showSeats: showSeatRepo, bookings: bookingRepo, showID: show.ID, seatIDs: ids}
}

func TestStoreReserveSeatsRace(t *testing.T) {
	skipIfNoIntegration(t)
	db := openTestDB(t)
	f := newFixture(t, db)
	ctx := context.Background()

	expiresAt := time.Now().UTC().Add(10 * time.Minute)
	const racers = 8
	var wg sync.WaitGroup
	errs := make([]error, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.store.ReserveSeats(ctx, uint64(100+i), f.showID, f.seatIDs, expiresAt)
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
		} else {
			var unavailable *SeatUnavailableError
			assert.ErrorAs(t, err, &unavailable)
		}
	}
	assert.Equal(t, 1, wins, "exactly one racer must take all seats")

	entries, err := f.showSeats.ListByShow(ctx, f.showID)
	require.NoError(t, err)
	for _, e := range entries {
		assert.Equal(t, model.SeatLocked, e.Status)
	}
}

func TestStoreApproveThenSweepLeavesBookingAlone(t *testing.T) {
	skipIfNoIntegration(t)
	db := openTestDB(t)
	f := newFixture(t, db)
	ctx := context.Background()

	booking, err := f.store.ReserveSeats(ctx, 7, f.showID, f.seatIDs[:2], time.Now().UTC().Add(10*time.Minute))
	require.NoError(t, err)
	require.NoError(t, f.store.ApproveBooking(ctx, booking.ID, "CODE1234"))

	// Booked seats survive a sweep far in the future.
	result, err := f.store.SweepExpired(ctx, time.Now().UTC().Add(24*time.Hour))
	require.NoError(t, err)
	assert.Zero(t, result.BookingsCancelled)

	got, err := f.bookings.GetByID(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingApproved, got.Status)
	require.NotNil(t, got.ConfirmationCode)
	assert.Equal(t, "CODE1234", *got.ConfirmationCode)
}

func TestStoreSweepReclaimsExpiredLock(t *testing.T) {
	skipIfNoIntegration(t)
	db := openTestDB(t)
	f := newFixture(t, db)
	ctx := context.Background()

	booking, err := f.store.ReserveSeats(ctx, 7, f.showID, f.seatIDs, time.Now().UTC().Add(-time.Minute))
	require.NoError(t, err)

	result, err := f.store.SweepExpired(ctx, time.Now().UTC())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, result.SeatsReleased, 3)

	got, err := f.bookings.GetByID(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingCancelled, got.Status)

	// Seats are available again for a fresh reservation.
	_, err = f.store.ReserveSeats(ctx, 8, f.showID, f.seatIDs, time.Now().UTC().Add(10*time.Minute))
	assert.NoError(t, err)
}

func TestStoreReserveNamesOnlyTakenSeats(t *testing.T) {
	skipIfNoIntegration(t)
	db := openTestDB(t)
	f := newFixture(t, db)
	ctx := context.Background()

	expiresAt := time.Now().UTC().Add(10 * time.Minute)
	_, err := f.store.ReserveSeats(ctx, 7, f.showID, f.seatIDs[1:2], expiresAt)
	require.NoError(t, err)

	_, err = f.store.ReserveSeats(ctx, 8, f.showID, f.seatIDs, expiresAt)
	var unavailable *SeatUnavailableError
	require.ErrorAs(t, err, &unavailable)
	// Only the seat the first booking holds, not the seats the failed
	// attempt would have locked itself.
	assert.Equal(t, f.seatIDs[1:2], unavailable.SeatIDs)

	entries, err := f.showSeats.ListByShow(ctx, f.showID)
	require.NoError(t, err)
	for _, e := range entries {
		want := model.SeatAvailable
		if e.ShowSeatID == f.seatIDs[1] {
			want = model.SeatLocked
		}
		assert.Equal(t, want, e.Status, "seat %d", e.ShowSeatID)
	}
}

func TestStoreSweepConcurrentWithCancel(t *testing.T) {
	skipIfNoIntegration(t)
	db := openTestDB(t)
	f := newFixture(t, db)
	ctx := context.Background()

	// The sweep and a customer cancel race on the same booking over and
	// over; neither side may surface a deadlock error.
	for i := 0; i < 20; i++ {
		booking, err := f.store.ReserveSeats(ctx, 7, f.showID, f.seatIDs, time.Now().UTC().Add(-time.Minute))
		require.NoError(t, err)

		var wg sync.WaitGroup
		var sweepErr, cancelErr error
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, sweepErr = f.store.SweepExpired(ctx, time.Now().UTC())
		}()
		go func() {
			defer wg.Done()
			cancelErr = f.store.CancelBooking(ctx, booking.ID, model.BookingCancelled)
		}()
		wg.Wait()

		require.NoError(t, sweepErr)
		if cancelErr != nil {
			// The sweep got there first; the customer sees a clean
			// transition error, nothing else.
			require.ErrorIs(t, cancelErr, ErrInvalidTransition)
		}

		got, err := f.bookings.GetByID(ctx, booking.ID)
		require.NoError(t, err)
		assert.Equal(t, model.BookingCancelled, got.Status)
		entries, err := f.showSeats.ListByShow(ctx, f.showID)
		require.NoError(t, err)
		for _, e := range entries {
			require.Equal(t, model.SeatAvailable, e.Status)
		}
	}
}

func TestSeatGridOrdersDoubleLetterRowsLast(t *testing.T) {
	skipIfNoIntegration(t)
	db := openTestDB(t)
	ctx := context.Background()

	hallRepo := NewHallRepo(db)
	seatRepo := NewSeatRepo(db)
	hall := &model.Hall{OwnerID: 1, Name: "itest-wide-" + time.Now().Format("150405.000000000"), SeatRows: 27, SeatCols: 1, IsActive: true}
	require.NoError(t, hallRepo.Create(ctx, hall))
	require.NoError(t, seatRepo.CreateGrid(ctx, hall.ID, 27, 1))

	seats, err := seatRepo.GetByHall(ctx, hall.ID)
	require.NoError(t, err)
	require.Len(t, seats, 27)
	assert.Equal(t, "A", seats[0].RowLabel)
	assert.Equal(t, "B", seats[1].RowLabel)
	assert.Equal(t, "Z", seats[25].RowLabel)
	assert.Equal(t, "AA", seats[26].RowLabel)
}

func TestStoreCancelBookingTwice(t *testing.T) {
	skipIfNoIntegration(t)
	db := openTestDB(t)
	f := newFixture(t, db)
	ctx := context.Background()

	booking, err := f.store.ReserveSeats(ctx, 7, f.showID, f.seatIDs[:1], time.Now().UTC().Add(10*time.Minute))
	require.NoError(t, err)

	require.NoError(t, f.store.CancelBooking(ctx, booking.ID, model.BookingCancelled))
	assert.ErrorIs(t, f.store.CancelBooking(ctx, booking.ID, model.BookingCancelled), ErrInvalidTransition)
}
