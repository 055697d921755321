package database

import (
	"context"
	"testing"

	"medbook/internal/domain"
	"medbook/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var emptyFilter = models.BookingFilter{}

func completeDraft(timeStr string) *models.BookingDraft {
	return &models.BookingDraft{
		SessionID: "s1",
		Name:      "Alice",
		Email:     "alice@example.com",
		Phone:     "12345678",
		Specialty: "Cardiology",
		Date:      "2025-06-01",
		Time:      timeStr,
		Active:    true,
	}
}

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func countRows(t *testing.T, db *DB, table string) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

func TestSaveChecked(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	id, err := db.SaveChecked(ctx, completeDraft("10:00"))
	require.NoError(t, err)
	assert.Positive(t, id)

	b, err := db.GetBooking(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Alice", b.Name)
	assert.Equal(t, "alice@example.com", b.Email)
	assert.Equal(t, "Cardiology", b.Specialty)
	assert.Equal(t, "2025-06-01", b.Date)
	assert.Equal(t, "10:00", b.Time)
	assert.Equal(t, models.StatusConfirmed, b.Status)
	assert.False(t, b.CreatedAt.IsZero())

	assert.Equal(t, 1, countRows(t, db, "customers"))
	assert.Equal(t, 1, countRows(t, db, "bookings"))
}

func TestSaveChecked_Conflict(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	_, err := db.SaveChecked(ctx, completeDraft("10:00 AM"))
	require.NoError(t, err)

	for _, tm := range []string{"10:00 AM", "10:00", " 10:00 am "} {
		_, err = db.SaveChecked(ctx, completeDraft(tm))
		assert.ErrorIs(t, err, domain.ErrSlotTaken, tm)
	}

	assert.Equal(t, 1, countRows(t, db, "customers"), "conflict must not leave a customer row")
	assert.Equal(t, 1, countRows(t, db, "bookings"))

	other := completeDraft("10:00")
	other.Specialty = "Dermatology"
	_, err = db.SaveChecked(ctx, other)
	assert.NoError(t, err)

	later := completeDraft("10:30")
	_, err = db.SaveChecked(ctx, later)
	assert.NoError(t, err)
}

func TestSaveChecked_OverlapIsNotExactMatch(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	_, err := db.SaveChecked(ctx, completeDraft("10:00"))
	require.NoError(t, err)

	id, err := db.SaveChecked(ctx, completeDraft("10:15"))
	require.NoError(t, err, "a nearby time the user accepted must still commit")
	assert.NotZero(t, id)
	assert.Equal(t, 2, countRows(t, db, "bookings"))
}

func TestSave_Unchecked(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	_, err := db.Save(ctx, completeDraft("10:00"))
	require.NoError(t, err)
	_, err = db.Save(ctx, completeDraft("10:00"))
	require.NoError(t, err)

	assert.Equal(t, 2, countRows(t, db, "customers"))
	assert.Equal(t, 2, countRows(t, db, "bookings"))
}

func TestSave_IncompleteDraft(t *testing.T) {
	db := newTestDB(t)
	d := completeDraft("")
	_, err := db.SaveChecked(context.Background(), d)
	assert.ErrorIs(t, err, domain.ErrInvalidDraft)
	_, err = db.Save(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidDraft)
}

func TestBookedTimes(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	_, err := db.Save(ctx, completeDraft("10:00"))
	require.NoError(t, err)
	_, err = db.Save(ctx, completeDraft("2:30 PM"))
	require.NoError(t, err)

	times, err := db.BookedTimes(ctx, "2025-06-01", "Cardiology")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"10:00", "2:30 PM"}, times)

	times, err = db.BookedTimes(ctx, "2025-06-01", "cardiology")
	require.NoError(t, err)
	assert.Empty(t, times)
}

func TestGetBooking_NotFound(t *testing.T) {
	db := newTestDB(t)
	_, err := db.GetBooking(context.Background(), 42)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListBookings(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	alice := completeDraft("10:00")
	bob := completeDraft("11:00")
	bob.Name = "Bob Stone"
	bob.Email = "BOB@clinic.org"
	carol := completeDraft("12:00")
	carol.Name = "Carol"
	carol.Email = "carol@example.com"

	for _, d := range []*models.BookingDraft{alice, bob, carol} {
		_, err := db.Save(ctx, d)
		require.NoError(t, err)
	}

	all, err := db.ListBookings(ctx, emptyFilter)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Carol", all[0].Name, "newest first")
	assert.Equal(t, "Alice", all[2].Name)

	byEmail, err := db.ListBookings(ctx, models.BookingFilter{Email: "example.COM"})
	require.NoError(t, err)
	assert.Len(t, byEmail, 2)

	byName, err := db.ListBookings(ctx, models.BookingFilter{Name: "stone"})
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, "BOB@clinic.org", byName[0].Email)

	both, err := db.ListBookings(ctx, models.BookingFilter{Email: "example", Name: "car"})
	require.NoError(t, err)
	assert.Len(t, both, 1)

	limited, err := db.ListBookings(ctx, models.BookingFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	none, err := db.ListBookings(ctx, models.BookingFilter{Name: "zed"})
	require.NoError(t, err)
	assert.Empty(t, none)
}
