package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"medbook/internal/database"
	"medbook/internal/domain"
	"medbook/internal/models"
	"medbook/internal/notify"
	"medbook/internal/slots"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Send(ctx context.Context, to, subject, body string) bool {
	return m.Called(ctx, to, subject, body).Bool(0)
}

type fakeCommitter struct {
	id    int64
	err   error
	calls int
}

func (f *fakeCommitter) SaveChecked(_ context.Context, _ *models.BookingDraft) (int64, error) {
	f.calls++
	return f.id, f.err
}

type staticLookup struct {
	booked []string
	err    error
}

func (s staticLookup) BookedTimes(context.Context, string, string) ([]string, error) {
	return s.booked, s.err
}

func newFlow(t *testing.T, booked []string, repo Committer, n domain.Notifier) *Flow {
	t.Helper()
	return NewFlow(slots.NewChecker(staticLookup{booked: booked}, nil), repo, n, Options{}, nil)
}

func run(t *testing.T, f *Flow, d *models.BookingDraft, msgs ...string) Result {
	t.Helper()
	var res Result
	for _, m := range msgs {
		res = f.Handle(context.Background(), d, m)
	}
	return res
}

func TestFlow_HappyPath(t *testing.T) {
	db, err := database.NewDB(":memory:", nil)
	require.NoError(t, err)
	defer db.Close()

	n := new(mockNotifier)
	n.On("Send", mock.Anything, "a@b.com", "Doctor Appointment Confirmation", mock.MatchedBy(func(body string) bool {
		return assert.Contains(t, body, "Hello Alice") && assert.Contains(t, body, "Booking ID: 1")
	})).Return(true).Once()

	f := NewFlow(slots.NewChecker(db, nil), db, n, Options{}, nil)
	d := models.NewBookingDraft("s1", time.Now())

	res := f.Handle(context.Background(), d, "Book")
	assert.Equal(t, Prompt(models.FieldName), res.Reply)
	assert.Equal(t, models.FieldName, d.CurrentField)

	answers := []string{"Alice", "a@b.com", "12345678", "Cardiology", "2025-06-01", "10:00"}
	for i, a := range answers {
		res = f.Handle(context.Background(), d, a)
		require.Equal(t, models.OutcomeContinue, res.Outcome)
		require.NoError(t, d.Validate())
		if i < len(answers)-1 {
			assert.Equal(t, Prompt(models.RequiredFields[i+1]), res.Reply)
		}
	}
	assert.Equal(t, models.StateAwaitingConfirmation, d.State())
	assert.Equal(t, Summary(d), res.Reply)
	assert.Contains(t, res.Reply, "- Time: 10:00")

	res = f.Handle(context.Background(), d, "yes")
	assert.Equal(t, models.OutcomeCommitted, res.Outcome)
	assert.Nil(t, res.Draft)
	assert.Equal(t, int64(1), res.BookingID)
	assert.Contains(t, res.Reply, "Your appointment is confirmed")
	assert.Contains(t, res.Reply, "Booking ID: 1")
	assert.Contains(t, res.Reply, "confirmation email has been sent")
	assert.True(t, res.EmailSent)
	assert.True(t, d.Confirmed)
	assert.False(t, d.Active)
	require.NotNil(t, res.Booking)
	assert.Equal(t, models.StatusConfirmed, res.Booking.Status)

	b, err := db.GetBooking(context.Background(), res.BookingID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", b.Name)
	assert.Equal(t, "CONFIRMED", b.Status)
	n.AssertExpectations(t)
}

func TestFlow_EmailFailureKeepsBooking(t *testing.T) {
	n := new(mockNotifier)
	n.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(false)
	repo := &fakeCommitter{id: 9}
	f := newFlow(t, nil, repo, n)

	d := models.NewBookingDraft("s1", time.Now())
	res := run(t, f, d, "Book", "Alice", "a@b.com", "12345678", "Cardiology", "2025-06-01", "10:00", "Confirm")

	assert.Equal(t, models.OutcomeCommitted, res.Outcome)
	assert.Equal(t, int64(9), res.BookingID)
	assert.False(t, res.EmailSent)
	assert.Contains(t, res.Reply, "Email could not be sent, but your booking was saved.")
}

func TestFlow_NotifierGetsDeadline(t *testing.T) {
	n := new(mockNotifier)
	n.On("Send", mock.MatchedBy(func(ctx context.Context) bool {
		_, ok := ctx.Deadline()
		return ok
	}), mock.Anything, mock.Anything, mock.Anything).Return(true).Once()

	f := NewFlow(slots.NewChecker(staticLookup{}, nil), &fakeCommitter{id: 1}, n,
		Options{NotifyTimeout: time.Second}, nil)
	d := models.NewBookingDraft("s1", time.Now())
	run(t, f, d, "Book", "Alice", "a@b.com", "12345678", "Cardiology", "2025-06-01", "10:00", "y")
	n.AssertExpectations(t)
}

func TestFlow_ValidationErrorsKeepField(t *testing.T) {
	f := newFlow(t, nil, &fakeCommitter{}, nil)
	d := models.NewBookingDraft("s1", time.Now())

	run(t, f, d, "Book", "Alice")
	res := f.Handle(context.Background(), d, "not-an-email")
	assert.Equal(t, "❌ Please enter a valid email address.", res.Reply)
	assert.Equal(t, models.FieldEmail, d.CurrentField)
	assert.Empty(t, d.Email)

	run(t, f, d, "a@b.com")
	res = f.Handle(context.Background(), d, "123-456")
	assert.Equal(t, "❌ Please enter a valid phone number (digits only).", res.Reply)
	assert.Equal(t, models.FieldPhone, d.CurrentField)

	run(t, f, d, "12345678", "Cardiology")
	res = f.Handle(context.Background(), d, "2025-02-30")
	assert.Equal(t, "❌ Please enter date in YYYY-MM-DD format.", res.Reply)
	assert.Equal(t, models.FieldDate, d.CurrentField)

	run(t, f, d, "2025-06-01")
	res = f.Handle(context.Background(), d, "half past ten")
	assert.Equal(t, "❌ Please enter a valid time (e.g., 10:30 AM).", res.Reply)
	assert.Equal(t, models.FieldTime, d.CurrentField)
	assert.Empty(t, d.Time)
}

func TestFlow_BlankNameIsAskedAgain(t *testing.T) {
	f := newFlow(t, nil, &fakeCommitter{}, nil)
	d := models.NewBookingDraft("s1", time.Now())

	res := run(t, f, d, "Book", "   ")
	assert.Equal(t, Prompt(models.FieldName), res.Reply)
	assert.Equal(t, models.FieldName, d.CurrentField)
}

func conflictDraft(t *testing.T, f *Flow) (*models.BookingDraft, Result) {
	t.Helper()
	d := models.NewBookingDraft("s1", time.Now())
	res := run(t, f, d, "Book", "Alice", "a@b.com", "12345678", "Cardiology", "2025-06-01", "10:00")
	return d, res
}

func TestFlow_AdvisoryConflict(t *testing.T) {
	f := newFlow(t, []string{"10:00 AM"}, &fakeCommitter{id: 1}, nil)

	t.Run("enter conflict", func(t *testing.T) {
		d, res := conflictDraft(t, f)
		assert.Equal(t, ConflictAdvisory, res.Conflict)
		assert.Equal(t, models.StateConflictPending, d.State())
		assert.Empty(t, d.Time, "time is not stored while the conflict is pending")
		assert.Equal(t, "10:00", d.PendingTime)
		assert.Equal(t, models.FieldNone, d.CurrentField)
		assert.Equal(t, []string{"09:30", "10:30"}, d.SuggestedSlots)
		assert.Contains(t, res.Reply, "already booked for this specialty")
		assert.Contains(t, res.Reply, "Available nearby slots: 09:30, 10:30")
		require.NoError(t, d.Validate())
	})

	t.Run("other input re-prompts", func(t *testing.T) {
		d, _ := conflictDraft(t, f)
		res := f.Handle(context.Background(), d, "maybe")
		assert.Equal(t, msgConflictReprompt, res.Reply)
		assert.Equal(t, models.StateConflictPending, d.State())
	})

	t.Run("no clears time and suggestions", func(t *testing.T) {
		d, _ := conflictDraft(t, f)
		res := f.Handle(context.Background(), d, "No")
		assert.Equal(t, Prompt(models.FieldTime), res.Reply)
		assert.False(t, d.SlotConflict)
		assert.Empty(t, d.Time)
		assert.Empty(t, d.PendingTime)
		assert.Nil(t, d.SuggestedSlots)
		assert.Equal(t, models.FieldTime, d.CurrentField)

		res = f.Handle(context.Background(), d, "10:30")
		assert.Equal(t, models.StateAwaitingConfirmation, d.State())
		assert.Contains(t, res.Reply, "- Time: 10:30")
	})

	t.Run("yes keeps proposed time", func(t *testing.T) {
		d, _ := conflictDraft(t, f)
		res := f.Handle(context.Background(), d, " y ")
		assert.Equal(t, models.StateAwaitingConfirmation, d.State())
		assert.Equal(t, "10:00", d.Time)
		assert.Nil(t, d.SuggestedSlots)
		assert.Equal(t, Summary(d), res.Reply)
	})

	t.Run("no suggestions available", func(t *testing.T) {
		busy := newFlow(t, []string{"9:30", "10:00", "10:30"}, &fakeCommitter{}, nil)
		d, res := conflictDraft(t, busy)
		assert.Empty(t, d.SuggestedSlots)
		assert.NotContains(t, res.Reply, "Available nearby slots")
	})
}

func TestFlow_AcceptOverlappingTimeCommits(t *testing.T) {
	db, err := database.NewDB(":memory:", nil)
	require.NoError(t, err)
	defer db.Close()

	seed := models.NewBookingDraft("other", time.Now())
	seed.Name, seed.Email, seed.Phone = "Bob", "bob@example.com", "87654321"
	seed.Specialty, seed.Date, seed.Time = "Cardiology", "2025-06-01", "10:00"
	_, err = db.SaveChecked(context.Background(), seed)
	require.NoError(t, err)

	f := NewFlow(slots.NewChecker(db, nil), db, nil, Options{}, nil)
	d := models.NewBookingDraft("s1", time.Now())

	res := run(t, f, d, "Book", "Alice", "a@b.com", "12345678", "Cardiology", "2025-06-01", "10:15")
	require.Equal(t, ConflictAdvisory, res.Conflict)
	assert.Equal(t, "10:15", d.PendingTime)

	res = f.Handle(context.Background(), d, "yes")
	require.Equal(t, models.StateAwaitingConfirmation, d.State())
	assert.Equal(t, "10:15", d.Time)

	res = f.Handle(context.Background(), d, "yes")
	assert.Equal(t, models.OutcomeCommitted, res.Outcome)
	assert.Equal(t, ConflictNone, res.Conflict)
	assert.Equal(t, int64(2), res.BookingID)
	assert.NotContains(t, res.Reply, "just booked by someone else")

	times, err := db.BookedTimes(context.Background(), "2025-06-01", "Cardiology")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"10:00", "10:15"}, times)
}

func TestFlow_DisabledEmailIsReportedAsNotSent(t *testing.T) {
	f := newFlow(t, nil, &fakeCommitter{id: 3}, notify.NewStubSender(nil))
	d, _ := conflictDraft(t, f)

	res := f.Handle(context.Background(), d, "yes")
	assert.Equal(t, models.OutcomeCommitted, res.Outcome)
	assert.False(t, res.EmailSent)
	assert.Contains(t, res.Reply, msgEmailFailed)
	assert.NotContains(t, res.Reply, msgEmailSent)
}

func TestFlow_LookupFailureIsAdvisoryOnly(t *testing.T) {
	checker := slots.NewChecker(staticLookup{err: errors.New("db down")}, nil)
	f := NewFlow(checker, &fakeCommitter{id: 1}, nil, Options{}, nil)

	d, res := conflictDraft(t, f)
	assert.Equal(t, ConflictNone, res.Conflict)
	assert.Equal(t, "10:00", d.Time)
	assert.Equal(t, models.StateAwaitingConfirmation, d.State())
}

func TestFlow_Confirmation(t *testing.T) {
	t.Run("cancel", func(t *testing.T) {
		repo := &fakeCommitter{id: 1}
		f := newFlow(t, nil, repo, nil)
		d, _ := conflictDraft(t, f)

		res := f.Handle(context.Background(), d, "cancel")
		assert.Equal(t, models.OutcomeCancelled, res.Outcome)
		assert.Equal(t, msgCancelled, res.Reply)
		assert.Nil(t, res.Draft)
		assert.Zero(t, repo.calls)
	})

	t.Run("unrelated input repeats summary", func(t *testing.T) {
		f := newFlow(t, nil, &fakeCommitter{id: 1}, nil)
		d, _ := conflictDraft(t, f)

		res := f.Handle(context.Background(), d, "what?")
		assert.Equal(t, Summary(d), res.Reply)
		assert.Equal(t, models.StateAwaitingConfirmation, d.State())
	})

	t.Run("commit conflict asks for another time", func(t *testing.T) {
		repo := &fakeCommitter{err: domain.ErrSlotTaken}
		f := newFlow(t, nil, repo, nil)
		d, _ := conflictDraft(t, f)

		res := f.Handle(context.Background(), d, "yes")
		assert.Equal(t, ConflictCommit, res.Conflict)
		assert.Equal(t, models.OutcomeContinue, res.Outcome)
		assert.Zero(t, res.BookingID)
		assert.NotNil(t, res.Draft)
		assert.Contains(t, res.Reply, "just booked by someone else")
		assert.Contains(t, res.Reply, Prompt(models.FieldTime))
		assert.False(t, d.Confirmed)
		assert.Empty(t, d.Time)
		assert.Equal(t, models.FieldTime, d.CurrentField)
		require.NoError(t, d.Validate())
	})

	t.Run("storage failure keeps draft", func(t *testing.T) {
		repo := &fakeCommitter{err: errors.New("disk full")}
		f := newFlow(t, nil, repo, nil)
		d, _ := conflictDraft(t, f)

		res := f.Handle(context.Background(), d, "yes")
		assert.Equal(t, msgSaveFailed, res.Reply)
		assert.Equal(t, models.StateAwaitingConfirmation, d.State())
		assert.False(t, d.Confirmed)

		repo.err = nil
		repo.id = 5
		res = f.Handle(context.Background(), d, "yes")
		assert.Equal(t, models.OutcomeCommitted, res.Outcome)
		assert.Equal(t, 2, repo.calls)
	})
}

func TestFlow_ConcurrentSessionsOneWins(t *testing.T) {
	db, err := database.NewDB(":memory:", nil)
	require.NoError(t, err)
	defer db.Close()

	f := NewFlow(slots.NewChecker(db, nil), db, nil, Options{}, nil)
	a, _ := conflictDraft(t, f)
	b, _ := conflictDraft(t, f)
	require.Equal(t, models.StateAwaitingConfirmation, a.State())
	require.Equal(t, models.StateAwaitingConfirmation, b.State())

	first := f.Handle(context.Background(), a, "yes")
	second := f.Handle(context.Background(), b, "yes")

	assert.Equal(t, models.OutcomeCommitted, first.Outcome)
	assert.Equal(t, ConflictCommit, second.Conflict)

	times, err := db.BookedTimes(context.Background(), "2025-06-01", "Cardiology")
	require.NoError(t, err)
	assert.Len(t, times, 1)
}

func TestFlow_ConflictTimeReported(t *testing.T) {
	f := newFlow(t, []string{"10:00 AM"}, &fakeCommitter{id: 1}, nil)
	_, res := conflictDraft(t, f)
	assert.Equal(t, ConflictAdvisory, res.Conflict)
	assert.Equal(t, "10:00", res.ConflictTime)
}
