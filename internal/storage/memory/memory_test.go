package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/booking-dispatch/internal/booking"
	"github.com/cuongbtq/booking-dispatch/internal/storage/memory"
)

var base = time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)

func pending(due time.Time) *booking.Job {
	return &booking.Job{UserID: 100, FromLanguageID: 1, Due: due, Duration: 60, Status: booking.StatusPending, CreatedAt: base}
}

func TestStore_AcceptJob(t *testing.T) {
	ctx := context.Background()

	t.Run("assigns a pending job", func(t *testing.T) {
		s := memory.New()
		job := s.AddJob(pending(base.Add(time.Hour)))

		got, err := s.AcceptJob(ctx, job.ID, 7, base)
		require.NoError(t, err)
		assert.Equal(t, booking.StatusAssigned, got.Status)

		a, err := s.ActiveAssignment(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(7), a.UserID)
	})

	t.Run("rejects a job that is not pending", func(t *testing.T) {
		s := memory.New()
		job := s.AddJob(pending(base.Add(time.Hour)))
		_, err := s.AcceptJob(ctx, job.ID, 7, base)
		require.NoError(t, err)

		_, err = s.AcceptJob(ctx, job.ID, 8, base)
		assert.ErrorIs(t, err, booking.ErrAlreadyAssigned)
	})

	t.Run("rejects overlapping sessions", func(t *testing.T) {
		s := memory.New()
		first := s.AddJob(pending(base.Add(time.Hour)))
		overlap := s.AddJob(pending(base.Add(90 * time.Minute)))
		after := s.AddJob(pending(base.Add(2 * time.Hour)))

		_, err := s.AcceptJob(ctx, first.ID, 7, base)
		require.NoError(t, err)

		_, err = s.AcceptJob(ctx, overlap.ID, 7, base)
		assert.ErrorIs(t, err, booking.ErrAlreadyBooked)

		// back to back is fine
		_, err = s.AcceptJob(ctx, after.ID, 7, base)
		assert.NoError(t, err)
	})

	t.Run("unknown job", func(t *testing.T) {
		_, err := memory.New().AcceptJob(ctx, 1, 7, base)
		assert.ErrorIs(t, err, booking.ErrNotFound)
	})
}

func TestStore_TransitionJob(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	job := s.AddJob(pending(base.Add(time.Hour)))
	s.Assign(job.ID, 7, base)

	updated := job.Clone()
	updated.Status = booking.StatusStarted

	err := s.TransitionJob(ctx, updated, booking.StatusAssigned, booking.AssignmentChange{})
	assert.ErrorIs(t, err, booking.ErrInvalidTransition)

	require.NoError(t, s.TransitionJob(ctx, updated, booking.StatusPending, booking.AssignmentChange{}))

	done := updated.Clone()
	done.Status = booking.StatusCompleted
	require.NoError(t, s.TransitionJob(ctx, done, booking.StatusStarted, booking.AssignmentChange{Action: booking.AssignmentComplete, At: base}))

	rows := s.Assignments(job.ID)
	require.Len(t, rows, 1)
	require.NotNil(t, rows[0].CompletedBy)
	assert.Equal(t, int64(7), *rows[0].CompletedBy)

	_, err = s.ActiveAssignment(ctx, job.ID)
	assert.ErrorIs(t, err, booking.ErrNotFound)
}

func TestStore_TransitionJob_Reassign(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	j := pending(base.Add(time.Hour))
	j.Status = booking.StatusAssigned
	job := s.AddJob(j)
	s.Assign(job.ID, 7, base)

	edited := job.Clone()
	edited.Reference = "PO-1"
	err := s.TransitionJob(ctx, edited, booking.StatusAssigned, booking.AssignmentChange{
		Action:       booking.AssignmentReassign,
		TranslatorID: 8,
		At:           base,
	})
	require.NoError(t, err)

	rows := s.Assignments(job.ID)
	require.Len(t, rows, 2)
	assert.Equal(t, int64(7), rows[0].UserID)
	assert.NotNil(t, rows[0].CancelAt)

	a, err := s.ActiveAssignment(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(8), a.UserID)

	stored, err := s.JobByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, "PO-1", stored.Reference)

	err = s.TransitionJob(ctx, edited, booking.StatusPending, booking.AssignmentChange{
		Action:       booking.AssignmentReassign,
		TranslatorID: 9,
		At:           base,
	})
	assert.ErrorIs(t, err, booking.ErrInvalidTransition)
	assert.Len(t, s.Assignments(job.ID), 2)
}

func TestStore_ReopenJob_Clone(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	old := s.AddJob(pending(base.Add(time.Hour)))
	clone := old.Clone()
	clone.AdminComments = "reopened"

	got, err := s.ReopenJob(ctx, booking.ReopenRequest{Job: old, Clone: clone, ReopenedBy: 100, At: base})
	require.NoError(t, err)
	assert.NotEqual(t, old.ID, got.ID)
	assert.Equal(t, "reopened", got.AdminComments)

	rows := s.Assignments(old.ID)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(100), rows[0].UserID)
	assert.False(t, rows[0].Active())
}

func TestStore_ReopenJob_InPlace(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	j := pending(base.Add(48 * time.Hour))
	j.Status = booking.StatusAssigned
	job := s.AddJob(j)
	s.Assign(job.ID, 7, base)

	// another writer sets the reference after the reopen was prepared
	req := job.Clone()
	edited := job.Clone()
	edited.Reference = "PO-42"
	require.NoError(t, s.SaveJob(ctx, edited))

	later := base.Add(time.Hour)
	req.Status = booking.StatusPending
	req.CreatedAt = later
	req.UpdatedAt = later
	req.WillExpireAt = later.Add(16 * time.Hour)

	got, err := s.ReopenJob(ctx, booking.ReopenRequest{Job: req, ReopenedBy: 100, At: later})
	require.NoError(t, err)
	assert.Equal(t, job.ID, got.ID)
	assert.Equal(t, booking.StatusPending, got.Status)
	assert.Equal(t, "PO-42", got.Reference)
	assert.True(t, later.Equal(got.CreatedAt))

	_, err = s.ActiveAssignment(ctx, job.ID)
	assert.ErrorIs(t, err, booking.ErrNotFound)
}

func TestStore_ListJobs(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	for i := 0; i < 5; i++ {
		j := pending(base)
		j.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		s.AddJob(j)
	}
	other := pending(base)
	other.UserID = 200
	other.Status = booking.StatusTimedOut
	s.AddJob(other)

	jobs, err := s.ListJobs(ctx, booking.JobFilter{CustomerID: 100, PageSize: 2})
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, []int64{5, 4}, []int64{jobs[0].ID, jobs[1].ID})

	// a reopen between pages moves created_at forward
	moved, err := s.JobByID(ctx, 3)
	require.NoError(t, err)
	moved.CreatedAt = base.Add(time.Hour)
	require.NoError(t, s.SaveJob(ctx, moved))

	next, err := s.ListJobs(ctx, booking.JobFilter{CustomerID: 100, PageSize: 10, Cursor: &booking.JobCursor{JobID: jobs[1].ID}})
	require.NoError(t, err)
	require.Len(t, next, 3)
	assert.Equal(t, []int64{3, 2, 1}, []int64{next[0].ID, next[1].ID, next[2].ID})

	timedOut, err := s.ListJobs(ctx, booking.JobFilter{Status: booking.StatusTimedOut})
	require.NoError(t, err)
	require.Len(t, timedOut, 1)
	assert.Equal(t, int64(200), timedOut[0].UserID)
}

func TestStore_Lookups(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	s.AddUser(&booking.User{ID: 1, Role: booking.RoleTranslator, Email: "A@Example.com", Active: true})
	s.AddUser(&booking.User{ID: 2, Role: booking.RoleTranslator, Email: "b@example.com"})
	s.AddUser(&booking.User{ID: 3, Role: booking.RoleCustomer, Email: "c@example.com", Active: true})

	u, err := s.UserByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(1), u.ID)

	_, err = s.UserByEmail(ctx, "zz@example.com")
	assert.ErrorIs(t, err, booking.ErrNotFound)

	translators, err := s.ListTranslators(ctx, 0)
	require.NoError(t, err)
	require.Len(t, translators, 1)
	assert.Equal(t, int64(1), translators[0].ID)

	translators, err = s.ListTranslators(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, translators)

	_, err = s.LanguageName(ctx, 9)
	assert.ErrorIs(t, err, booking.ErrNotFound)
}
