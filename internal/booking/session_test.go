package booking_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/booking-dispatch/internal/booking"
)

func TestService_StartSession(t *testing.T) {
	tests := []struct {
		name    string
		actor   booking.Actor
		status  booking.Status
		wantErr error
	}{
		{name: "assigned translator", actor: translatorActor(1), status: booking.StatusAssigned},
		{name: "admin", actor: admin(), status: booking.StatusAssigned},
		{name: "other translator", actor: translatorActor(2), status: booking.StatusAssigned, wantErr: booking.ErrInvalidTransition},
		{name: "customer", actor: customer(), status: booking.StatusAssigned, wantErr: booking.ErrInvalidTransition},
		{name: "already started", actor: translatorActor(1), status: booking.StatusStarted, wantErr: booking.ErrInvalidTransition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, defaultNow)
			f.translator(1)
			f.translator(2)
			job := f.assigned(defaultNow.Add(time.Hour), 1, func(j *booking.Job) { j.Status = tt.status })

			_, err := f.svc.StartSession(context.Background(), tt.actor, job.ID)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, tt.status, f.reload(t, job.ID).Status)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, booking.StatusStarted, f.reload(t, job.ID).Status)
			assert.Equal(t, booking.EventSessionStarted, f.events.last().Kind)
		})
	}
}

func TestService_EndSession(t *testing.T) {
	due := at(2024, 1, 1, 10, 0)
	end := at(2024, 1, 1, 11, 30)

	tests := []struct {
		name          string
		actor         booking.Actor
		comments      string
		wantRecipient int64
	}{
		{name: "ended by translator", actor: translatorActor(1), wantRecipient: customerID},
		{name: "ended by customer", actor: customer(), wantRecipient: 1},
		{name: "ended by admin", actor: admin(), comments: "closed by support", wantRecipient: customerID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, end)
			f.translator(1)
			job := f.assigned(due, 1, func(j *booking.Job) { j.Status = booking.StatusStarted })

			res, err := f.svc.EndSession(context.Background(), tt.actor, job.ID, booking.EndRequest{AdminComments: tt.comments})
			require.NoError(t, err)
			assert.Equal(t, booking.StatusSuccess, res.Status)

			stored := f.reload(t, job.ID)
			assert.Equal(t, booking.StatusCompleted, stored.Status)
			assert.Equal(t, "1:30:00", stored.SessionTime)
			require.NotNil(t, stored.EndAt)
			assert.True(t, end.Equal(*stored.EndAt))
			assert.Equal(t, tt.comments, stored.AdminComments)

			assignments := f.store.Assignments(job.ID)
			require.Len(t, assignments, 1)
			require.NotNil(t, assignments[0].CompletedAt)
			require.NotNil(t, assignments[0].CompletedBy)
			assert.Equal(t, tt.actor.UserID, *assignments[0].CompletedBy)

			mails := f.mailer.all()
			require.Len(t, mails, 2)
			assert.Equal(t, "customer@example.com", mails[0].ToEmail)
			assert.Equal(t, "faktura", mails[0].Data["for_text"])
			assert.Equal(t, "1 tim 30 min", mails[0].Data["session_time"])
			assert.Equal(t, "T1@Example.com", mails[1].ToEmail)
			assert.Equal(t, "lön", mails[1].Data["for_text"])
			for _, m := range mails {
				assert.Equal(t, booking.TemplateSessionEnded, m.Template)
				assert.Equal(t, "Information om avslutad tolkning för bokningsnummer # 1", m.Subject)
			}

			e := f.events.last()
			assert.Equal(t, booking.EventSessionEnded, e.Kind)
			assert.Equal(t, tt.wantRecipient, e.RecipientID)
		})
	}
}

func TestService_EndSession_Rejected(t *testing.T) {
	due := at(2024, 1, 1, 10, 0)
	now := at(2024, 1, 1, 11, 0)

	tests := []struct {
		name      string
		status    booking.Status
		assign    bool
		actor     booking.Actor
		comments  string
		wantErr   error
		wantField string
	}{
		{name: "not started", status: booking.StatusAssigned, assign: true, actor: translatorActor(1), wantErr: booking.ErrInvalidTransition},
		{name: "admin without comments", status: booking.StatusStarted, assign: true, actor: admin(), wantErr: booking.ErrValidation, wantField: "admin_comments"},
		{name: "admin with blank comments", status: booking.StatusStarted, assign: true, actor: admin(), comments: "   ", wantErr: booking.ErrValidation, wantField: "admin_comments"},
		{name: "no translator", status: booking.StatusStarted, actor: customer(), wantErr: booking.ErrInvalidTransition},
		{name: "stranger", status: booking.StatusStarted, assign: true, actor: translatorActor(2), wantErr: booking.ErrInvalidTransition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, now)
			f.translator(1)
			f.translator(2)
			job := f.job(due, func(j *booking.Job) { j.Status = tt.status })
			if tt.assign {
				f.store.Assign(job.ID, 1, now)
			}

			_, err := f.svc.EndSession(context.Background(), tt.actor, job.ID, booking.EndRequest{AdminComments: tt.comments})
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			if tt.wantField != "" {
				var be *booking.Error
				require.ErrorAs(t, err, &be)
				assert.Equal(t, tt.wantField, be.Field)
			}

			assert.Equal(t, tt.status, f.reload(t, job.ID).Status)
			assert.Empty(t, f.mailer.all())
		})
	}
}

func TestService_CustomerNoCall(t *testing.T) {
	due := at(2024, 1, 1, 10, 0)
	now := at(2024, 1, 1, 10, 20)

	t.Run("assigned translator reports", func(t *testing.T) {
		f := newFixture(t, now)
		f.translator(1)
		job := f.assigned(due, 1, func(j *booking.Job) { j.Status = booking.StatusStarted })

		_, err := f.svc.CustomerNoCall(context.Background(), translatorActor(1), job.ID)
		require.NoError(t, err)

		stored := f.reload(t, job.ID)
		assert.Equal(t, booking.StatusNotCarriedOutCustomer, stored.Status)
		assert.Equal(t, "0:20:00", stored.SessionTime)

		assignments := f.store.Assignments(job.ID)
		require.Len(t, assignments, 1)
		require.NotNil(t, assignments[0].CompletedBy)
		assert.Equal(t, int64(1), *assignments[0].CompletedBy)
		assert.Empty(t, f.mailer.all())
	})

	t.Run("customer cannot report", func(t *testing.T) {
		f := newFixture(t, now)
		f.translator(1)
		job := f.assigned(due, 1, func(j *booking.Job) { j.Status = booking.StatusStarted })

		_, err := f.svc.CustomerNoCall(context.Background(), customer(), job.ID)
		assert.ErrorIs(t, err, booking.ErrInvalidTransition)
		assert.Equal(t, booking.StatusStarted, f.reload(t, job.ID).Status)
	})

	t.Run("not started", func(t *testing.T) {
		f := newFixture(t, now)
		f.translator(1)
		job := f.assigned(due, 1)

		_, err := f.svc.CustomerNoCall(context.Background(), admin(), job.ID)
		assert.ErrorIs(t, err, booking.ErrInvalidTransition)
	})
}
