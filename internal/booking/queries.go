package booking

import (
	"context"
	"log/slog"
)

// DefaultPageSize is used when a listing does not ask for a size.
const DefaultPageSize = 20

// MaxPageSize caps any listing.
const MaxPageSize = 100

// Show returns one job. Customers only see their own bookings.
func (s *Service) Show(ctx context.Context, actor Actor, jobID int64) (*Result, error) {
	job, err := s.loadJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if actor.Role == RoleCustomer && actor.UserID != job.UserID {
		return nil, notFound("Job")
	}
	return success("", job), nil
}

// ListJobs pages through jobs newest first. Customers are limited to their own.
func (s *Service) ListJobs(ctx context.Context, actor Actor, filter JobFilter) ([]*Job, error) {
	if actor.Role == RoleCustomer {
		filter.CustomerID = actor.UserID
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, validationError("status", "Unknown status "+string(filter.Status))
	}
	switch {
	case filter.PageSize <= 0:
		filter.PageSize = DefaultPageSize
	case filter.PageSize > MaxPageSize:
		filter.PageSize = MaxPageSize
	}

	jobs, err := s.repo.ListJobs(ctx, filter)
	if err != nil {
		return nil, internal("list jobs", err)
	}
	return jobs, nil
}

// PotentialJobs lists the pending jobs a translator qualifies for.
func (s *Service) PotentialJobs(ctx context.Context, translatorID int64) ([]*Job, error) {
	translator, err := s.loadUser(ctx, translatorID, "Translator")
	if err != nil {
		return nil, err
	}
	if translator.Role != RoleTranslator {
		return nil, validationError("translator", "User is not a translator")
	}
	return s.matcher.PotentialJobs(ctx, translator)
}

// ResendNotifications pushes a job to its matching translators again.
func (s *Service) ResendNotifications(ctx context.Context, actor Actor, jobID int64) (res *Result, err error) {
	e := Event{JobID: jobID, Kind: EventNotificationResent, Actor: actor}
	defer func() { s.emit(ctx, e, err) }()

	job, err := s.loadJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	e.From, e.To = job.Status, job.Status

	res = success("Push sent", job)
	s.notify(ctx, res, NotificationSuitableJob, job.ID, func(ctx context.Context) error {
		return s.notifier.SuitableJob(ctx, job.ID, 0)
	})
	return res, nil
}

// SMSResult is returned by ResendSMS.
type SMSResult struct {
	Count int `json:"count"`
}

// ResendSMS texts every potential translator about the job, one message
// each, and returns how many sends were attempted.
func (s *Service) ResendSMS(ctx context.Context, actor Actor, jobID int64) (res *Result, err error) {
	e := Event{JobID: jobID, Kind: EventSMSResent, Actor: actor}
	defer func() { s.emit(ctx, e, err) }()

	job, err := s.loadJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	e.From, e.To = job.Status, job.Status

	translators, err := s.matcher.PotentialTranslators(ctx, job)
	if err != nil {
		return nil, err
	}

	city := job.City
	if city == "" {
		if customer, err := s.repo.UserByID(ctx, job.UserID); err == nil {
			city = customer.Meta.City
		}
	}
	text := SMSText(job, city)

	s.smsAudit.InfoContext(ctx, "SMS send for job",
		slog.Int64("job_id", job.ID),
		slog.Int("recipients", len(translators)),
		slog.String("message", text),
	)

	res = success("SMS sent", nil)
	attempted := 0
	for _, t := range translators {
		if err := ctx.Err(); err != nil {
			res.notice(notificationFailure("sms", err))
			break
		}

		callCtx, cancel := s.callCtx(ctx)
		status, sendErr := s.sms.Send(callCtx, s.smsFrom, t.Mobile, text)
		cancel()
		attempted++

		attrs := []any{
			slog.Int64("job_id", job.ID),
			slog.Int64("translator_id", t.ID),
		}
		msg := "Send SMS to " + t.Email + " (" + t.Mobile + "), status: " + status
		if sendErr != nil {
			s.smsAudit.ErrorContext(ctx, msg, append(attrs, slog.Any("error", sendErr))...)
			res.notice(notificationFailure("sms", sendErr))
			continue
		}
		s.smsAudit.InfoContext(ctx, msg, attrs...)
	}
	res.Data = SMSResult{Count: attempted}
	return res, nil
}
