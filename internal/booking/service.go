// Package booking implements the job lifecycle: the status table, translator
// matching, notification dispatch and the reassignment protocol.
package booking

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// StatusSuccess is the status of every successful Result.
const StatusSuccess = "success"

// Result is the outcome of an operation. Notices collects notifications that
// failed after the change was committed.
type Result struct {
	Status  string
	Message string
	Data    any
	Notices []error
}

func success(msg string, data any) *Result {
	return &Result{Status: StatusSuccess, Message: msg, Data: data}
}

func (r *Result) notice(err error) {
	if err != nil {
		r.Notices = append(r.Notices, err)
	}
}

// Deps are the collaborators a Service needs.
type Deps struct {
	Repo     Repository
	Mailer   Mailer
	Notifier Notifier
	SMS      SMSSender
	Events   EventSink
	Clock    Clock
	Logger   *slog.Logger
	// SMSAudit receives one line per SMS attempt.
	SMSAudit *slog.Logger
	SMSFrom  string
	// NotifyTimeout bounds each mail, push enqueue and SMS call.
	NotifyTimeout time.Duration
}

// Service runs booking operations.
type Service struct {
	repo          Repository
	mailer        Mailer
	notifier      Notifier
	sms           SMSSender
	events        EventSink
	clock         Clock
	logger        *slog.Logger
	smsAudit      *slog.Logger
	smsFrom       string
	notifyTimeout time.Duration
	matcher       *Matcher
}

// NewService wires a Service.
func NewService(d Deps) *Service {
	events := d.Events
	if events == nil {
		events = DiscardSink{}
	}
	smsAudit := d.SMSAudit
	if smsAudit == nil {
		smsAudit = d.Logger
	}
	return &Service{
		repo:          d.Repo,
		mailer:        d.Mailer,
		notifier:      d.Notifier,
		sms:           d.SMS,
		events:        events,
		clock:         d.Clock,
		logger:        d.Logger,
		smsAudit:      smsAudit,
		smsFrom:       d.SMSFrom,
		notifyTimeout: d.NotifyTimeout,
		matcher:       NewMatcher(d.Repo, d.Clock),
	}
}

func (s *Service) loadJob(ctx context.Context, id int64) (*Job, error) {
	job, err := s.repo.JobByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, notFound("Job")
		}
		return nil, internal("load job", err)
	}
	return job, nil
}

func (s *Service) loadUser(ctx context.Context, id int64, what string) (*User, error) {
	user, err := s.repo.UserByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, notFound(what)
		}
		return nil, internal("load user", err)
	}
	return user, nil
}

// activeAssignment returns the active assignment or nil when there is none.
func (s *Service) activeAssignment(ctx context.Context, jobID int64) (*Assignment, error) {
	a, err := s.repo.ActiveAssignment(ctx, jobID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, internal("load active assignment", err)
	}
	return a, nil
}

func (s *Service) language(ctx context.Context, languageID int64) string {
	name, err := s.repo.LanguageName(ctx, languageID)
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to resolve language name",
			slog.Int64("language_id", languageID),
			slog.Any("error", err),
		)
		return ""
	}
	return name
}

func (s *Service) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.notifyTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.notifyTimeout)
}

// mail sends best-effort and reports whether the send succeeded.
func (s *Service) mail(ctx context.Context, res *Result, m Mail) bool {
	callCtx, cancel := s.callCtx(ctx)
	defer cancel()

	if err := s.mailer.Send(callCtx, m); err != nil {
		s.logger.ErrorContext(ctx, "Failed to send email",
			slog.String("template", m.Template),
			slog.String("to", m.ToEmail),
			slog.Any("error", err),
		)
		res.notice(notificationFailure("email", err))
		return false
	}
	return true
}

// notify runs one Notifier call best-effort.
func (s *Service) notify(ctx context.Context, res *Result, kind string, jobID int64, fn func(context.Context) error) {
	callCtx, cancel := s.callCtx(ctx)
	defer cancel()

	if err := fn(callCtx); err != nil {
		s.logger.ErrorContext(ctx, "Failed to enqueue notification",
			slog.String("notification_type", kind),
			slog.Int64("job_id", jobID),
			slog.Any("error", err),
		)
		res.notice(notificationFailure("push", err))
	}
}

func (s *Service) emit(ctx context.Context, e Event, err error) {
	e.At = s.clock.Now()
	e.Outcome = OutcomeSuccess
	if err != nil {
		e.Outcome = OutcomeFailed
		e.Err = err
	}
	s.events.Emit(ctx, e)
}

// contactEmail prefers the job's own contact address over the customer's.
func contactEmail(job *Job, customer *User) string {
	if job.UserEmail != "" {
		return job.UserEmail
	}
	return customer.Email
}
