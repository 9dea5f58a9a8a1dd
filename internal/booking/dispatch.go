package booking

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Dispatcher builds and sends push notifications for jobs. It implements
// Notifier in-process; the worker drives it from queued tasks.
type Dispatcher struct {
	repo    Repository
	matcher *Matcher
	pusher  Pusher
	clock   Clock
	timeout time.Duration
	audit   *slog.Logger
}

// NewDispatcher creates a dispatcher. timeout bounds each provider call; zero disables it.
func NewDispatcher(repo Repository, pusher Pusher, clock Clock, timeout time.Duration, audit *slog.Logger) *Dispatcher {
	return &Dispatcher{
		repo:    repo,
		matcher: NewMatcher(repo, clock),
		pusher:  pusher,
		clock:   clock,
		timeout: timeout,
		audit:   audit,
	}
}

// SuitableJob offers a pending job to every matching translator. The
// immediate cohort is sent now, the delayed cohort at the next business time.
func (d *Dispatcher) SuitableJob(ctx context.Context, jobID, excludeUserID int64) error {
	job, err := d.job(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status != StatusPending {
		d.audit.InfoContext(ctx, "Skipping push for job no longer pending",
			slog.Int64("job_id", job.ID),
			slog.String("status", string(job.Status)),
		)
		return nil
	}

	cohorts, err := d.matcher.Match(ctx, job, excludeUserID)
	if err != nil {
		return err
	}
	language, err := d.language(ctx, job)
	if err != nil {
		return err
	}

	base := Push{
		JobID:            job.ID,
		Message:          SuitableJobText(job, language),
		Data:             pushData(job, language, NotificationSuitableJob),
		Sound:            soundFor(job),
		NotificationType: NotificationSuitableJob,
	}

	var errs []error
	if len(cohorts.Immediate) > 0 {
		p := base
		p.Recipients = tags(cohorts.Immediate)
		errs = append(errs, d.send(ctx, p))
	}
	if len(cohorts.Delayed) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		p := base
		p.Recipients = tags(cohorts.Delayed)
		at := d.clock.NextBusinessTime(d.clock.Now())
		p.SendAfter = &at
		errs = append(errs, d.send(ctx, p))
	}
	return errors.Join(errs...)
}

// JobAccepted tells the customer a translator took the job.
func (d *Dispatcher) JobAccepted(ctx context.Context, jobID int64) error {
	job, err := d.job(ctx, jobID)
	if err != nil {
		return err
	}
	language, err := d.language(ctx, job)
	if err != nil {
		return err
	}
	return d.pushUser(ctx, job, job.UserID, JobAcceptedText(job, language),
		pushData(job, language, NotificationJobAccepted), soundFor(job), NotificationJobAccepted)
}

// JobCancelled tells the other party a job was withdrawn. userID is the recipient:
// the translator when the customer cancelled, the customer when the translator did.
func (d *Dispatcher) JobCancelled(ctx context.Context, jobID, userID int64) error {
	job, err := d.job(ctx, jobID)
	if err != nil {
		return err
	}
	language, err := d.language(ctx, job)
	if err != nil {
		return err
	}

	text := CustomerCancelledText(job, language)
	if userID == job.UserID {
		text = TranslatorCancelledText(job, language)
	}
	return d.pushUser(ctx, job, userID, text,
		pushData(job, language, NotificationJobCancelled), soundFor(job), NotificationJobCancelled)
}

// SessionReminder reminds the assigned translator of the session.
func (d *Dispatcher) SessionReminder(ctx context.Context, jobID, translatorID int64) error {
	job, err := d.job(ctx, jobID)
	if err != nil {
		return err
	}
	language, err := d.language(ctx, job)
	if err != nil {
		return err
	}

	sound := SoundDefault
	if job.CustomerPhysicalType {
		sound = SoundNormal
	}
	return d.pushUser(ctx, job, translatorID, SessionReminderText(job, language),
		pushData(job, language, NotificationSessionReminder), sound, NotificationSessionReminder)
}

// JobExpired tells the customer nobody accepted the job in time.
func (d *Dispatcher) JobExpired(ctx context.Context, jobID int64) error {
	job, err := d.job(ctx, jobID)
	if err != nil {
		return err
	}
	language, err := d.language(ctx, job)
	if err != nil {
		return err
	}
	return d.pushUser(ctx, job, job.UserID, ExpiredText(job, language),
		pushData(job, language, NotificationJobExpired), soundFor(job), NotificationJobExpired)
}

// pushUser sends to a single user, honouring the opt-out flag and deferring
// to business hours at night when the user asked for that.
func (d *Dispatcher) pushUser(ctx context.Context, job *Job, userID int64, text string, data map[string]string, sound Sound, kind string) error {
	user, err := d.repo.UserByID(ctx, userID)
	if err != nil {
		return kindOf("load push recipient", err)
	}
	if user.Meta.NotGetNotification {
		d.audit.InfoContext(ctx, "Push disabled for user",
			slog.Int64("job_id", job.ID),
			slog.Int64("user_id", user.ID),
			slog.String("notification_type", kind),
		)
		return nil
	}

	p := Push{
		JobID:            job.ID,
		Recipients:       []string{user.PushTag()},
		Message:          text,
		Data:             data,
		Sound:            sound,
		NotificationType: kind,
	}
	if now := d.clock.Now(); user.Meta.NotGetNighttime && d.clock.IsNightTime(now) {
		at := d.clock.NextBusinessTime(now)
		p.SendAfter = &at
	}
	return d.send(ctx, p)
}

func (d *Dispatcher) send(ctx context.Context, p Push) error {
	callCtx := ctx
	if d.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	resp, err := d.pusher.Push(callCtx, p)

	attrs := []any{
		slog.Int64("job_id", p.JobID),
		slog.String("notification_type", p.NotificationType),
		slog.Any("recipients", p.Recipients),
		slog.String("message", p.Message),
		slog.String("response", resp),
	}
	if p.SendAfter != nil {
		attrs = append(attrs, slog.Time("send_after", *p.SendAfter))
	}
	if err != nil {
		d.audit.ErrorContext(ctx, "Push send for job failed", append(attrs, slog.Any("error", err))...)
		return notificationFailure("push", err)
	}
	d.audit.InfoContext(ctx, "Push send for job", attrs...)
	return nil
}

func (d *Dispatcher) job(ctx context.Context, jobID int64) (*Job, error) {
	job, err := d.repo.JobByID(ctx, jobID)
	if err != nil {
		return nil, kindOf("load job", err)
	}
	return job, nil
}

func (d *Dispatcher) language(ctx context.Context, job *Job) (string, error) {
	name, err := d.repo.LanguageName(ctx, job.FromLanguageID)
	if err != nil {
		return "", internal("load language", err)
	}
	return name, nil
}

func soundFor(job *Job) Sound {
	if job.Immediate {
		return SoundEmergency
	}
	return SoundNormal
}

func tags(users []*User) []string {
	out := make([]string, 0, len(users))
	for _, u := range users {
		out = append(out, u.PushTag())
	}
	return out
}
