package booking

import (
	"context"
	"strings"
)

// EndRequest carries the optional fields of an end-session call.
type EndRequest struct {
	AdminComments string
}

// StartSession marks an assigned job as in progress.
func (s *Service) StartSession(ctx context.Context, actor Actor, jobID int64) (res *Result, err error) {
	e := Event{JobID: jobID, Kind: EventSessionStarted, To: StatusStarted, Actor: actor}
	defer func() { s.emit(ctx, e, err) }()

	job, err := s.loadJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	e.From = job.Status

	if !CanTransition(job.Status, StatusStarted) {
		return nil, invalidTransition(job.Status, StatusStarted)
	}
	active, err := s.activeAssignment(ctx, job.ID)
	if err != nil {
		return nil, err
	}
	if !actor.Role.IsAdmin() && (active == nil || active.UserID != actor.UserID) {
		return nil, newError(ErrInvalidTransition, "Only the assigned translator can start this session")
	}

	updated := job.Clone()
	updated.Status = StatusStarted
	updated.UpdatedAt = s.clock.Now()
	if err := s.repo.TransitionJob(ctx, updated, job.Status, AssignmentChange{}); err != nil {
		return nil, kindOf("start session", err)
	}
	return success("Session started", updated), nil
}

// EndSession completes a started job, records its session time and mails
// both parties.
func (s *Service) EndSession(ctx context.Context, actor Actor, jobID int64, req EndRequest) (res *Result, err error) {
	e := Event{JobID: jobID, Kind: EventSessionEnded, To: StatusCompleted, Actor: actor}
	defer func() { s.emit(ctx, e, err) }()

	job, err := s.loadJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	e.From = job.Status

	if !CanTransition(job.Status, StatusCompleted) {
		return nil, invalidTransition(job.Status, StatusCompleted)
	}
	comments := strings.TrimSpace(req.AdminComments)
	if actor.Role.IsAdmin() && comments == "" {
		return nil, validationError("admin_comments", "Du måste fylla i en kommentar (admin_comments)")
	}

	active, err := s.activeAssignment(ctx, job.ID)
	if err != nil {
		return nil, err
	}
	if active == nil {
		return nil, newError(ErrInvalidTransition, "Booking has no assigned translator")
	}
	if err := canEnd(actor, job, active); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	updated := job.Clone()
	updated.Status = StatusCompleted
	updated.EndAt = &now
	updated.SessionTime = FormatSessionTime(now.Sub(job.Due))
	updated.UpdatedAt = now
	if comments != "" {
		updated.AdminComments = comments
	}

	change := AssignmentChange{Action: AssignmentComplete, CompletedBy: actor.UserID, At: now}
	if err := s.repo.TransitionJob(ctx, updated, job.Status, change); err != nil {
		return nil, kindOf("end session", err)
	}

	if actor.UserID == job.UserID {
		e.RecipientID = active.UserID
	} else {
		e.RecipientID = job.UserID
	}

	res = success("Session ended", updated)
	s.mailSessionEnded(ctx, res, updated, active.UserID)
	return res, nil
}

// CustomerNoCall records that the customer never showed up for a started session.
func (s *Service) CustomerNoCall(ctx context.Context, actor Actor, jobID int64) (res *Result, err error) {
	e := Event{JobID: jobID, Kind: EventCustomerNoCall, To: StatusNotCarriedOutCustomer, Actor: actor}
	defer func() { s.emit(ctx, e, err) }()

	job, err := s.loadJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	e.From = job.Status

	if !CanTransition(job.Status, StatusNotCarriedOutCustomer) {
		return nil, invalidTransition(job.Status, StatusNotCarriedOutCustomer)
	}
	active, err := s.activeAssignment(ctx, job.ID)
	if err != nil {
		return nil, err
	}
	if active == nil {
		return nil, newError(ErrInvalidTransition, "Booking has no assigned translator")
	}
	if !actor.Role.IsAdmin() && active.UserID != actor.UserID {
		return nil, newError(ErrInvalidTransition, "Only the assigned translator can report a missed call")
	}

	now := s.clock.Now()
	updated := job.Clone()
	updated.Status = StatusNotCarriedOutCustomer
	updated.EndAt = &now
	updated.SessionTime = FormatSessionTime(now.Sub(job.Due))
	updated.UpdatedAt = now

	change := AssignmentChange{Action: AssignmentComplete, At: now}
	if err := s.repo.TransitionJob(ctx, updated, job.Status, change); err != nil {
		return nil, kindOf("record customer no-call", err)
	}
	return success("Status updated", updated), nil
}

func canEnd(actor Actor, job *Job, active *Assignment) error {
	switch {
	case actor.Role.IsAdmin():
		return nil
	case actor.Role == RoleCustomer && actor.UserID == job.UserID:
		return nil
	case actor.Role == RoleTranslator && actor.UserID == active.UserID:
		return nil
	}
	return newError(ErrInvalidTransition, "You are not a party to this booking")
}

// mailSessionEnded sends the faktura mail to the customer and the lön mail to the translator.
func (s *Service) mailSessionEnded(ctx context.Context, res *Result, job *Job, translatorID int64) {
	text := SessionTimeText(job.SessionTime)

	customer, err := s.loadUser(ctx, job.UserID, "Customer")
	if err != nil {
		res.notice(notificationFailure("email", err))
	} else {
		s.mail(ctx, res, Mail{
			ToEmail:  contactEmail(job, customer),
			ToName:   customer.Name,
			Subject:  subjectSessionEnded(job.ID),
			Template: TemplateSessionEnded,
			Data:     map[string]any{"user": customer, "job": job, "session_time": text, "for_text": "faktura"},
		})
	}

	if translatorID == 0 {
		return
	}
	translator, err := s.loadUser(ctx, translatorID, "Translator")
	if err != nil {
		res.notice(notificationFailure("email", err))
		return
	}
	s.mail(ctx, res, Mail{
		ToEmail:  translator.Email,
		ToName:   translator.Name,
		Subject:  subjectSessionEnded(job.ID),
		Template: TemplateSessionEnded,
		Data:     map[string]any{"user": translator, "job": job, "session_time": text, "for_text": "lön"},
	})
}
