package booking

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// AdminEditRequest is an admin's edit of a job. Zero values leave a field untouched.
type AdminEditRequest struct {
	Status          Status
	AdminComments   string
	SessionTime     string
	TranslatorID    int64
	TranslatorEmail string
	Due             *time.Time
	FromLanguageID  int64
	Reference       *string
}

// Change is one logged field change.
type Change struct {
	Field string `json:"field"`
	Old   string `json:"old"`
	New   string `json:"new"`
}

// AdminEditData is returned by AdminEdit.
type AdminEditData struct {
	Job          *Job               `json:"job"`
	Changes      []Change           `json:"changes,omitempty"`
	Reassignment *ReassignmentAudit `json:"reassignment,omitempty"`
}

// AdminEdit applies an admin's edit. Every check runs before anything is
// written, so a rejected edit leaves the job as it was.
func (s *Service) AdminEdit(ctx context.Context, actor Actor, jobID int64, req AdminEditRequest) (res *Result, err error) {
	e := Event{JobID: jobID, Kind: EventAdminEdited, To: req.Status, Actor: actor}
	defer func() { s.emit(ctx, e, err) }()

	if !actor.Role.IsAdmin() {
		return nil, validationError("user", "Only admins can edit bookings")
	}

	job, err := s.loadJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	e.From = job.Status

	active, err := s.activeAssignment(ctx, job.ID)
	if err != nil {
		return nil, err
	}

	var next *User
	if req.TranslatorID != 0 || strings.TrimSpace(req.TranslatorEmail) != "" {
		next, err = s.resolveTranslator(ctx, req.TranslatorID, req.TranslatorEmail)
		if err != nil {
			return nil, err
		}
		if active != nil && active.UserID == next.ID {
			next = nil
		}
	}

	comments := strings.TrimSpace(req.AdminComments)
	target := job.Status
	statusChange := req.Status != "" && req.Status != job.Status
	if statusChange {
		target = req.Status
		if err := checkAdminStatus(job.Status, target, comments, strings.TrimSpace(req.SessionTime), next != nil || active != nil); err != nil {
			return nil, err
		}
	}
	e.To = target
	if next != nil && target.IsTerminal() {
		return nil, validationError("translator", "Cannot assign a translator to a closed booking")
	}

	now := s.clock.Now()
	updated := job.Clone()
	updated.UpdatedAt = now

	dueChanged := req.Due != nil && !req.Due.Equal(job.Due)
	langChanged := req.FromLanguageID != 0 && req.FromLanguageID != job.FromLanguageID

	var changes []Change
	if dueChanged {
		updated.Due = *req.Due
		changes = append(changes, Change{Field: "due", Old: dueText(job.Due), New: dueText(*req.Due)})
	}
	var oldLanguage string
	if langChanged {
		updated.FromLanguageID = req.FromLanguageID
		oldLanguage = s.language(ctx, job.FromLanguageID)
		changes = append(changes, Change{Field: "lang", Old: oldLanguage, New: s.language(ctx, req.FromLanguageID)})
	}
	if req.Reference != nil {
		updated.Reference = strings.TrimSpace(*req.Reference)
	}
	if comments != "" {
		updated.AdminComments = comments
	}

	prev, err := s.assignee(ctx, active)
	if err != nil {
		return nil, err
	}

	// One transaction, guarded on the status read above.
	change := AssignmentChange{At: now}
	if statusChange {
		updated.Status = target
		switch target {
		case StatusCompleted:
			updated.EndAt = &now
			updated.SessionTime = strings.TrimSpace(req.SessionTime)
			change.Action = AssignmentComplete
			change.CompletedBy = actor.UserID
		case StatusWithdrawBefore24, StatusWithdrawAfter24:
			updated.WithdrawAt = &now
			change.Action = AssignmentCancel
		}
	}
	if next != nil {
		change.Action = AssignmentReassign
		change.TranslatorID = next.ID
	}
	if err := s.repo.TransitionJob(ctx, updated, job.Status, change); err != nil {
		return nil, kindOf("admin edit", err)
	}

	data := AdminEditData{Job: updated, Changes: changes}
	if next != nil {
		data.Reassignment = newReassignmentAudit(prev, next)
		old := ""
		if prev != nil {
			old = prev.Email
		}
		data.Changes = append(data.Changes, Change{Field: "translator", Old: old, New: next.Email})
	}

	s.logger.InfoContext(ctx, "Booking edited by admin",
		slog.Int64("user_id", actor.UserID),
		slog.Int64("job_id", job.ID),
		slog.Any("changes", data.Changes),
	)

	res = success("Updated", data)

	customer, err := s.loadUser(ctx, job.UserID, "Customer")
	if err != nil {
		res.notice(notificationFailure("email", err))
		return res, nil
	}

	translator := prev
	if next != nil {
		translator = next
	}

	if statusChange {
		s.notifyAdminStatus(ctx, res, job.Status, updated, customer, prev, translator)
	}

	if updated.Due.After(now) {
		if dueChanged {
			s.mailChanged(ctx, res, updated, TemplateJobChangedDate, "old_time", dueText(job.Due), customer, translator)
		}
		if next != nil {
			s.mailReassigned(ctx, res, updated, customer, prev, next)
		}
		if langChanged {
			s.mailChanged(ctx, res, updated, TemplateJobChangedLang, "old_lang", oldLanguage, customer, translator)
		}
	}
	return res, nil
}

// checkAdminStatus validates the status part of an admin edit.
func checkAdminStatus(from, to Status, comments, sessionTime string, hasTranslator bool) error {
	if !IsAdminTarget(to) {
		return validationError("status", "Unsupported status "+strconv.Quote(string(to)))
	}
	if !CanAdminTransition(from, to) {
		return invalidTransition(from, to)
	}
	if to != StatusAssigned && comments == "" {
		return validationError("admin_comments", "Du måste fylla i en kommentar (admin_comments)")
	}
	if to == StatusCompleted && sessionTime == "" {
		return validationError("session_time", "Du måste fylla i tid för tolkningen (session_time)")
	}
	if to == StatusAssigned && !hasTranslator {
		return validationError("translator", "Du måste välja en tolk (translator)")
	}
	return nil
}

// notifyAdminStatus sends the mails a forced status change requires.
// prev is the translator active before the edit, translator the one after.
func (s *Service) notifyAdminStatus(ctx context.Context, res *Result, from Status, job *Job, customer, prev, translator *User) {
	switch job.Status {
	case StatusCompleted:
		var translatorID int64
		if prev != nil {
			translatorID = prev.ID
		}
		s.mailSessionEnded(ctx, res, job, translatorID)

	case StatusWithdrawBefore24, StatusWithdrawAfter24, StatusTimedOut:
		s.mail(ctx, res, Mail{
			ToEmail:  contactEmail(job, customer),
			ToName:   customer.Name,
			Subject:  subjectCancelled(job.ID),
			Template: TemplateStatusChangedCustomer,
			Data:     map[string]any{"user": customer, "job": job},
		})
		if from != StatusPending && prev != nil {
			s.mail(ctx, res, Mail{
				ToEmail:  prev.Email,
				ToName:   prev.Name,
				Subject:  subjectCancelled(job.ID),
				Template: TemplateJobCancelTranslator,
				Data:     map[string]any{"user": prev, "job": job},
			})
		}

	case StatusAssigned:
		sent := s.mail(ctx, res, Mail{
			ToEmail:  contactEmail(job, customer),
			ToName:   customer.Name,
			Subject:  subjectAccepted(job.ID),
			Template: TemplateJobAccepted,
			Data:     map[string]any{"user": customer, "job": job},
		})
		if sent && translator != nil {
			s.notify(ctx, res, NotificationSessionReminder, job.ID, func(ctx context.Context) error {
				return s.notifier.SessionReminder(ctx, job.ID, translator.ID)
			})
		}
	}
}

// mailChanged sends a change notice to the customer and, when there is one, the translator.
func (s *Service) mailChanged(ctx context.Context, res *Result, job *Job, template, key, old string, customer, translator *User) {
	s.mail(ctx, res, Mail{
		ToEmail:  contactEmail(job, customer),
		ToName:   customer.Name,
		Subject:  subjectChanged(job.ID),
		Template: template,
		Data:     map[string]any{"user": customer, "job": job, key: old},
	})
	if translator == nil {
		return
	}
	s.mail(ctx, res, Mail{
		ToEmail:  translator.Email,
		ToName:   translator.Name,
		Subject:  subjectChanged(job.ID),
		Template: template,
		Data:     map[string]any{"user": translator, "job": job, key: old},
	})
}
