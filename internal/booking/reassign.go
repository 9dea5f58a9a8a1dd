package booking

import (
	"context"
	"errors"
	"strings"
)

// ReassignmentAudit records who held a job before and after a translator change.
type ReassignmentAudit struct {
	OldTranslator *string `json:"old_translator"`
	NewTranslator string  `json:"new_translator"`
}

// resolveTranslator finds the translator an admin named by id or email.
func (s *Service) resolveTranslator(ctx context.Context, id int64, email string) (*User, error) {
	var (
		user *User
		err  error
	)
	if id != 0 {
		user, err = s.repo.UserByID(ctx, id)
	} else {
		user, err = s.repo.UserByEmail(ctx, strings.TrimSpace(email))
	}
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, notFound("Translator")
		}
		return nil, internal("resolve translator", err)
	}
	if user.Role != RoleTranslator {
		return nil, validationError("translator", "User is not a translator")
	}
	return user, nil
}

// assignee loads the translator holding a, or returns nil for a nil assignment.
func (s *Service) assignee(ctx context.Context, a *Assignment) (*User, error) {
	if a == nil {
		return nil, nil
	}
	user, err := s.repo.UserByID(ctx, a.UserID)
	if err != nil {
		return nil, internal("load assigned translator", err)
	}
	return user, nil
}

func newReassignmentAudit(prev, next *User) *ReassignmentAudit {
	audit := &ReassignmentAudit{NewTranslator: next.Email}
	if prev != nil {
		email := prev.Email
		audit.OldTranslator = &email
	}
	return audit
}

// mailReassigned tells the customer and both translators about the change.
func (s *Service) mailReassigned(ctx context.Context, res *Result, job *Job, customer, prev, next *User) {
	subject := subjectReassigned(job.ID)

	s.mail(ctx, res, Mail{
		ToEmail:  contactEmail(job, customer),
		ToName:   customer.Name,
		Subject:  subject,
		Template: TemplateChangedTranslatorCust,
		Data:     map[string]any{"user": customer, "job": job},
	})
	if prev != nil {
		s.mail(ctx, res, Mail{
			ToEmail:  prev.Email,
			ToName:   prev.Name,
			Subject:  subject,
			Template: TemplateChangedTranslatorOld,
			Data:     map[string]any{"user": prev, "job": job},
		})
	}
	s.mail(ctx, res, Mail{
		ToEmail:  next.Email,
		ToName:   next.Name,
		Subject:  subject,
		Template: TemplateChangedTranslatorNew,
		Data:     map[string]any{"user": next, "job": job},
	})
}
