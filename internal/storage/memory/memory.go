// Package memory is an in-process booking repository with the same
// transactional guarantees as the Postgres one, used by tests and local runs.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cuongbtq/booking-dispatch/internal/booking"
)

var _ booking.Repository = (*Store)(nil)

// Store is safe for concurrent use. A single mutex serialises every write,
// which stands in for the row locks the SQL repository takes.
type Store struct {
	mu          sync.Mutex
	jobs        map[int64]*booking.Job
	users       map[int64]*booking.User
	languages   map[int64]string
	towns       map[int64][]int64
	blacklist   map[int64][]int64
	assignments []*booking.Assignment
	nextJobID   int64
	nextRelID   int64
}

// New returns an empty store.
func New() *Store {
	return &Store{
		jobs:      make(map[int64]*booking.Job),
		users:     make(map[int64]*booking.User),
		languages: make(map[int64]string),
		towns:     make(map[int64][]int64),
		blacklist: make(map[int64][]int64),
	}
}

// AddUser inserts or replaces a user.
func (s *Store) AddUser(u *booking.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *u
	s.users[u.ID] = &cp
}

// AddLanguage registers a language name.
func (s *Store) AddLanguage(id int64, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.languages[id] = name
}

// SetCustomerTowns records the towns a customer books in.
func (s *Store) SetCustomerTowns(customerID int64, towns ...int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.towns[customerID] = towns
}

// Blacklist bars translators from a customer's jobs.
func (s *Store) Blacklist(customerID int64, translatorIDs ...int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blacklist[customerID] = append(s.blacklist[customerID], translatorIDs...)
}

// AddJob inserts a job as-is, assigning an id when it has none.
func (s *Store) AddJob(job *booking.Job) *booking.Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertJob(job)
}

// Assign inserts an active assignment directly.
func (s *Store) Assign(jobID, translatorID int64, at time.Time) *booking.Assignment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyAssignment(s.insertAssignment(jobID, translatorID, at))
}

// Assignments returns every assignment row of a job, oldest first.
func (s *Store) Assignments(jobID int64) []*booking.Assignment {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*booking.Assignment
	for _, a := range s.assignments {
		if a.JobID == jobID {
			out = append(out, copyAssignment(a))
		}
	}
	return out
}

func (s *Store) JobByID(_ context.Context, id int64) (*booking.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, fmt.Errorf("job %d: %w", id, booking.ErrNotFound)
	}
	return job.Clone(), nil
}

func (s *Store) UserByID(_ context.Context, id int64) (*booking.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("user %d: %w", id, booking.ErrNotFound)
	}
	cp := *u
	return &cp, nil
}

func (s *Store) UserByEmail(_ context.Context, email string) (*booking.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("user %q: %w", email, booking.ErrNotFound)
}

func (s *Store) LanguageName(_ context.Context, languageID int64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name, ok := s.languages[languageID]
	if !ok {
		return "", fmt.Errorf("language %d: %w", languageID, booking.ErrNotFound)
	}
	return name, nil
}

func (s *Store) CustomerTowns(_ context.Context, customerID int64) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64(nil), s.towns[customerID]...), nil
}

func (s *Store) BlacklistedTranslators(_ context.Context, customerID int64) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64(nil), s.blacklist[customerID]...), nil
}

func (s *Store) ListTranslators(_ context.Context, exclude int64) ([]*booking.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*booking.User
	for _, u := range s.users {
		if u.Role != booking.RoleTranslator || !u.Active || u.ID == exclude {
			continue
		}
		cp := *u
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) ListPendingJobs(_ context.Context) ([]*booking.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*booking.Job
	for _, j := range s.jobs {
		if j.Status == booking.StatusPending {
			out = append(out, j.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) ListJobs(_ context.Context, f booking.JobFilter) ([]*booking.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*booking.Job
	for _, j := range s.jobs {
		if f.CustomerID != 0 && j.UserID != f.CustomerID {
			continue
		}
		if f.Status != "" && j.Status != f.Status {
			continue
		}
		if c := f.Cursor; c != nil {
			if j.ID >= c.JobID {
				continue
			}
		}
		out = append(out, j.Clone())
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ID > out[b].ID })
	if f.PageSize > 0 && len(out) > f.PageSize {
		out = out[:f.PageSize]
	}
	return out, nil
}

func (s *Store) ExpiredPendingJobs(_ context.Context, now time.Time, limit int) ([]*booking.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*booking.Job
	for _, j := range s.jobs {
		if j.Status == booking.StatusPending && !j.WillExpireAt.After(now) {
			out = append(out, j.Clone())
		}
	}
	sort.Slice(out, func(a, b int) bool {
		if !out[a].WillExpireAt.Equal(out[b].WillExpireAt) {
			return out[a].WillExpireAt.Before(out[b].WillExpireAt)
		}
		return out[a].ID < out[b].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) ActiveAssignment(_ context.Context, jobID int64) (*booking.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a := s.active(jobID)
	if a == nil {
		return nil, fmt.Errorf("active assignment for job %d: %w", jobID, booking.ErrNotFound)
	}
	return copyAssignment(a), nil
}

func (s *Store) TranslatorBusy(_ context.Context, translatorID int64, from, to time.Time, skipJobID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy(translatorID, from, to, skipJobID), nil
}

func (s *Store) CreateJob(_ context.Context, job *booking.Job) (*booking.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := job.Clone()
	cp.ID = 0
	return s.insertJob(cp), nil
}

func (s *Store) SaveJob(_ context.Context, job *booking.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[job.ID]; !ok {
		return fmt.Errorf("job %d: %w", job.ID, booking.ErrNotFound)
	}
	s.jobs[job.ID] = job.Clone()
	return nil
}

func (s *Store) AcceptJob(_ context.Context, jobID, translatorID int64, at time.Time) (*booking.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("job %d: %w", jobID, booking.ErrNotFound)
	}
	if s.busy(translatorID, job.Due, job.End(), jobID) {
		return nil, booking.ErrAlreadyBooked
	}
	if job.Status != booking.StatusPending {
		return nil, booking.ErrAlreadyAssigned
	}

	job.Status = booking.StatusAssigned
	job.UpdatedAt = at
	s.insertAssignment(jobID, translatorID, at)
	return job.Clone(), nil
}

func (s *Store) TransitionJob(_ context.Context, job *booking.Job, from booking.Status, change booking.AssignmentChange) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.jobs[job.ID]
	if !ok {
		return fmt.Errorf("job %d: %w", job.ID, booking.ErrNotFound)
	}
	if stored.Status != from {
		return booking.ErrInvalidTransition
	}

	active := s.active(job.ID)
	switch change.Action {
	case booking.AssignmentCancel:
		if active != nil {
			at := change.At
			active.CancelAt = &at
		}
	case booking.AssignmentComplete:
		if active != nil {
			at := change.At
			by := change.CompletedBy
			if by == 0 {
				by = active.UserID
			}
			active.CompletedAt = &at
			active.CompletedBy = &by
		}
	case booking.AssignmentReassign:
		if active != nil {
			at := change.At
			active.CancelAt = &at
		}
		s.insertAssignment(job.ID, change.TranslatorID, change.At)
	}

	s.jobs[job.ID] = job.Clone()
	return nil
}

func (s *Store) ReopenJob(_ context.Context, req booking.ReopenRequest) (*booking.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	oldID := req.Job.ID
	stored, ok := s.jobs[oldID]
	if !ok {
		return nil, fmt.Errorf("job %d: %w", oldID, booking.ErrNotFound)
	}

	var result *booking.Job
	if req.Clone != nil {
		cp := req.Clone.Clone()
		cp.ID = 0
		result = s.insertJob(cp)
	} else {
		stored.Status = req.Job.Status
		stored.CreatedAt = req.Job.CreatedAt
		stored.UpdatedAt = req.Job.UpdatedAt
		stored.WillExpireAt = req.Job.WillExpireAt
		result = stored.Clone()
	}

	if active := s.active(oldID); active != nil {
		at := req.At
		active.CancelAt = &at
	}
	placeholder := s.insertAssignment(oldID, req.ReopenedBy, req.At)
	cancelAt := req.At
	placeholder.CancelAt = &cancelAt

	return result, nil
}

func (s *Store) insertJob(job *booking.Job) *booking.Job {
	cp := job.Clone()
	if cp.ID == 0 {
		s.nextJobID++
		cp.ID = s.nextJobID
	} else if cp.ID > s.nextJobID {
		s.nextJobID = cp.ID
	}
	s.jobs[cp.ID] = cp
	return cp.Clone()
}

func (s *Store) insertAssignment(jobID, translatorID int64, at time.Time) *booking.Assignment {
	s.nextRelID++
	a := &booking.Assignment{ID: s.nextRelID, JobID: jobID, UserID: translatorID, CreatedAt: at}
	s.assignments = append(s.assignments, a)
	return a
}

func (s *Store) active(jobID int64) *booking.Assignment {
	for _, a := range s.assignments {
		if a.JobID == jobID && a.Active() {
			return a
		}
	}
	return nil
}

func (s *Store) busy(translatorID int64, from, to time.Time, skipJobID int64) bool {
	for _, a := range s.assignments {
		if a.UserID != translatorID || !a.Active() || a.JobID == skipJobID {
			continue
		}
		job, ok := s.jobs[a.JobID]
		if !ok {
			continue
		}
		if job.Due.Before(to) && from.Before(job.End()) {
			return true
		}
	}
	return false
}

func copyAssignment(a *booking.Assignment) *booking.Assignment {
	cp := *a
	return &cp
}
