package booking

import (
	"context"
	"sort"
)

// Cohorts splits the translators a job is pushed to.
type Cohorts struct {
	Immediate []*User
	Delayed   []*User
}

// Len returns the number of translators in both cohorts.
func (c Cohorts) Len() int {
	return len(c.Immediate) + len(c.Delayed)
}

// Matcher finds translators for jobs and jobs for translators.
type Matcher struct {
	repo  Repository
	clock Clock
}

// NewMatcher creates a matcher over the repository.
func NewMatcher(repo Repository, clock Clock) *Matcher {
	return &Matcher{repo: repo, clock: clock}
}

// Offer loads the customer data eligibility needs for the job.
func (m *Matcher) Offer(ctx context.Context, job *Job) (Offer, error) {
	towns, err := m.repo.CustomerTowns(ctx, job.UserID)
	if err != nil {
		return Offer{}, internal("load customer towns", err)
	}
	blacklist, err := m.repo.BlacklistedTranslators(ctx, job.UserID)
	if err != nil {
		return Offer{}, internal("load blacklist", err)
	}
	return Offer{Job: job, CustomerTowns: towns, Blacklist: blacklist}, nil
}

func (o Offer) forJob(job *Job) Offer {
	o.Job = job
	return o
}

// PotentialJobs returns the pending jobs the translator qualifies for.
func (m *Matcher) PotentialJobs(ctx context.Context, translator *User) ([]*Job, error) {
	return m.session().potentialJobs(ctx, translator)
}

// PotentialTranslators returns active translators eligible for the job, ordered by id.
func (m *Matcher) PotentialTranslators(ctx context.Context, job *Job) ([]*User, error) {
	offer, err := m.Offer(ctx, job)
	if err != nil {
		return nil, err
	}
	translators, err := m.repo.ListTranslators(ctx, 0)
	if err != nil {
		return nil, internal("list translators", err)
	}

	var out []*User
	for _, t := range translators {
		if IsEligible(offer, t) {
			out = append(out, t)
		}
	}
	sortByID(out)
	return out, nil
}

// Match returns the translators to push the job to, split into the cohort
// sent now and the cohort deferred to business hours.
func (m *Matcher) Match(ctx context.Context, job *Job, exclude int64) (Cohorts, error) {
	translators, err := m.repo.ListTranslators(ctx, exclude)
	if err != nil {
		return Cohorts{}, internal("list translators", err)
	}

	s := m.session()
	offer, err := s.offer(ctx, job)
	if err != nil {
		return Cohorts{}, err
	}

	night := m.clock.IsNightTime(m.clock.Now())
	var out Cohorts
	for _, t := range translators {
		if err := ctx.Err(); err != nil {
			return Cohorts{}, err
		}
		if t.Meta.NotGetNotification {
			continue
		}
		if job.Immediate && t.Meta.NotGetEmergency {
			continue
		}
		if !IsEligible(offer, t) {
			continue
		}

		jobs, err := s.potentialJobs(ctx, t)
		if err != nil {
			return Cohorts{}, err
		}
		if !containsJob(jobs, job.ID) {
			continue
		}

		immediate, err := m.immediate(ctx, job, t, night)
		if err != nil {
			return Cohorts{}, err
		}
		if immediate {
			out.Immediate = append(out.Immediate, t)
		} else {
			out.Delayed = append(out.Delayed, t)
		}
	}

	sortByID(out.Immediate)
	sortByID(out.Delayed)
	return out, nil
}

func (m *Matcher) immediate(ctx context.Context, job *Job, t *User, night bool) (bool, error) {
	if job.SpecificTranslatorID == nil {
		return !(night && t.Meta.NotGetNighttime), nil
	}
	if *job.SpecificTranslatorID != t.ID {
		return false, nil
	}
	return m.CanTakeParticular(ctx, job, t)
}

// CanTakeParticular reports whether a translator pre-assigned to the job
// is free for its whole session.
func (m *Matcher) CanTakeParticular(ctx context.Context, job *Job, t *User) (bool, error) {
	busy, err := m.repo.TranslatorBusy(ctx, t.ID, job.Due, job.End(), job.ID)
	if err != nil {
		return false, internal("check translator availability", err)
	}
	return !busy, nil
}

func (m *Matcher) session() *matchSession {
	return &matchSession{m: m, customers: make(map[int64]Offer)}
}

// matchSession memoises the pending job list and the per-customer towns and
// blacklist for one fan-out.
type matchSession struct {
	m         *Matcher
	pending   []*Job
	loaded    bool
	customers map[int64]Offer
}

func (s *matchSession) offer(ctx context.Context, job *Job) (Offer, error) {
	if o, ok := s.customers[job.UserID]; ok {
		return o.forJob(job), nil
	}
	o, err := s.m.Offer(ctx, job)
	if err != nil {
		return Offer{}, err
	}
	s.customers[job.UserID] = o
	return o, nil
}

func (s *matchSession) potentialJobs(ctx context.Context, t *User) ([]*Job, error) {
	if !s.loaded {
		jobs, err := s.m.repo.ListPendingJobs(ctx)
		if err != nil {
			return nil, internal("list pending jobs", err)
		}
		s.pending = jobs
		s.loaded = true
	}

	var out []*Job
	for _, job := range s.pending {
		o, err := s.offer(ctx, job)
		if err != nil {
			return nil, err
		}
		if IsEligible(o, t) {
			out = append(out, job)
		}
	}
	return out, nil
}

func containsJob(jobs []*Job, id int64) bool {
	for _, j := range jobs {
		if j.ID == id {
			return true
		}
	}
	return false
}

func sortByID(users []*User) {
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
}
