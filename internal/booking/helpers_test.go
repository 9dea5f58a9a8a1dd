package booking_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/booking-dispatch/internal/booking"
	"github.com/cuongbtq/booking-dispatch/internal/businesstime"
	"github.com/cuongbtq/booking-dispatch/internal/storage/memory"
)

const (
	customerID = int64(100)
	adminID    = int64(900)
	swedish    = int64(1)
)

var stockholm = businesstime.MustDefault().Location()

func at(y int, m time.Month, d, h, min int) time.Time {
	return time.Date(y, m, d, h, min, 0, 0, stockholm)
}

// midday on a Tuesday, outside the night window
var defaultNow = at(2024, 3, 5, 12, 0)

type mailRecorder struct {
	mu   sync.Mutex
	sent []booking.Mail
	fail map[string]error
}

func (m *mailRecorder) Send(_ context.Context, mail booking.Mail) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail[mail.Template]; err != nil {
		return err
	}
	m.sent = append(m.sent, mail)
	return nil
}

func (m *mailRecorder) templates() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.sent))
	for _, s := range m.sent {
		out = append(out, s.Template)
	}
	return out
}

func (m *mailRecorder) all() []booking.Mail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]booking.Mail(nil), m.sent...)
}

type notifyCall struct {
	Kind   string
	JobID  int64
	UserID int64
}

type notifyRecorder struct {
	mu    sync.Mutex
	calls []notifyCall
	err   error
}

func (n *notifyRecorder) record(kind string, jobID, userID int64) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, notifyCall{Kind: kind, JobID: jobID, UserID: userID})
	return n.err
}

func (n *notifyRecorder) SuitableJob(_ context.Context, jobID, exclude int64) error {
	return n.record(booking.NotificationSuitableJob, jobID, exclude)
}

func (n *notifyRecorder) JobAccepted(_ context.Context, jobID int64) error {
	return n.record(booking.NotificationJobAccepted, jobID, 0)
}

func (n *notifyRecorder) JobCancelled(_ context.Context, jobID, userID int64) error {
	return n.record(booking.NotificationJobCancelled, jobID, userID)
}

func (n *notifyRecorder) SessionReminder(_ context.Context, jobID, translatorID int64) error {
	return n.record(booking.NotificationSessionReminder, jobID, translatorID)
}

func (n *notifyRecorder) JobExpired(_ context.Context, jobID int64) error {
	return n.record(booking.NotificationJobExpired, jobID, 0)
}

func (n *notifyRecorder) kinds() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.calls))
	for _, c := range n.calls {
		out = append(out, c.Kind)
	}
	return out
}

func (n *notifyRecorder) all() []notifyCall {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notifyCall(nil), n.calls...)
}

type pushRecorder struct {
	mu     sync.Mutex
	pushes []booking.Push
	err    error
}

func (p *pushRecorder) Push(_ context.Context, push booking.Push) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pushes = append(p.pushes, push)
	if p.err != nil {
		return "", p.err
	}
	return `{"id":"ok"}`, nil
}

func (p *pushRecorder) all() []booking.Push {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]booking.Push(nil), p.pushes...)
}

type smsCall struct {
	From, To, Message string
}

type smsRecorder struct {
	mu     sync.Mutex
	sent   []smsCall
	fail   map[string]error
	onSend func()
}

func (s *smsRecorder) Send(_ context.Context, from, to, message string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, smsCall{From: from, To: to, Message: message})
	if s.onSend != nil {
		s.onSend()
	}
	if err := s.fail[to]; err != nil {
		return "error", err
	}
	return "sent", nil
}

type eventRecorder struct {
	mu     sync.Mutex
	events []booking.Event
}

func (r *eventRecorder) Emit(_ context.Context, e booking.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *eventRecorder) last() booking.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return booking.Event{}
	}
	return r.events[len(r.events)-1]
}

type fixture struct {
	store    *memory.Store
	clock    *businesstime.Clock
	mailer   *mailRecorder
	notifier *notifyRecorder
	sms      *smsRecorder
	events   *eventRecorder
	smsLog   *bytes.Buffer
	svc      *booking.Service
}

func newFixture(t *testing.T, now time.Time) *fixture {
	t.Helper()

	f := &fixture{
		store:    memory.New(),
		clock:    businesstime.MustDefault().At(now),
		mailer:   &mailRecorder{fail: map[string]error{}},
		notifier: &notifyRecorder{},
		sms:      &smsRecorder{fail: map[string]error{}},
		events:   &eventRecorder{},
		smsLog:   &bytes.Buffer{},
	}

	f.store.AddLanguage(swedish, "Svenska")
	f.store.AddUser(&booking.User{
		ID:     customerID,
		Role:   booking.RoleCustomer,
		Name:   "Customer",
		Email:  "customer@example.com",
		Active: true,
		Meta:   booking.UserMeta{ConsumerType: "paid", City: "Stockholm"},
	})
	f.store.AddUser(&booking.User{ID: adminID, Role: booking.RoleAdmin, Name: "Admin", Email: "admin@example.com", Active: true})

	f.useRepo(f.store)
	return f
}

// useRepo rebuilds the service over repo, which usually wraps f.store.
func (f *fixture) useRepo(repo booking.Repository) {
	f.svc = booking.NewService(booking.Deps{
		Repo:     repo,
		Mailer:   f.mailer,
		Notifier: f.notifier,
		SMS:      f.sms,
		Events:   f.events,
		Clock:    f.clock,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		SMSAudit: slog.New(slog.NewTextHandler(f.smsLog, nil)),
		SMSFrom:  "+46700000000",
	})
}

func (f *fixture) translator(id int64, mutate ...func(u *booking.User)) *booking.User {
	u := &booking.User{
		ID:          id,
		Role:        booking.RoleTranslator,
		Name:        fmt.Sprintf("Translator %d", id),
		Email:       fmt.Sprintf("T%d@Example.com", id),
		Mobile:      fmt.Sprintf("+4670000%04d", id),
		Active:      true,
		LanguageIDs: []int64{swedish},
		Meta: booking.UserMeta{
			TranslatorType:  booking.TranslatorProfessional,
			TranslatorLevel: booking.LevelCertified,
		},
	}
	for _, m := range mutate {
		m(u)
	}
	f.store.AddUser(u)
	return u
}

func (f *fixture) job(due time.Time, mutate ...func(j *booking.Job)) *booking.Job {
	now := f.clock.Now()
	j := &booking.Job{
		UserID:            customerID,
		FromLanguageID:    swedish,
		Due:               due,
		Duration:          60,
		JobType:           booking.JobTypePaid,
		CustomerPhoneType: true,
		Status:            booking.StatusPending,
		WillExpireAt:      booking.WillExpireAt(due, now),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	for _, m := range mutate {
		m(j)
	}
	return f.store.AddJob(j)
}

func (f *fixture) assigned(due time.Time, translatorID int64, mutate ...func(j *booking.Job)) *booking.Job {
	// callers may override the status, e.g. to start the session
	mutate = append([]func(j *booking.Job){func(j *booking.Job) { j.Status = booking.StatusAssigned }}, mutate...)
	job := f.job(due, mutate...)
	f.store.Assign(job.ID, translatorID, f.clock.Now())
	return job
}

func (f *fixture) reload(t *testing.T, id int64) *booking.Job {
	t.Helper()
	job, err := f.store.JobByID(context.Background(), id)
	require.NoError(t, err)
	return job
}

func activeCount(assignments []*booking.Assignment) int {
	n := 0
	for _, a := range assignments {
		if a.Active() {
			n++
		}
	}
	return n
}

func customer() booking.Actor {
	return booking.Actor{UserID: customerID, Role: booking.RoleCustomer}
}

func admin() booking.Actor {
	return booking.Actor{UserID: adminID, Role: booking.RoleAdmin}
}

func translatorActor(id int64) booking.Actor {
	return booking.Actor{UserID: id, Role: booking.RoleTranslator}
}
