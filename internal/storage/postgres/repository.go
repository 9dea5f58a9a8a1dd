// Package postgres implements the booking repository on PostgreSQL with sqlx.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/cuongbtq/booking-dispatch/internal/booking"
	"github.com/cuongbtq/booking-dispatch/shared/postgresql"
)

var _ booking.Repository = (*Repository)(nil)

var jobFields = []string{
	"id", "user_id", "from_language_id", "immediate", "due", "duration",
	"job_type", "certified", "gender", "customer_phone_type", "customer_physical_type",
	"town", "city", "user_email", "reference", "admin_comments", "session_time",
	"status", "by_admin", "specific_translator_id", "cust_16_hour_email", "cust_48_hour_email",
	"will_expire_at", "end_at", "withdraw_at", "created_at", "updated_at",
}

var jobColumns = strings.Join(jobFields, ", ")

const assignmentColumns = "id, job_id, user_id, created_at, cancel_at, completed_at, completed_by"

const activeAssignment = "cancel_at IS NULL AND completed_at IS NULL"

// Repository handles all database operations for bookings
type Repository struct {
	client *postgresql.Client
	db     *sqlx.DB
	logger *slog.Logger
}

// NewRepository creates a new Repository instance
func NewRepository(client *postgresql.Client, logger *slog.Logger) *Repository {
	return &Repository{
		client: client,
		db:     client.GetDB(),
		logger: logger,
	}
}

func (r *Repository) JobByID(ctx context.Context, id int64) (*booking.Job, error) {
	return getJob(ctx, r.db, id)
}

func (r *Repository) ListPendingJobs(ctx context.Context) ([]*booking.Job, error) {
	query := "SELECT " + jobColumns + " FROM jobs WHERE status = $1 ORDER BY id"

	var jobs []*booking.Job
	if err := r.db.SelectContext(ctx, &jobs, query, booking.StatusPending); err != nil {
		return nil, fmt.Errorf("failed to list pending jobs: %w", err)
	}
	return jobs, nil
}

func (r *Repository) ListJobs(ctx context.Context, filter booking.JobFilter) ([]*booking.Job, error) {
	query := "SELECT " + jobColumns + " FROM jobs WHERE 1=1"
	args := []interface{}{}
	argIdx := 1

	if filter.CustomerID != 0 {
		query += fmt.Sprintf(" AND user_id = $%d", argIdx)
		args = append(args, filter.CustomerID)
		argIdx++
	}

	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, filter.Status)
		argIdx++
	}

	if filter.Cursor != nil {
		query += fmt.Sprintf(" AND id < $%d", argIdx)
		args = append(args, filter.Cursor.JobID)
		argIdx++
	}

	query += " ORDER BY id DESC"

	if filter.PageSize > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, filter.PageSize)
	}

	var jobs []*booking.Job
	if err := r.db.SelectContext(ctx, &jobs, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	return jobs, nil
}

func (r *Repository) ExpiredPendingJobs(ctx context.Context, now time.Time, limit int) ([]*booking.Job, error) {
	query := "SELECT " + jobColumns + " FROM jobs WHERE status = $1 AND will_expire_at <= $2 ORDER BY will_expire_at, id"
	args := []interface{}{booking.StatusPending, now}
	if limit > 0 {
		query += " LIMIT $3"
		args = append(args, limit)
	}

	var jobs []*booking.Job
	if err := r.db.SelectContext(ctx, &jobs, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list expired jobs: %w", err)
	}
	return jobs, nil
}

func (r *Repository) ActiveAssignment(ctx context.Context, jobID int64) (*booking.Assignment, error) {
	query := "SELECT " + assignmentColumns + " FROM translator_job_rel WHERE job_id = $1 AND " + activeAssignment

	var a booking.Assignment
	if err := r.db.GetContext(ctx, &a, query, jobID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("active assignment for job %d: %w", jobID, booking.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get active assignment: %w", err)
	}
	return &a, nil
}

func (r *Repository) TranslatorBusy(ctx context.Context, translatorID int64, from, to time.Time, skipJobID int64) (bool, error) {
	return translatorBusy(ctx, r.db, translatorID, from, to, skipJobID)
}

func (r *Repository) CreateJob(ctx context.Context, job *booking.Job) (*booking.Job, error) {
	created, err := insertJob(ctx, r.db, job)
	if err != nil {
		return nil, err
	}

	r.logger.Info("Job created",
		slog.Int64("job_id", created.ID),
		slog.Int64("user_id", created.UserID),
	)
	return created, nil
}

func (r *Repository) SaveJob(ctx context.Context, job *booking.Job) error {
	return updateJob(ctx, r.db, job)
}

const selectJob = "SELECT %s FROM jobs WHERE id = $1"

func getJob(ctx context.Context, q sqlx.QueryerContext, id int64) (*booking.Job, error) {
	var job booking.Job
	if err := sqlx.GetContext(ctx, q, &job, fmt.Sprintf(selectJob, jobColumns), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("job %d: %w", id, booking.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return &job, nil
}

const insertJobSQL = `
	INSERT INTO jobs (
		user_id, from_language_id, immediate, due, duration,
		job_type, certified, gender, customer_phone_type, customer_physical_type,
		town, city, user_email, reference, admin_comments, session_time,
		status, by_admin, specific_translator_id, cust_16_hour_email, cust_48_hour_email,
		will_expire_at, end_at, withdraw_at, created_at, updated_at
	) VALUES (
		:user_id, :from_language_id, :immediate, :due, :duration,
		:job_type, :certified, :gender, :customer_phone_type, :customer_physical_type,
		:town, :city, :user_email, :reference, :admin_comments, :session_time,
		:status, :by_admin, :specific_translator_id, :cust_16_hour_email, :cust_48_hour_email,
		:will_expire_at, :end_at, :withdraw_at, :created_at, :updated_at
	)
	RETURNING id
`

func insertJob(ctx context.Context, q sqlx.QueryerContext, job *booking.Job) (*booking.Job, error) {
	query, args, err := sqlx.Named(insertJobSQL, job)
	if err != nil {
		return nil, fmt.Errorf("failed to bind job insert: %w", err)
	}

	created := job.Clone()
	if err := q.QueryRowxContext(ctx, sqlx.Rebind(sqlx.DOLLAR, query), args...).Scan(&created.ID); err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}
	return created, nil
}

const updateJobSQL = `
	UPDATE jobs SET
		from_language_id = :from_language_id,
		immediate = :immediate,
		due = :due,
		duration = :duration,
		job_type = :job_type,
		certified = :certified,
		gender = :gender,
		customer_phone_type = :customer_phone_type,
		customer_physical_type = :customer_physical_type,
		town = :town,
		city = :city,
		user_email = :user_email,
		reference = :reference,
		admin_comments = :admin_comments,
		session_time = :session_time,
		status = :status,
		by_admin = :by_admin,
		specific_translator_id = :specific_translator_id,
		cust_16_hour_email = :cust_16_hour_email,
		cust_48_hour_email = :cust_48_hour_email,
		will_expire_at = :will_expire_at,
		end_at = :end_at,
		withdraw_at = :withdraw_at,
		created_at = :created_at,
		updated_at = :updated_at
	WHERE id = :id
`

func updateJob(ctx context.Context, e sqlx.ExecerContext, job *booking.Job) error {
	query, args, err := sqlx.Named(updateJobSQL, job)
	if err != nil {
		return fmt.Errorf("failed to bind job update: %w", err)
	}

	result, err := e.ExecContext(ctx, sqlx.Rebind(sqlx.DOLLAR, query), args...)
	if err != nil {
		return fmt.Errorf("failed to update job: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("job %d: %w", job.ID, booking.ErrNotFound)
	}
	return nil
}

func translatorBusy(ctx context.Context, q sqlx.QueryerContext, translatorID int64, from, to time.Time, skipJobID int64) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM translator_job_rel r
			JOIN jobs j ON j.id = r.job_id
			WHERE r.user_id = $1
			  AND r.cancel_at IS NULL AND r.completed_at IS NULL
			  AND r.job_id <> $2
			  AND j.due < $3
			  AND $4 < j.due + make_interval(mins => j.duration)
		)
	`

	var busy bool
	if err := sqlx.GetContext(ctx, q, &busy, query, translatorID, skipJobID, to, from); err != nil {
		return false, fmt.Errorf("failed to check translator schedule: %w", err)
	}
	return busy, nil
}
