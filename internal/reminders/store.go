package reminders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/wolfman30/clinic-booking-assistant/internal/treatments"
)

// DB abstracts the pgx query interface for testing.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const reminderColumns = `id, appointment_id, customer_id, treatment, appointment_date, appointment_time, starts_at, remind_at, status, sent_at, created_at, updated_at`

// Store persists reminders in the appointment_reminders table.
type Store struct {
	db DB
}

func NewStore(db DB) *Store {
	if db == nil {
		panic("reminders: db cannot be nil")
	}
	return &Store{db: db}
}

// Upsert schedules a reminder for an appointment. An existing reminder for
// the same appointment is moved to the new time and made pending again.
func (s *Store) Upsert(ctx context.Context, r *Reminder) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	now := time.Now().UTC()
	r.CreatedAt = now
	r.UpdatedAt = now
	r.Status = StatusPending

	err := s.db.QueryRow(ctx, `
		INSERT INTO appointment_reminders (id, appointment_id, customer_id, treatment, appointment_date, appointment_time, starts_at, remind_at, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (appointment_id) DO UPDATE SET
			customer_id = EXCLUDED.customer_id,
			treatment = EXCLUDED.treatment,
			appointment_date = EXCLUDED.appointment_date,
			appointment_time = EXCLUDED.appointment_time,
			starts_at = EXCLUDED.starts_at,
			remind_at = EXCLUDED.remind_at,
			status = 'pending',
			sent_at = NULL,
			updated_at = EXCLUDED.updated_at
		RETURNING id`,
		r.ID, r.AppointmentID, r.CustomerID, string(r.Treatment), r.AppointmentDate, r.AppointmentTime,
		r.StartsAt, r.RemindAt, string(r.Status), r.CreatedAt, r.UpdatedAt,
	).Scan(&r.ID)
	if err != nil {
		return fmt.Errorf("reminders: upsert reminder: %w", err)
	}
	return nil
}

// ListDue returns pending reminders whose remind_at is on or before asOf,
// oldest first.
func (s *Store) ListDue(ctx context.Context, asOf time.Time, limit int) ([]Reminder, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(ctx, `
		SELECT `+reminderColumns+`
		FROM appointment_reminders
		WHERE status = 'pending' AND remind_at <= $1
		ORDER BY remind_at ASC LIMIT $2`, asOf, limit)
	if err != nil {
		return nil, fmt.Errorf("reminders: list due: %w", err)
	}
	defer rows.Close()
	return scanReminders(rows)
}

// ListByCustomer returns the most recent reminders for one customer.
func (s *Store) ListByCustomer(ctx context.Context, customerID string, limit int) ([]Reminder, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(ctx, `
		SELECT `+reminderColumns+`
		FROM appointment_reminders
		WHERE customer_id = $1
		ORDER BY starts_at DESC LIMIT $2`, customerID, limit)
	if err != nil {
		return nil, fmt.Errorf("reminders: list by customer: %w", err)
	}
	defer rows.Close()
	return scanReminders(rows)
}

// MarkSent transitions a reminder from pending to sent.
func (s *Store) MarkSent(ctx context.Context, id uuid.UUID) error {
	now := time.Now().UTC()
	tag, err := s.db.Exec(ctx, `
		UPDATE appointment_reminders SET status = 'sent', sent_at = $1, updated_at = $1
		WHERE id = $2 AND status = 'pending'`, now, id)
	if err != nil {
		return fmt.Errorf("reminders: mark sent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("reminders: mark sent: no pending reminder with id %s", id)
	}
	return nil
}

// MarkFailed takes a pending reminder out of the queue without sending it.
func (s *Store) MarkFailed(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.Exec(ctx, `
		UPDATE appointment_reminders SET status = 'failed', updated_at = $1
		WHERE id = $2 AND status = 'pending'`, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("reminders: mark failed: %w", err)
	}
	return nil
}

// CancelByAppointment cancels the pending reminder of an appointment, if any.
func (s *Store) CancelByAppointment(ctx context.Context, appointmentID string) (int64, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE appointment_reminders SET status = 'cancelled', updated_at = $1
		WHERE appointment_id = $2 AND status = 'pending'`, time.Now().UTC(), appointmentID)
	if err != nil {
		return 0, fmt.Errorf("reminders: cancel by appointment: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	row := s.db.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE status = 'pending') AS pending,
			COUNT(*) FILTER (WHERE status = 'sent') AS sent,
			COUNT(*) FILTER (WHERE status = 'failed') AS failed,
			COUNT(*) FILTER (WHERE status = 'cancelled') AS cancelled
		FROM appointment_reminders`)

	var stats Stats
	if err := row.Scan(&stats.Pending, &stats.Sent, &stats.Failed, &stats.Cancelled); err != nil {
		return nil, fmt.Errorf("reminders: stats: %w", err)
	}
	return &stats, nil
}

func scanReminders(rows pgx.Rows) ([]Reminder, error) {
	var result []Reminder
	for rows.Next() {
		var r Reminder
		var treatment, status string
		err := rows.Scan(
			&r.ID, &r.AppointmentID, &r.CustomerID, &treatment,
			&r.AppointmentDate, &r.AppointmentTime, &r.StartsAt, &r.RemindAt,
			&status, &r.SentAt, &r.CreatedAt, &r.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("reminders: scan reminder: %w", err)
		}
		r.Treatment = treatments.Code(treatment)
		r.Status = Status(status)
		result = append(result, r)
	}
	return result, rows.Err()
}
