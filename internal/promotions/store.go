package promotions

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB abstracts the pgx query interface for testing.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store persists recipients, schedules and the send log.
type Store struct {
	db DB
}

func NewStore(db DB) *Store {
	if db == nil {
		panic("promotions: db cannot be nil")
	}
	return &Store{db: db}
}

// UpsertRecipient adds a recipient or updates an existing one by phone.
func (s *Store) UpsertRecipient(ctx context.Context, r *Recipient) error {
	r.Phone = strings.TrimPrefix(strings.TrimSpace(r.Phone), "+")
	if r.Phone == "" {
		return fmt.Errorf("%w: phone required", ErrInvalidRecipient)
	}
	if r.Categories == nil {
		r.Categories = []string{"all"}
	}
	now := time.Now().UTC()
	r.CreatedAt = now
	r.UpdatedAt = now
	_, err := s.db.Exec(ctx, `
		INSERT INTO promotion_recipients (phone, name, opt_in, categories, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (phone) DO UPDATE SET
			name = EXCLUDED.name,
			opt_in = EXCLUDED.opt_in,
			categories = EXCLUDED.categories,
			updated_at = EXCLUDED.updated_at`,
		r.Phone, r.Name, r.OptIn, r.Categories, r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("promotions: upsert recipient: %w", err)
	}
	return nil
}

// SetOptIn changes a recipient's subscription. It reports false when the
// phone is not on the list.
func (s *Store) SetOptIn(ctx context.Context, phone string, optIn bool) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE promotion_recipients SET opt_in = $1, updated_at = $2
		WHERE phone = $3`, optIn, time.Now().UTC(), strings.TrimPrefix(phone, "+"))
	if err != nil {
		return false, fmt.Errorf("promotions: set opt in: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ListSubscribers returns every opted-in recipient.
func (s *Store) ListSubscribers(ctx context.Context) ([]Recipient, error) {
	rows, err := s.db.Query(ctx, `
		SELECT phone, name, opt_in, categories, created_at, updated_at
		FROM promotion_recipients
		WHERE opt_in
		ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("promotions: list subscribers: %w", err)
	}
	defer rows.Close()

	var out []Recipient
	for rows.Next() {
		var r Recipient
		if err := rows.Scan(&r.Phone, &r.Name, &r.OptIn, &r.Categories, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("promotions: scan recipient: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) CreatePromotion(ctx context.Context, p *Promotion) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	params, err := json.Marshal(p.Params)
	if err != nil {
		return fmt.Errorf("promotions: encode template params: %w", err)
	}
	p.CreatedAt = time.Now().UTC()
	_, err = s.db.Exec(ctx, `
		INSERT INTO weekly_promotions (id, weekday, send_time, template_name, template_params, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		p.ID, int(p.Weekday), p.Time, p.TemplateName, params, p.Active, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("promotions: create promotion: %w", err)
	}
	return nil
}

// ListActive returns the active weekly schedule.
func (s *Store) ListActive(ctx context.Context) ([]Promotion, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, weekday, send_time, template_name, template_params, active, created_at
		FROM weekly_promotions
		WHERE active
		ORDER BY weekday, send_time`)
	if err != nil {
		return nil, fmt.Errorf("promotions: list active: %w", err)
	}
	defer rows.Close()

	var out []Promotion
	for rows.Next() {
		var p Promotion
		var weekday int
		var params []byte
		if err := rows.Scan(&p.ID, &weekday, &p.Time, &p.TemplateName, &params, &p.Active, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("promotions: scan promotion: %w", err)
		}
		p.Weekday = time.Weekday(weekday)
		if len(params) > 0 {
			if err := json.Unmarshal(params, &p.Params); err != nil {
				return nil, fmt.Errorf("promotions: decode template params for %s: %w", p.ID, err)
			}
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Deactivate stops a promotion from being sent again.
func (s *Store) Deactivate(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := s.db.Exec(ctx, `UPDATE weekly_promotions SET active = false WHERE id = $1 AND active`, id)
	if err != nil {
		return false, fmt.Errorf("promotions: deactivate: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ClaimOccurrence records that an occurrence is being sent. Only the first
// caller for a given promotion and occurrence gets true, which keeps a
// broadcast from going out twice.
func (s *Store) ClaimOccurrence(ctx context.Context, p Promotion, occurrence time.Time) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		INSERT INTO promotion_sends (promotion_id, template_name, occurrence, delivered, failed, started_at)
		VALUES ($1, $2, $3, 0, 0, $4)
		ON CONFLICT (promotion_id, occurrence) DO NOTHING`,
		p.ID, p.TemplateName, occurrence.UTC(), time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("promotions: claim occurrence: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// CompleteOccurrence stores the delivery counts of a finished broadcast.
func (s *Store) CompleteOccurrence(ctx context.Context, id uuid.UUID, occurrence time.Time, delivered, failed int) error {
	_, err := s.db.Exec(ctx, `
		UPDATE promotion_sends SET delivered = $1, failed = $2, completed_at = $3
		WHERE promotion_id = $4 AND occurrence = $5`,
		delivered, failed, time.Now().UTC(), id, occurrence.UTC())
	if err != nil {
		return fmt.Errorf("promotions: complete occurrence: %w", err)
	}
	return nil
}

// ListSends returns the most recent broadcasts.
func (s *Store) ListSends(ctx context.Context, limit int) ([]Send, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(ctx, `
		SELECT promotion_id, template_name, occurrence, delivered, failed, completed_at
		FROM promotion_sends
		ORDER BY occurrence DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("promotions: list sends: %w", err)
	}
	defer rows.Close()

	var out []Send
	for rows.Next() {
		var send Send
		if err := rows.Scan(&send.PromotionID, &send.TemplateName, &send.Occurrence, &send.Delivered, &send.Failed, &send.CompletedAt); err != nil {
			return nil, fmt.Errorf("promotions: scan send: %w", err)
		}
		out = append(out, send)
	}
	return out, rows.Err()
}
