package pgstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bookwell/notify/pkg/notify"
)

// Storage is the PostgreSQL implementation of notify.Storage. The channels
// column is JSONB and per-channel outcomes are applied with jsonb_set keyed
// by channel name, so concurrent updates to different channels of one row
// merge instead of overwriting each other.
type Storage struct {
	pool *pgxpool.Pool
}

// New creates a notification store on the given connection pool.
func New(pool *pgxpool.Pool) *Storage {
	return &Storage{pool: pool}
}

// Setup applies the store's schema. Call once at service start, or apply
// Schema through the host's migration tooling instead.
func (s *Storage) Setup(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("pgstore: failed to apply schema: %w", err)
	}
	return nil
}

const selectColumns = `
	id, recipient_id, COALESCE(sender_id, ''), type, title, message,
	data, priority, channels, in_app, is_read, is_archived,
	scheduled_for, dispatched_at, expires_at, created_at`

func scanNotification(row pgx.Row) (*notify.Notification, error) {
	var (
		n        notify.Notification
		data     []byte
		channels []byte
		inApp    []byte
	)
	err := row.Scan(
		&n.ID, &n.RecipientID, &n.SenderID, &n.Type, &n.Title, &n.Message,
		&data, &n.Priority, &channels, &inApp, &n.IsRead, &n.IsArchived,
		&n.ScheduledFor, &n.DispatchedAt, &n.ExpiresAt, &n.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notify.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("pgstore: failed to scan notification: %w", err)
	}

	if len(data) > 0 {
		if err := json.Unmarshal(data, &n.Data); err != nil {
			return nil, fmt.Errorf("pgstore: malformed data payload: %w", err)
		}
	}
	if len(channels) > 0 {
		if err := json.Unmarshal(channels, &n.Channels); err != nil {
			return nil, fmt.Errorf("pgstore: malformed channels payload: %w", err)
		}
	}
	if len(inApp) > 0 {
		if err := json.Unmarshal(inApp, &n.InApp); err != nil {
			return nil, fmt.Errorf("pgstore: malformed in_app payload: %w", err)
		}
	}
	return &n, nil
}

func (s *Storage) Create(ctx context.Context, n notify.Notification) error {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}

	data, err := json.Marshal(n.Data)
	if err != nil {
		return fmt.Errorf("pgstore: failed to encode data payload: %w", err)
	}
	channels, err := json.Marshal(n.Channels)
	if err != nil {
		return fmt.Errorf("pgstore: failed to encode channels: %w", err)
	}
	inApp, err := json.Marshal(n.InApp)
	if err != nil {
		return fmt.Errorf("pgstore: failed to encode in_app: %w", err)
	}

	var senderID *string
	if n.SenderID != "" {
		senderID = &n.SenderID
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO notifications (
			id, recipient_id, sender_id, type, title, message, data,
			priority, channels, in_app, is_read, is_archived,
			scheduled_for, dispatched_at, expires_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		n.ID, n.RecipientID, senderID, n.Type, n.Title, n.Message, data,
		n.Priority, channels, inApp, n.IsRead, n.IsArchived,
		n.ScheduledFor, n.DispatchedAt, n.ExpiresAt, n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("pgstore: failed to insert notification: %w", err)
	}
	return nil
}

func (s *Storage) Get(ctx context.Context, id string) (*notify.Notification, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+selectColumns+` FROM notifications WHERE id = $1`, id)
	return scanNotification(row)
}

func (s *Storage) List(ctx context.Context, recipientID string, opts notify.ListOptions) (*notify.Page, error) {
	where := `WHERE recipient_id = $1 AND NOT is_archived
		AND (expires_at IS NULL OR expires_at > now())`
	args := []any{recipientID}

	if opts.Type != "" {
		args = append(args, opts.Type)
		where += fmt.Sprintf(` AND type = $%d`, len(args))
	}
	if opts.IsRead != nil {
		args = append(args, *opts.IsRead)
		where += fmt.Sprintf(` AND is_read = $%d`, len(args))
	}
	if opts.Priority != "" {
		args = append(args, opts.Priority)
		where += fmt.Sprintf(` AND priority = $%d`, len(args))
	}

	var total int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM notifications `+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("pgstore: failed to count notifications: %w", err)
	}

	query := `SELECT ` + selectColumns + ` FROM notifications ` + where + ` ORDER BY created_at DESC`
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}
	if opts.Offset > 0 {
		args = append(args, opts.Offset)
		query += fmt.Sprintf(` OFFSET $%d`, len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("pgstore: failed to list notifications: %w", err)
	}
	defer rows.Close()

	var items []notify.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgstore: failed to iterate notifications: %w", err)
	}

	unread, err := s.CountUnread(ctx, recipientID)
	if err != nil {
		return nil, err
	}

	return &notify.Page{
		Items:       items,
		Total:       total,
		UnreadCount: unread,
		Limit:       opts.Limit,
		Offset:      opts.Offset,
	}, nil
}

func (s *Storage) SetChannelResult(ctx context.Context, id string, ch notify.Channel, res notify.ChannelResult) error {
	status := map[string]any{
		"sent":  res.Sent,
		"error": res.Error,
	}
	if res.SentAt != nil {
		status["sent_at"] = res.SentAt
	}
	payload, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("pgstore: failed to encode channel result: %w", err)
	}

	// The sent guard makes success write-once; attempts are carried over
	// from the existing status before the merge overwrites the rest.
	tag, err := s.pool.Exec(ctx, `
		UPDATE notifications
		SET channels = jsonb_set(
			channels,
			ARRAY[$2],
			(COALESCE(channels->$2, '{}'::jsonb) || $3::jsonb)
				|| jsonb_build_object('attempts', COALESCE((channels->$2->>'attempts')::int, 0) + 1)
		)
		WHERE id = $1
		  AND COALESCE((channels->$2->>'sent')::bool, false) = false`,
		id, string(ch), payload,
	)
	if err != nil {
		return fmt.Errorf("pgstore: failed to update channel status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Either the id is unknown or the channel already settled as sent.
		if _, err := s.Get(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func (s *Storage) MarkRead(ctx context.Context, id, recipientID string) (*notify.Notification, error) {
	n, err := s.authorized(ctx, id, recipientID)
	if err != nil {
		return nil, err
	}
	switch n.State() {
	case notify.StateArchived:
		return nil, notify.ErrArchived
	case notify.StateRead:
		return n, nil
	}

	_, err = s.pool.Exec(ctx, `
		UPDATE notifications
		SET is_read = TRUE,
		    in_app = jsonb_build_object('read', true, 'read_at', to_jsonb(now()))
		WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("pgstore: failed to mark notification read: %w", err)
	}
	return s.Get(ctx, id)
}

func (s *Storage) MarkAllRead(ctx context.Context, recipientID string) (int, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE notifications
		SET is_read = TRUE,
		    in_app = jsonb_build_object('read', true, 'read_at', to_jsonb(now()))
		WHERE recipient_id = $1 AND NOT is_read AND NOT is_archived`, recipientID)
	if err != nil {
		return 0, fmt.Errorf("pgstore: failed to mark all read: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (s *Storage) Archive(ctx context.Context, id, recipientID string) (*notify.Notification, error) {
	n, err := s.authorized(ctx, id, recipientID)
	if err != nil {
		return nil, err
	}
	if n.IsArchived {
		return n, nil
	}

	if _, err := s.pool.Exec(ctx, `UPDATE notifications SET is_archived = TRUE WHERE id = $1`, id); err != nil {
		return nil, fmt.Errorf("pgstore: failed to archive notification: %w", err)
	}
	return s.Get(ctx, id)
}

func (s *Storage) CountUnread(ctx context.Context, recipientID string) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `
		SELECT count(*) FROM notifications
		WHERE recipient_id = $1 AND NOT is_read AND NOT is_archived
		  AND (expires_at IS NULL OR expires_at > now())`, recipientID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("pgstore: failed to count unread: %w", err)
	}
	return count, nil
}

func (s *Storage) ListDue(ctx context.Context, now time.Time, limit int) ([]notify.Notification, error) {
	query := `SELECT ` + selectColumns + ` FROM notifications
		WHERE dispatched_at IS NULL
		  AND (scheduled_for IS NULL OR scheduled_for <= $1)
		  AND (expires_at IS NULL OR expires_at > $1)
		ORDER BY scheduled_for ASC NULLS FIRST`
	args := []any{now}
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("pgstore: failed to list due notifications: %w", err)
	}
	defer rows.Close()

	var items []notify.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgstore: failed to iterate due notifications: %w", err)
	}
	return items, nil
}

func (s *Storage) ClaimForDispatch(ctx context.Context, id string, at time.Time) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE notifications SET dispatched_at = $2
		WHERE id = $1 AND dispatched_at IS NULL`, id, at)
	if err != nil {
		return false, fmt.Errorf("pgstore: failed to claim notification: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Storage) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM notifications
		WHERE expires_at IS NOT NULL AND expires_at < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("pgstore: failed to delete expired notifications: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (s *Storage) authorized(ctx context.Context, id, recipientID string) (*notify.Notification, error) {
	n, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if n.RecipientID != recipientID {
		return nil, notify.ErrAccessDenied
	}
	return n, nil
}
