package notification

import (
	"context"
	"database/sql"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, n *Notification) error {
	query := `
		INSERT INTO notifications (recipient_id, sender_id, type, title, message, related_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`
	return r.db.QueryRowContext(ctx, query, n.RecipientID, n.SenderID, n.Type,
		n.Title, n.Message, n.RelatedID).Scan(&n.ID, &n.CreatedAt)
}

// ListForRecipient returns the user's notifications, newest first.
func (r *Repository) ListForRecipient(ctx context.Context, recipientID int64, limit int) ([]*Notification, error) {
	query := `
		SELECT id, recipient_id, sender_id, type, title, message, related_id, is_read, created_at
		FROM notifications
		WHERE recipient_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, recipientID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifs []*Notification
	for rows.Next() {
		n := &Notification{}
		if err := rows.Scan(&n.ID, &n.RecipientID, &n.SenderID, &n.Type, &n.Title,
			&n.Message, &n.RelatedID, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, err
		}
		notifs = append(notifs, n)
	}
	return notifs, rows.Err()
}

// MarkRead is scoped to the recipient so users cannot touch each other's
// notifications.
func (r *Repository) MarkRead(ctx context.Context, recipientID, notificationID int64) error {
	query := `UPDATE notifications SET is_read = TRUE WHERE id = $1 AND recipient_id = $2`
	_, err := r.db.ExecContext(ctx, query, notificationID, recipientID)
	return err
}
