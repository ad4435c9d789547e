package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"greenhouse_control/internal/models"

	"github.com/google/uuid"
)

type NotificationSQLite struct {
	db *sql.DB
}

func NewNotificationSQLite(db *sql.DB) *NotificationSQLite {
	return &NotificationSQLite{db: db}
}

const insertNotificationSQL = `INSERT INTO notifications (id, created_at, severity, message, recipients)
	VALUES (?, ?, ?, ?, ?)`

func (r *NotificationSQLite) Create(ctx context.Context, n models.Notification) error {
	if n.NotificationID == "" {
		n.NotificationID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	recipients := n.Recipients
	if recipients == nil {
		recipients = []int{}
	}
	b, err := json.Marshal(recipients)
	if err != nil {
		return fmt.Errorf("marshal recipients: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, insertNotificationSQL,
		n.NotificationID, sqliteTime(n.CreatedAt), string(n.Severity), n.Message, string(b),
	); err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}
