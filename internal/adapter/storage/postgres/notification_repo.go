package postgres

import (
	"context"
	"fmt"

	"sadad-payment-service/internal/core/domain"
)

// NotificationRepo implements ports.NotificationRepository.
type NotificationRepo struct {
	pool Pool
}

// NewNotificationRepo creates a new NotificationRepo.
func NewNotificationRepo(pool Pool) *NotificationRepo {
	return &NotificationRepo{pool: pool}
}

// CreateMany inserts notifications, skipping any that already exist for the same
// user, type and source record. Returns how many rows were inserted.
func (r *NotificationRepo) CreateMany(ctx context.Context, notes []domain.Notification) (int, error) {
	query := `INSERT INTO notifications (id, user_id, type, title, message, related_kind, related_id, amount, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id, type, related_id) DO NOTHING`

	inserted := 0
	for _, n := range notes {
		tag, err := r.pool.Exec(ctx, query,
			n.ID, n.UserID, n.Type, n.Title, n.Message, string(n.SourceKind), n.SourceID, n.Amount, n.CreatedAt,
		)
		if err != nil {
			return inserted, fmt.Errorf("insert notification: %w", err)
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, nil
}
