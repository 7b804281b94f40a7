package store

import (
	"context"

	"github.com/teresa-solution/email-tracking-service/internal/model"
)

// LogEvent appends one event stamped with the store clock. The email is
// not looked up: callers verify ownership with GetEmail first.
func (s *Store) LogEvent(ctx context.Context, emailID int64, eventType model.EventType, userAgent, ipAddress *string) error {
	defer s.lock("log_event")()

	query := `INSERT INTO events (email_id, event_type, "timestamp", user_agent, ip_address)
              VALUES ($1, $2, $3, $4, $5)`
	_, err := s.db.ExecContext(ctx, query, emailID, string(eventType), s.timestamp(), userAgent, ipAddress)
	return fault("log_event", err)
}
