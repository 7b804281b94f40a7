package store

import (
	"context"

	"github.com/teresa-solution/email-tracking-service/internal/model"
)

const countsQuery = `SELECT
        COUNT(CASE WHEN e.event_type = 'open' THEN 1 END),
        COUNT(CASE WHEN e.event_type = 'click' THEN 1 END),
        COUNT(DISTINCT CASE WHEN e.event_type = 'open' THEN e.email_id END),
        COUNT(DISTINCT CASE WHEN e.event_type = 'click' THEN e.email_id END)
    FROM events e
    JOIN emails em ON e.email_id = em.id
    WHERE em.tenant_id = $1`

const recentEventsQuery = `SELECT e.id, e.email_id, e.event_type, e."timestamp", e.user_agent, e.ip_address
    FROM events e
    JOIN emails em ON e.email_id = em.id
    WHERE em.tenant_id = $1
    ORDER BY e."timestamp" DESC, e.id DESC
    LIMIT $2`

// GetTenantStats aggregates the tenant's event log. A tenant without
// emails or events yields zero counts and an empty feed.
//
// Both queries run under one hold of the store lock, so no append can land
// between them within this process.
func (s *Store) GetTenantStats(ctx context.Context, tenantID string) (*model.EventStats, error) {
	defer s.lock("get_tenant_stats")()

	stats := &model.EventStats{RecentEvents: []model.Event{}}
	err := s.db.QueryRowContext(ctx, countsQuery, tenantID).Scan(
		&stats.TotalOpens, &stats.TotalClicks, &stats.UniqueOpens, &stats.UniqueClicks,
	)
	if err != nil {
		return nil, fault("get_tenant_stats", err)
	}

	rows, err := s.db.QueryContext(ctx, recentEventsQuery, tenantID, model.RecentEventsLimit)
	if err != nil {
		return nil, fault("get_tenant_stats", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			event     model.Event
			eventType string
		)
		if err := rows.Scan(&event.ID, &event.EmailID, &eventType, &event.Timestamp, &event.UserAgent, &event.IPAddress); err != nil {
			return nil, fault("get_tenant_stats", err)
		}
		event.EventType = model.EventType(eventType)
		stats.RecentEvents = append(stats.RecentEvents, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fault("get_tenant_stats", err)
	}
	return stats, nil
}
