package model

import (
	"time"
)

// RecentEventsLimit caps EventStats.RecentEvents
const RecentEventsLimit = 50

// EventType names an engagement action recorded against an email
type EventType string

const (
	EventOpen  EventType = "open"
	EventClick EventType = "click"
)

// Tenant represents the tenants table
type Tenant struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Email represents the emails table. An email is only reachable through
// its owning tenant.
type Email struct {
	ID        int64     `json:"id"`
	TenantID  string    `json:"tenant_id"`
	Subject   *string   `json:"subject,omitempty"`
	Recipient *string   `json:"recipient,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Event represents the events table (append-only)
type Event struct {
	ID        int64     `json:"id"`
	EmailID   int64     `json:"email_id"`
	EventType EventType `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
	UserAgent *string   `json:"user_agent,omitempty"`
	IPAddress *string   `json:"ip_address,omitempty"`
}

// EventStats is computed from the event log on every request
type EventStats struct {
	TotalOpens   int64   `json:"total_opens"`
	TotalClicks  int64   `json:"total_clicks"`
	UniqueOpens  int64   `json:"unique_opens"`
	UniqueClicks int64   `json:"unique_clicks"`
	RecentEvents []Event `json:"recent_events"`
}
