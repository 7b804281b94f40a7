package api

import (
	_ "embed"
	"fmt"

	"github.com/osteele/liquid"
	"github.com/teresa-solution/email-tracking-service/internal/model"
	"github.com/teresa-solution/email-tracking-service/internal/service"
)

//go:embed templates/dashboard.liquid
var dashboardSource string

const timestampLayout = "2006-01-02 15:04:05 UTC"

// dashboardRenderer renders the tenant dashboard. The template is parsed
// once; rendering is safe for concurrent use.
type dashboardRenderer struct {
	tpl     *liquid.Template
	baseURL string
}

func newDashboardRenderer(baseURL string) (*dashboardRenderer, error) {
	engine := liquid.NewEngine()
	tpl, err := engine.ParseString(dashboardSource)
	if err != nil {
		return nil, fmt.Errorf("parse dashboard template: %w", err)
	}
	return &dashboardRenderer{tpl: tpl, baseURL: baseURL}, nil
}

func (d *dashboardRenderer) render(tenantID string, view *service.DashboardView) (string, error) {
	out, err := d.tpl.RenderString(dashboardBindings(tenantID, d.baseURL, view))
	if err != nil {
		return "", fmt.Errorf("render dashboard: %w", err)
	}
	return out, nil
}

func dashboardBindings(tenantID, baseURL string, view *service.DashboardView) map[string]interface{} {
	stats := view.Stats
	events := make([]map[string]interface{}, 0, len(stats.RecentEvents))
	for _, e := range stats.RecentEvents {
		events = append(events, map[string]interface{}{
			"email_id":   e.EmailID,
			"event_type": string(e.EventType),
			"timestamp":  e.Timestamp.UTC().Format(timestampLayout),
			"user_agent": orDash(e.UserAgent),
			"ip_address": orDash(e.IPAddress),
		})
	}

	tenantName := tenantID
	if view.Tenant != nil {
		tenantName = view.Tenant.Name
	}

	return map[string]interface{}{
		"tenant_id":   tenantID,
		"tenant_name": tenantName,
		"base_url":    baseURL,
		"stats": map[string]interface{}{
			"total_opens":   stats.TotalOpens,
			"total_clicks":  stats.TotalClicks,
			"unique_opens":  stats.UniqueOpens,
			"unique_clicks": stats.UniqueClicks,
		},
		"recent_events": events,
		"event_limit":   model.RecentEventsLimit,
	}
}

func orDash(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}
