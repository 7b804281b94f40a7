package service

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/teresa-solution/email-tracking-service/internal/model"
	"github.com/teresa-solution/email-tracking-service/internal/monitoring"
)

// Repository is the storage surface the tracking operations need.
// *store.Store implements it.
type Repository interface {
	EnsureTenant(ctx context.Context, id, name string) error
	GetTenant(ctx context.Context, id string) (*model.Tenant, error)
	CreateEmail(ctx context.Context, tenantID string, subject, recipient *string) (int64, error)
	GetEmail(ctx context.Context, emailID int64, tenantID string) (*model.Email, error)
	LogEvent(ctx context.Context, emailID int64, eventType model.EventType, userAgent, ipAddress *string) error
	GetTenantStats(ctx context.Context, tenantID string) (*model.EventStats, error)
}

// Outcome classifies a tracking call that did not fail with a storage fault
type Outcome int

const (
	OutcomeRecorded Outcome = iota
	OutcomeNotFound
	OutcomeInvalidInput
)

func (o Outcome) String() string {
	switch o {
	case OutcomeRecorded:
		return "recorded"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeInvalidInput:
		return "invalid_input"
	default:
		return "unknown"
	}
}

// Result is the tagged result of a tracking operation. The error return of
// each operation is reserved for storage faults.
type Result struct {
	Outcome Outcome
	EmailID int64
	// RedirectURL is the unmodified target of a recorded click
	RedirectURL string
	// TrackingURL is set by ClickURL
	TrackingURL string
	// Reason explains OutcomeInvalidInput
	Reason string
}

type OpenRequest struct {
	TenantID string
	// EmailID is the raw path segment; a ".gif" suffix is accepted
	EmailID string
	Client  ClientInfo
}

type ClickRequest struct {
	TenantID  string
	EmailID   string
	TargetURL string
	Client    ClientInfo
}

// Registration is returned by RegisterEmail
type Registration struct {
	EmailID  int64  `json:"email_id"`
	PixelURL string `json:"tracking_pixel_url"`
}

// DashboardView is what the dashboard renders
type DashboardView struct {
	Tenant *model.Tenant
	Stats  *model.EventStats
}

type TrackingService struct {
	repo    Repository
	baseURL string
}

func NewTrackingService(repo Repository, baseURL string) *TrackingService {
	return &TrackingService{
		repo:    repo,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// TrackOpen records an open if the email belongs to the tenant
func (s *TrackingService) TrackOpen(ctx context.Context, req OpenRequest) (Result, error) {
	emailID, err := parseEmailID(strings.TrimSuffix(req.EmailID, ".gif"))
	if err != nil {
		return s.finish("open", Result{Outcome: OutcomeInvalidInput, Reason: err.Error()}), nil
	}

	res, err := s.record(ctx, req.TenantID, emailID, model.EventOpen, req.Client)
	if err != nil {
		return s.fail("open", fmt.Errorf("track open: %w", err))
	}
	return s.finish("open", res), nil
}

// TrackClick records a click if the email belongs to the tenant and hands
// back the target URL exactly as given
func (s *TrackingService) TrackClick(ctx context.Context, req ClickRequest) (Result, error) {
	emailID, err := parseEmailID(req.EmailID)
	if err != nil {
		return s.finish("click", Result{Outcome: OutcomeInvalidInput, Reason: err.Error()}), nil
	}
	if req.TargetURL == "" {
		return s.finish("click", Result{Outcome: OutcomeInvalidInput, Reason: "missing 'url' parameter"}), nil
	}

	res, err := s.record(ctx, req.TenantID, emailID, model.EventClick, req.Client)
	if err != nil {
		return s.fail("click", fmt.Errorf("track click: %w", err))
	}
	if res.Outcome == OutcomeRecorded {
		res.RedirectURL = req.TargetURL
	}
	return s.finish("click", res), nil
}

// record checks ownership before appending. LogEvent itself trusts its
// caller, so this is the only path that writes tracking events.
func (s *TrackingService) record(ctx context.Context, tenantID string, emailID int64, eventType model.EventType, client ClientInfo) (Result, error) {
	email, err := s.repo.GetEmail(ctx, emailID, tenantID)
	if err != nil {
		return Result{}, err
	}
	if email == nil {
		return Result{Outcome: OutcomeNotFound, EmailID: emailID}, nil
	}

	if err := s.repo.LogEvent(ctx, email.ID, eventType, client.userAgent(), client.ip()); err != nil {
		return Result{}, err
	}
	monitoring.EventsRecorded.WithLabelValues(string(eventType)).Inc()

	log.Debug().
		Str("tenant_id", tenantID).
		Int64("email_id", email.ID).
		Str("event_type", string(eventType)).
		Msg("Event recorded")
	return Result{Outcome: OutcomeRecorded, EmailID: email.ID}, nil
}

// ClickURL builds the tracked link for target after checking that the
// email belongs to the tenant. Nothing is recorded.
func (s *TrackingService) ClickURL(ctx context.Context, tenantID, rawEmailID, target string) (Result, error) {
	emailID, err := parseEmailID(rawEmailID)
	if err != nil {
		return s.finish("click_url", Result{Outcome: OutcomeInvalidInput, Reason: err.Error()}), nil
	}
	if target == "" {
		return s.finish("click_url", Result{Outcome: OutcomeInvalidInput, Reason: "missing 'url' parameter"}), nil
	}

	email, err := s.repo.GetEmail(ctx, emailID, tenantID)
	if err != nil {
		return s.fail("click_url", fmt.Errorf("click url: %w", err))
	}
	if email == nil {
		return s.finish("click_url", Result{Outcome: OutcomeNotFound, EmailID: emailID}), nil
	}

	trackingURL := fmt.Sprintf("%s/%s/click/%d?url=%s", s.baseURL, url.PathEscape(tenantID), email.ID, url.QueryEscape(target))
	return s.finish("click_url", Result{Outcome: OutcomeRecorded, EmailID: email.ID, TrackingURL: trackingURL}), nil
}

// RegisterEmail creates the tenant on first use, then the email record
func (s *TrackingService) RegisterEmail(ctx context.Context, tenantID string, subject, recipient *string) (*Registration, error) {
	if err := s.repo.EnsureTenant(ctx, tenantID, tenantID); err != nil {
		return nil, fmt.Errorf("ensure tenant: %w", err)
	}

	emailID, err := s.repo.CreateEmail(ctx, tenantID, subject, recipient)
	if err != nil {
		return nil, fmt.Errorf("create email: %w", err)
	}

	log.Info().Str("tenant_id", tenantID).Int64("email_id", emailID).Msg("Email registered")
	return &Registration{
		EmailID:  emailID,
		PixelURL: s.PixelURL(tenantID, emailID),
	}, nil
}

// PixelURL is the open-tracking image address for an email
func (s *TrackingService) PixelURL(tenantID string, emailID int64) string {
	return fmt.Sprintf("%s/%s/pixel/%d.gif", s.baseURL, url.PathEscape(tenantID), emailID)
}

// Dashboard creates the tenant on first view and aggregates its events
func (s *TrackingService) Dashboard(ctx context.Context, tenantID string) (*DashboardView, error) {
	if err := s.repo.EnsureTenant(ctx, tenantID, tenantID); err != nil {
		return nil, fmt.Errorf("ensure tenant: %w", err)
	}

	tenant, err := s.repo.GetTenant(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("get tenant: %w", err)
	}

	stats, err := s.repo.GetTenantStats(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("tenant stats: %w", err)
	}
	return &DashboardView{Tenant: tenant, Stats: stats}, nil
}

func (s *TrackingService) finish(op string, res Result) Result {
	monitoring.TrackingRequests.WithLabelValues(op, res.Outcome.String()).Inc()
	return res
}

func (s *TrackingService) fail(op string, err error) (Result, error) {
	monitoring.TrackingRequests.WithLabelValues(op, "fault").Inc()
	return Result{}, err
}

func parseEmailID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid email id %q", raw)
	}
	return id, nil
}
