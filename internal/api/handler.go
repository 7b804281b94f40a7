package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"github.com/teresa-solution/email-tracking-service/internal/service"
)

const serviceName = "little-bell"

// 1x1 transparent GIF
var pixelGIF = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00, 0x01, 0x00,
	0x80, 0x00, 0x00, 0xff, 0xff, 0xff, 0x00, 0x00, 0x00, 0x2c,
	0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x01, 0x00, 0x00, 0x02,
	0x02, 0x44, 0x01, 0x00, 0x3b,
}

// Pinger reports whether the backing store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	svc       *service.TrackingService
	store     Pinger
	dashboard *dashboardRenderer
	version   string
}

// NewHandler wires the tracking service to HTTP. baseURL is shown on the
// dashboard; store may be nil, in which case /health does not ping.
func NewHandler(svc *service.TrackingService, store Pinger, baseURL, version string) (*Handler, error) {
	dashboard, err := newDashboardRenderer(baseURL)
	if err != nil {
		return nil, err
	}
	return &Handler{
		svc:       svc,
		store:     store,
		dashboard: dashboard,
		version:   version,
	}, nil
}

// Routes builds the router with the middleware stack. logger receives the
// access log.
func (h *Handler) Routes(logger zerolog.Logger) chi.Router {
	r := chi.NewRouter()

	r.Use(hlog.NewHandler(logger))
	r.Use(hlog.RequestIDHandler("req_id", "X-Request-Id"))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("Request handled")
	}))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", h.HandleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/{tenantID}", func(r chi.Router) {
		r.Get("/pixel/{emailID}", h.HandleOpen)
		r.Get("/click/{emailID}", h.HandleClick)
		r.Get("/dashboard", h.HandleDashboard)
		r.Post("/emails", h.HandleCreateEmail)
		r.Get("/click-url/{emailID}", h.HandleClickURL)
	})
	return r
}

func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status, code := "healthy", http.StatusOK
	if h.store != nil {
		if err := h.store.Ping(r.Context()); err != nil {
			hlog.FromRequest(r).Warn().Err(err).Msg("Health check ping failed")
			status, code = "unhealthy", http.StatusServiceUnavailable
		}
	}
	writeJSON(w, r, code, map[string]string{
		"status":  status,
		"service": serviceName,
		"version": h.version,
	})
}

func (h *Handler) HandleOpen(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.TrackOpen(r.Context(), service.OpenRequest{
		TenantID: chi.URLParam(r, "tenantID"),
		EmailID:  chi.URLParam(r, "emailID"),
		Client:   clientInfo(r),
	})
	if err != nil {
		internalError(w, r, "pixel", err)
		return
	}

	switch res.Outcome {
	case service.OutcomeInvalidInput:
		badRequest(w, r, res.Reason)
	case service.OutcomeNotFound:
		notFound(w, r, "email not found")
	default:
		servePixel(w)
	}
}

func (h *Handler) HandleClick(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.TrackClick(r.Context(), service.ClickRequest{
		TenantID:  chi.URLParam(r, "tenantID"),
		EmailID:   chi.URLParam(r, "emailID"),
		TargetURL: r.URL.Query().Get("url"),
		Client:    clientInfo(r),
	})
	if err != nil {
		internalError(w, r, "click", err)
		return
	}

	switch res.Outcome {
	case service.OutcomeInvalidInput:
		badRequest(w, r, res.Reason)
	case service.OutcomeNotFound:
		notFound(w, r, "email not found")
	default:
		// the target goes out byte for byte, relative or not
		w.Header().Set("Location", res.RedirectURL)
		w.WriteHeader(http.StatusTemporaryRedirect)
	}
}

func (h *Handler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")

	view, err := h.svc.Dashboard(r.Context(), tenantID)
	if err != nil {
		internalError(w, r, "dashboard", err)
		return
	}

	html, err := h.dashboard.render(tenantID, view)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Str("tenant_id", tenantID).Msg("Dashboard render failed")
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	io.WriteString(w, html)
}

type createEmailRequest struct {
	Subject   *string `json:"subject"`
	Recipient *string `json:"recipient"`
}

func (h *Handler) HandleCreateEmail(w http.ResponseWriter, r *http.Request) {
	var req createEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(w, r, "invalid JSON: "+err.Error())
		return
	}

	reg, err := h.svc.RegisterEmail(r.Context(), chi.URLParam(r, "tenantID"), req.Subject, req.Recipient)
	if err != nil {
		internalError(w, r, "create_email", err)
		return
	}
	writeJSON(w, r, http.StatusCreated, reg)
}

type clickURLResponse struct {
	ClickURL    string `json:"click_url"`
	OriginalURL string `json:"original_url"`
}

func (h *Handler) HandleClickURL(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get("url")

	res, err := h.svc.ClickURL(r.Context(), chi.URLParam(r, "tenantID"), chi.URLParam(r, "emailID"), target)
	if err != nil {
		internalError(w, r, "click_url", err)
		return
	}

	switch res.Outcome {
	case service.OutcomeInvalidInput:
		badRequest(w, r, res.Reason)
	case service.OutcomeNotFound:
		notFound(w, r, "email not found")
	default:
		writeJSON(w, r, http.StatusOK, clickURLResponse{
			ClickURL:    res.TrackingURL,
			OriginalURL: target,
		})
	}
}

func servePixel(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "image/gif")
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
	w.Write(pixelGIF)
}

func clientInfo(r *http.Request) service.ClientInfo {
	return service.ClientInfo{
		UserAgent:    r.UserAgent(),
		ForwardedFor: r.Header.Get("X-Forwarded-For"),
		RealIP:       r.Header.Get("X-Real-Ip"),
	}
}
