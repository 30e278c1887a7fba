package web

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/pkg/errors"

	"socialcal/internal/config"
	"socialcal/internal/ics"
	appLog "socialcal/internal/log"
	"socialcal/internal/model"
	"socialcal/internal/refresh"
	"socialcal/internal/share"
	"socialcal/internal/store"
)

// maxUpload bounds import bodies.
const maxUpload = 8 << 20

// Refresher runs an on-demand catalog refresh.
type Refresher interface {
	Run(ctx context.Context) refresh.Report
}

// Server exposes the calendar state over a JSON API.
type Server struct {
	state     *store.State
	refresher Refresher
	links     share.Builder
	organizer ics.Organizer
	loc       *time.Location
	router    chi.Router
}

// NewServer constructs a Server. refresher may be nil, in which case
// POST /api/refresh answers 503.
func NewServer(cfg *config.Config, state *store.State, refresher Refresher) *Server {
	s := &Server{
		state:     state,
		refresher: refresher,
		links:     share.NewBuilder(cfg.ShareBaseURL),
		organizer: ics.Organizer{Name: cfg.Organizer.Name, Email: cfg.Organizer.Email},
		loc:       cfg.Location(),
	}
	s.setupRoutes()
	return s
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Route("/events", func(r chi.Router) {
			r.Get("/", s.handleListEvents)
			r.Post("/", s.handleCreateEvent)
			r.Get("/{id}", s.handleGetEvent)
			r.Put("/{id}", s.handleUpdateEvent)
			r.Delete("/{id}", s.handleDeleteEvent)
			r.Get("/{id}/ics", s.handleEventICS)
			r.Get("/{id}/share", s.handleEventShare)
		})
		r.Post("/import", s.handleImport)
		r.Get("/occurrences", s.handleOccurrences)
		r.Get("/filter", s.handleGetFilter)
		r.Put("/filter", s.handleSetFilter)
		r.Get("/analytics", s.handleAnalytics)
		r.Get("/export", s.handleExport)

		r.Route("/public", func(r chi.Router) {
			r.Get("/", s.handleListPublic)
			r.Post("/{id}/link", s.handleLinkPublic)
			r.Post("/{id}/like", s.handleLikePublic)
			r.Delete("/{id}", s.handleDeletePublic)
		})

		r.Route("/calendars", func(r chi.Router) {
			r.Get("/", s.handleListCalendars)
			r.Post("/", s.handleAddCalendar)
			r.Put("/{id}", s.handleUpdateCalendar)
			r.Delete("/{id}", s.handleDeleteCalendar)
			r.Get("/{id}/share", s.handleCalendarShare)
			r.Post("/{id}/collaborators", s.handleAddCollaborator)
		})

		r.Route("/subscriptions", func(r chi.Router) {
			r.Get("/", s.handleListSubscriptions)
			r.Post("/{id}/toggle", s.handleToggleSubscription)
			r.Put("/{id}", s.handleRenameSubscription)
		})

		r.Post("/refresh", s.handleRefresh)
	})

	s.router = r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		appLog.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"elapsed", time.Since(start).String(),
		)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if s.refresher == nil {
		writeError(w, http.StatusServiceUnavailable, "refresh is not configured")
		return
	}
	writeJSON(w, http.StatusOK, s.refresher.Run(r.Context()))
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrCalendarInUse):
		return http.StatusConflict
	case errors.Is(err, model.ErrNotShareable):
		return http.StatusForbidden
	case errors.Is(err, model.ErrLimitReached):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeDomainError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		appLog.Error("request failed", err)
	}
	writeError(w, status, err.Error())
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxUpload)).Decode(v); err != nil {
		return errors.Wrap(model.ErrValidation, "invalid JSON body: "+err.Error())
	}
	return nil
}

func intParam(r *http.Request, name string) (int, error) {
	raw := chi.URLParam(r, name)
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.Wrapf(model.ErrValidation, "invalid %s %q", name, raw)
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
