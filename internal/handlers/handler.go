package handlers

import (
	"net/http"
	"time"

	"taskwise/internal/logger"
	"taskwise/internal/middleware"
	"taskwise/internal/models/user"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

const (
	DefaultHeartbeat      = 15 * time.Second
	DefaultRequestTimeout = 30 * time.Second
)

type Handler struct {
	svc       Service
	heartbeat time.Duration
	timeout   time.Duration
}

type Option func(*Handler)

func WithHeartbeat(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.heartbeat = d
		}
	}
}

func WithRequestTimeout(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.timeout = d
		}
	}
}

func NewHandler(svc Service, opts ...Option) *Handler {
	h := &Handler{
		svc:       svc,
		heartbeat: DefaultHeartbeat,
		timeout:   DefaultRequestTimeout,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes registers every endpoint on r. All routes but /health require the
// identity headers; the event stream is exempt from the request timeout.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/health", h.HealthCheck)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Identity)

		r.Get("/tasks/stream", h.StreamTasks)

		r.Group(func(r chi.Router) {
			r.Use(chimw.Timeout(h.timeout))

			r.Get("/me", h.GetMe)
			r.Post("/me", h.RegisterMe)

			r.Route("/tasks", func(r chi.Router) {
				r.Get("/", h.GetColumns)
				r.Post("/", h.PostTask)
				r.Get("/archived", h.GetArchivedTasks)
				r.Post("/summarize", h.Summarize)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", h.GetTask)
					r.Patch("/", h.UpdateTask)
					r.Delete("/", h.DeleteTask)
					r.Post("/move", h.MoveTask)
					r.Post("/reopen", h.ReopenTask)
					r.Get("/history", h.GetHistory)
					r.Get("/transitions", h.GetTransitions)
				})
			})

			r.Route("/admin", func(r chi.Router) {
				r.Post("/sweep", h.Sweep)
				r.Delete("/tasks", h.DeleteAllTasks)

				r.Route("/departments", func(r chi.Router) {
					r.Get("/", h.ListDepartments)
					r.Post("/", h.CreateDepartment)
					r.Get("/stats", h.DepartmentStats)
					r.Put("/{id}", h.UpdateDepartment)
					r.Delete("/{id}", h.DeleteDepartment)
				})

				r.Get("/users", h.ListUsers)
				r.Patch("/users/{id}", h.UpdateUser)
			})
		})
	})
}

// actor resolves the caller to an approved profile or writes the error.
func (h *Handler) actor(w http.ResponseWriter, r *http.Request) (*user.AppUser, bool) {
	id, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		responseWithError(w, http.StatusUnauthorized, "missing identity")
		return nil, false
	}
	u, err := h.svc.Authenticate(r.Context(), id)
	if err != nil {
		handleError(w, r, err, "authenticate")
		return nil, false
	}
	return u, true
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.HealthCheck(r.Context()); err != nil {
		logger.Warn("HTTP: Health check failed", zap.Error(err))
		responseWithJSON(w, http.StatusServiceUnavailable,
			toPayload("status", "unavailable"),
			toPayload("service", "taskwise"))
		return
	}
	responseWithJSON(w, http.StatusOK,
		toPayload("status", "ok"),
		toPayload("service", "taskwise"))
}

func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.IdentityFrom(r.Context())
	u, err := h.svc.Me(r.Context(), id)
	if err != nil {
		handleError(w, r, err, "get_me")
		return
	}
	responseWithJSON(w, http.StatusOK, toPayload("user", u))
}

// RegisterMe stores the caller's profile on first sign-in.
func (h *Handler) RegisterMe(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.IdentityFrom(r.Context())
	u, err := h.svc.Register(r.Context(), id)
	if err != nil {
		handleError(w, r, err, "register")
		return
	}
	logger.Info("HTTP_OUT: Profile registered",
		zap.String("user_id", u.ID),
		zap.String("status", string(u.Status)))
	responseWithJSON(w, http.StatusOK, toPayload("user", u))
}
