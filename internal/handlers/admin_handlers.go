package handlers

import (
	"net/http"

	"taskwise/internal/handlers/dto"
	"taskwise/internal/logger"
	"taskwise/internal/models/user"
	"taskwise/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func (h *Handler) Sweep(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	archived, err := h.svc.SweepAs(r.Context(), actor)
	if err != nil {
		handleError(w, r, err, "sweep")
		return
	}
	responseWithJSON(w, http.StatusOK, toPayload("archived", archived))
}

func (h *Handler) DeleteAllTasks(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	deleted, err := h.svc.DeleteAllTasks(r.Context(), actor)
	if err != nil {
		handleError(w, r, err, "delete_all_tasks")
		return
	}
	logger.Warn("HTTP_OUT: All tasks deleted", zap.String("actor", actor.ID), zap.Int("deleted", deleted))
	responseWithJSON(w, http.StatusOK, toPayload("deleted", deleted))
}

func (h *Handler) ListDepartments(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	deps, err := h.svc.ListDepartments(r.Context(), actor)
	if err != nil {
		handleError(w, r, err, "list_departments")
		return
	}
	responseWithJSON(w, http.StatusOK, toPayload("departments", deps))
}

func (h *Handler) CreateDepartment(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var request dto.DepartmentRequest
	if !decodeJSON(w, r, &request) {
		return
	}
	d, err := h.svc.CreateDepartment(r.Context(), actor, request.Name, request.Color)
	if err != nil {
		handleError(w, r, err, "create_department")
		return
	}
	responseWithJSON(w, http.StatusCreated, toPayload("department", d))
}

func (h *Handler) UpdateDepartment(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var request dto.DepartmentRequest
	if !decodeJSON(w, r, &request) {
		return
	}
	d, err := h.svc.UpdateDepartment(r.Context(), actor, chi.URLParam(r, "id"), request.Name, request.Color)
	if err != nil {
		handleError(w, r, err, "update_department")
		return
	}
	responseWithJSON(w, http.StatusOK, toPayload("department", d))
}

func (h *Handler) DeleteDepartment(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteDepartment(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		handleError(w, r, err, "delete_department")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) DepartmentStats(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	stats, err := h.svc.DepartmentStats(r.Context(), actor)
	if err != nil {
		handleError(w, r, err, "department_stats")
		return
	}
	responseWithJSON(w, http.StatusOK, toPayload("stats", stats))
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	users, err := h.svc.ListUsers(r.Context(), actor)
	if err != nil {
		handleError(w, r, err, "list_users")
		return
	}
	responseWithJSON(w, http.StatusOK, toPayload("users", users))
}

func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var request dto.UpdateUserRequest
	if !decodeJSON(w, r, &request) {
		return
	}

	var patch service.UserPatch
	if request.Role != nil {
		role := user.Role(*request.Role)
		patch.Role = &role
	}
	if request.Status != nil {
		status := user.AccountStatus(*request.Status)
		patch.Status = &status
	}
	patch.Department = request.Department

	u, err := h.svc.UpdateUser(r.Context(), actor, chi.URLParam(r, "id"), patch)
	if err != nil {
		handleError(w, r, err, "update_user")
		return
	}
	responseWithJSON(w, http.StatusOK, toPayload("user", u))
}
