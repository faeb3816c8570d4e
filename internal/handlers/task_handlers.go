package handlers

import (
	"net/http"
	"strings"
	"time"

	"taskwise/internal/handlers/dto"
	"taskwise/internal/logger"
	"taskwise/internal/models/task"
	"taskwise/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func taskID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		logger.Warn("HTTP: Missing task id", zap.String("client_ip", r.RemoteAddr))
		responseWithError(w, http.StatusBadRequest, "id must not be empty")
		return "", false
	}
	return id, true
}

func (h *Handler) GetColumns(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	cols, err := h.svc.Columns(r.Context(), actor)
	if err != nil {
		handleError(w, r, err, "list_tasks")
		return
	}
	responseWithJSON(w, http.StatusOK, toPayload("columns", dto.FromColumns(cols)))
}

func (h *Handler) PostTask(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	var request dto.CreateTaskRequest
	if !decodeJSON(w, r, &request) {
		return
	}
	if strings.TrimSpace(request.Name) == "" {
		logger.Warn("HTTP: Validation failed",
			zap.String("field", "name"),
			zap.String("error", "empty_field"),
			zap.String("client_ip", r.RemoteAddr))
		responseWithError(w, http.StatusBadRequest, "name must not be empty")
		return
	}

	created, err := h.svc.CreateTask(r.Context(), actor, service.CreateInput{
		Name:       request.Name,
		Department: request.Department,
		Comments:   request.Comments,
		UserID:     request.UserID,
	})
	if err != nil {
		handleError(w, r, err, "create_task")
		return
	}

	logger.Info("HTTP_OUT: Task created",
		zap.String("task_id", created.ID),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusCreated))
	responseWithJSON(w, http.StatusCreated, toPayload("task", dto.FromTask(created)))
}

func (h *Handler) GetTask(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := taskID(w, r)
	if !ok {
		return
	}
	t, err := h.svc.GetTask(r.Context(), actor, id)
	if err != nil {
		handleError(w, r, err, "get_task")
		return
	}
	responseWithJSON(w, http.StatusOK, toPayload("task", dto.FromTask(t)))
}

// UpdateTask applies the fields present in the body. A body that changes
// nothing answers with the current task.
func (h *Handler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := taskID(w, r)
	if !ok {
		return
	}

	var request dto.UpdateTaskRequest
	if !decodeJSON(w, r, &request) {
		return
	}

	var opts []task.EditOption
	if request.Name != nil {
		opts = append(opts, task.WithName(*request.Name))
	}
	if request.Department != nil {
		opts = append(opts, task.WithDepartment(*request.Department))
	}
	if request.UserID != nil {
		opts = append(opts, task.WithAssignee(*request.UserID))
	}
	if request.Comments != nil {
		opts = append(opts, task.WithComments(*request.Comments))
	}
	if request.Status != nil {
		status, err := task.ParseStatus(*request.Status)
		if err != nil {
			responseWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		opts = append(opts, task.WithStatus(status))
	}

	updated, err := h.svc.EditTask(r.Context(), actor, id, task.NewEdit(opts...))
	if isNoChange(err) {
		current, getErr := h.svc.GetTask(r.Context(), actor, id)
		if getErr != nil {
			handleError(w, r, getErr, "get_task")
			return
		}
		responseWithJSON(w, http.StatusOK, toPayload("task", dto.FromTask(current)), toPayload("changed", false))
		return
	}
	if err != nil {
		handleError(w, r, err, "update_task")
		return
	}

	logger.Info("HTTP_OUT: Task updated",
		zap.String("task_id", id),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))
	responseWithJSON(w, http.StatusOK, toPayload("task", dto.FromTask(updated)), toPayload("changed", true))
}

func (h *Handler) MoveTask(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := taskID(w, r)
	if !ok {
		return
	}

	var request dto.MoveTaskRequest
	if !decodeJSON(w, r, &request) {
		return
	}
	dest, err := task.ParseStatus(request.Status)
	if err != nil {
		responseWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if request.Index == nil {
		responseWithError(w, http.StatusBadRequest, "index is required")
		return
	}

	cols, err := h.svc.MoveTask(r.Context(), actor, id, dest, *request.Index)
	if isNoChange(err) {
		cols, err = h.svc.Columns(r.Context(), actor)
		if err != nil {
			handleError(w, r, err, "list_tasks")
			return
		}
		responseWithJSON(w, http.StatusOK, toPayload("columns", dto.FromColumns(cols)), toPayload("changed", false))
		return
	}
	if err != nil {
		handleError(w, r, err, "move_task")
		return
	}
	responseWithJSON(w, http.StatusOK, toPayload("columns", dto.FromColumns(cols)), toPayload("changed", true))
}

func (h *Handler) ReopenTask(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := taskID(w, r)
	if !ok {
		return
	}
	t, err := h.svc.ReopenTask(r.Context(), actor, id)
	if err != nil {
		handleError(w, r, err, "reopen_task")
		return
	}
	responseWithJSON(w, http.StatusOK, toPayload("task", dto.FromTask(t)))
}

func (h *Handler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := taskID(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteTask(r.Context(), actor, id); err != nil {
		handleError(w, r, err, "delete_task")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := taskID(w, r)
	if !ok {
		return
	}
	history, err := h.svc.History(r.Context(), actor, id)
	if err != nil {
		handleError(w, r, err, "get_history")
		return
	}
	responseWithJSON(w, http.StatusOK, toPayload("history", history))
}

func (h *Handler) GetTransitions(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := taskID(w, r)
	if !ok {
		return
	}
	statuses, err := h.svc.Transitions(r.Context(), actor, id)
	if err != nil {
		handleError(w, r, err, "get_transitions")
		return
	}
	responseWithJSON(w, http.StatusOK, toPayload("statuses", statuses))
}

func (h *Handler) GetArchivedTasks(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	archived, err := h.svc.ArchivedTasks(r.Context(), actor)
	if err != nil {
		handleError(w, r, err, "archived_tasks")
		return
	}
	responseWithJSON(w, http.StatusOK, toPayload("tasks", dto.FromArchived(archived)))
}

func (h *Handler) Summarize(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var request dto.SummarizeRequest
	if !decodeJSON(w, r, &request) {
		return
	}
	summary, err := h.svc.Summarize(r.Context(), actor, request.Text)
	if err != nil {
		handleError(w, r, err, "summarize")
		return
	}
	responseWithJSON(w, http.StatusOK, toPayload("summary", summary))
}
