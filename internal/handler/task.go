package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/duetlabs/duet/internal/auth"
	"github.com/duetlabs/duet/internal/economy"
	"github.com/duetlabs/duet/internal/metrics"
	"github.com/duetlabs/duet/internal/model"
	"github.com/duetlabs/duet/internal/push"
	"github.com/duetlabs/duet/internal/store"
	"github.com/duetlabs/duet/internal/syncer"
)

type TaskHandler struct {
	sync     *syncer.Syncer
	tasks    *store.TaskStore
	notifier *push.Notifier
	logger   *slog.Logger
}

func NewTaskHandler(sy *syncer.Syncer, tasks *store.TaskStore, notifier *push.Notifier, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{sync: sy, tasks: tasks, notifier: notifier, logger: logger}
}

// recipients returns the couple's user ids for change notifications.
func recipients(ac auth.Context) []int64 {
	ids := []int64{ac.UserID}
	if ac.PartnerID != nil {
		ids = append(ids, *ac.PartnerID)
	}
	return ids
}

type taskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	StarValue   int    `json:"star_value"`
	AssignedTo  int64  `json:"assigned_to"`
}

func (r taskRequest) input() economy.TaskInput {
	return economy.TaskInput{
		Title:       r.Title,
		Description: r.Description,
		StarValue:   r.StarValue,
		AssignedTo:  r.AssignedTo,
	}
}

func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	tasks, err := h.tasks.ListForUser(ac.UserID)
	if err != nil {
		h.logger.Error("list tasks", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list tasks")
		return
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid task ID")
		return
	}

	task, err := h.tasks.GetByID(id)
	if err != nil {
		h.logger.Error("get task", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get task")
		return
	}
	if task == nil || (task.CreatedBy != ac.UserID && task.AssignedTo != ac.UserID) {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// Create validates the task against the couple snapshot, commits the change
// list, and returns the optimistic record. Clients reconcile authoritative ids
// on the change notification that follows.
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	snap, err := h.sync.LoadSnapshot(ac.UserID)
	if err != nil {
		h.logger.Error("load snapshot", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	_, changes, err := economy.CreateTask(snap, ac.UserID, req.input(), time.Now().UTC())
	if err != nil {
		writeEconomyError(w, err)
		return
	}
	if err := h.sync.Apply(recipients(ac), changes); err != nil {
		h.logger.Error("apply task create", "error", err)
		writeError(w, http.StatusBadGateway, "failed to save task")
		return
	}

	metrics.TasksCreated.Inc()
	task := changes[0].Task
	go h.notifier.TaskCreated(task.AssignedTo, task)
	writeJSON(w, http.StatusCreated, task)
}

func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid task ID")
		return
	}
	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	snap, err := h.sync.LoadSnapshot(ac.UserID)
	if err != nil {
		h.logger.Error("load snapshot", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	_, changes, err := economy.EditTask(snap, ac.UserID, id, req.input())
	if err != nil {
		writeEconomyError(w, err)
		return
	}
	if err := h.sync.Apply(recipients(ac), changes); err != nil {
		h.logger.Error("apply task update", "error", err)
		writeError(w, http.StatusBadGateway, "failed to save task")
		return
	}
	writeJSON(w, http.StatusOK, changes[0].Task)
}

func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid task ID")
		return
	}

	snap, err := h.sync.LoadSnapshot(ac.UserID)
	if err != nil {
		h.logger.Error("load snapshot", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	_, changes, err := economy.DeleteTask(snap, ac.UserID, id)
	if err != nil {
		writeEconomyError(w, err)
		return
	}
	if err := h.sync.Apply(recipients(ac), changes); err != nil {
		h.logger.Error("apply task delete", "error", err)
		writeError(w, http.StatusBadGateway, "failed to delete task")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Complete credits the assignee the automatic completion bonus.
func (h *TaskHandler) Complete(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid task ID")
		return
	}

	snap, err := h.sync.LoadSnapshot(ac.UserID)
	if err != nil {
		h.logger.Error("load snapshot", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	_, changes, err := economy.CompleteTask(snap, ac.UserID, id, time.Now().UTC())
	if err != nil {
		writeEconomyError(w, err)
		return
	}
	if err := h.sync.Apply(recipients(ac), changes); err != nil {
		h.logger.Error("apply task complete", "error", err)
		writeError(w, http.StatusBadGateway, "failed to complete task")
		return
	}

	metrics.TasksCompleted.Inc()
	metrics.StarsAwarded.Add(economy.CompletionBonus)
	task := changes[0].Task
	go h.notifier.TaskCompleted(task.CreatedBy, task)
	writeJSON(w, http.StatusOK, task)
}

type evaluateRequest struct {
	Rating int `json:"rating"`
}

// Evaluate rates a completed task and credits the assignee the rating.
func (h *TaskHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid task ID")
		return
	}
	var req evaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	snap, err := h.sync.LoadSnapshot(ac.UserID)
	if err != nil {
		h.logger.Error("load snapshot", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	_, changes, err := economy.EvaluateTask(snap, ac.UserID, id, req.Rating, time.Now().UTC())
	if err != nil {
		writeEconomyError(w, err)
		return
	}
	if err := h.sync.Apply(recipients(ac), changes); err != nil {
		h.logger.Error("apply task evaluate", "error", err)
		writeError(w, http.StatusBadGateway, "failed to evaluate task")
		return
	}

	metrics.TasksEvaluated.Inc()
	metrics.StarsAwarded.Add(float64(req.Rating))
	task := changes[0].Task
	go h.notifier.TaskEvaluated(task.AssignedTo, task, req.Rating)
	writeJSON(w, http.StatusOK, task)
}
