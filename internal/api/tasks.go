package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/jhofrandev/donations-manager/internal/store"
	"github.com/jhofrandev/donations-manager/internal/workflow"
	"github.com/jhofrandev/donations-manager/pkg/httpx"
)

// TaskEngine is the workflow surface the handler drives.
type TaskEngine interface {
	CreateTask(ctx context.Context, in workflow.CreateTaskInput, actor workflow.Actor) (store.Task, error)
	UpdateTask(ctx context.Context, taskID string, ch store.TaskChanges, actor workflow.Actor) (store.Task, error)
}

type TaskStore interface {
	ListTasks(ctx context.Context) ([]store.Task, error)
	GetTask(ctx context.Context, taskID string) (store.Task, error)
	DeleteTask(ctx context.Context, taskID string) error
}

type IdempotencyStore interface {
	GetIdempotencyRecord(ctx context.Context, scope, actorID, key, endpoint string) (*store.IdempotencyRecord, error)
	SaveIdempotencyRecord(ctx context.Context, rec store.IdempotencyRecord) error
}

type TaskHandler struct {
	Engine TaskEngine
	Store  TaskStore
	Idem   IdempotencyStore
}

type createTaskRequest struct {
	Description   string `json:"description"`
	BeneficiaryID string `json:"beneficiary_id"`
	CampaignID    string `json:"campaign_id"`
	Status        string `json:"status"`
	DueDate       string `json:"due_date"`
}

func (h *TaskHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r)
	var req createTaskRequest
	if err := httpx.ReadJSON(w, r, &req); err != nil {
		httpx.WriteError(w, 400, "BAD_JSON", err.Error(), nil)
		return
	}
	if strings.TrimSpace(req.Description) == "" || strings.TrimSpace(req.BeneficiaryID) == "" {
		httpx.WriteError(w, 400, "VALIDATION", "description and beneficiary_id are required", nil)
		return
	}
	in := workflow.CreateTaskInput{
		Description:   strings.TrimSpace(req.Description),
		BeneficiaryID: strings.TrimSpace(req.BeneficiaryID),
		CampaignID:    strings.TrimSpace(req.CampaignID),
		Status:        store.Status(strings.TrimSpace(req.Status)),
	}
	if strings.TrimSpace(req.DueDate) != "" {
		due, err := parseDate(req.DueDate)
		if err != nil {
			httpx.WriteError(w, 400, "VALIDATION", "due_date must be YYYY-MM-DD", nil)
			return
		}
		in.DueDate = &due
	}

	h.idempotent(w, r, id.UserID, "POST /tasks", func() (int, map[string]any, error) {
		t, err := h.Engine.CreateTask(r.Context(), in, workflow.Actor{UserID: id.UserID, Role: id.Role})
		if err != nil {
			return 0, nil, err
		}
		return 201, map[string]any{"request_id": httpx.NewRequestID(), "task": t}, nil
	})
}

type updateTaskRequest struct {
	Description *string `json:"description"`
	Status      *string `json:"status"`
	IsCompleted *bool   `json:"is_completed"`
	DueDate     *string `json:"due_date"`
}

func (h *TaskHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r)
	var req updateTaskRequest
	if err := httpx.ReadJSON(w, r, &req); err != nil {
		httpx.WriteError(w, 400, "BAD_JSON", err.Error(), nil)
		return
	}
	var ch store.TaskChanges
	ch.Description = req.Description
	ch.IsCompleted = req.IsCompleted
	if req.Status != nil {
		status := store.Status(strings.TrimSpace(*req.Status))
		ch.Status = &status
	}
	if req.DueDate != nil {
		if strings.TrimSpace(*req.DueDate) == "" {
			ch.ClearDue = true
		} else {
			due, err := parseDate(*req.DueDate)
			if err != nil {
				httpx.WriteError(w, 400, "VALIDATION", "due_date must be YYYY-MM-DD", nil)
				return
			}
			ch.DueDate = &due
		}
	}

	t, err := h.Engine.UpdateTask(r.Context(), chi.URLParam(r, "task_id"), ch,
		workflow.Actor{UserID: id.UserID, Role: id.Role})
	if err != nil {
		writeTaskError(w, err)
		return
	}
	httpx.WriteJSON(w, 200, map[string]any{"request_id": httpx.NewRequestID(), "task": t})
}

// HandleList returns every task ordered by (beneficiary, due date) ascending.
func (h *TaskHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.Store.ListTasks(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	httpx.WriteJSON(w, 200, map[string]any{"request_id": httpx.NewRequestID(), "tasks": tasks})
}

func (h *TaskHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	t, err := h.Store.GetTask(r.Context(), chi.URLParam(r, "task_id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	httpx.WriteJSON(w, 200, map[string]any{"request_id": httpx.NewRequestID(), "task": t})
}

func (h *TaskHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteTask(r.Context(), chi.URLParam(r, "task_id")); err != nil {
		writeStoreError(w, err)
		return
	}
	httpx.WriteJSON(w, 200, map[string]any{"request_id": httpx.NewRequestID(), "deleted": true})
}

// idempotent replays a stored response for a reused Idempotency-Key and
// records the response of a fresh successful mutation.
func (h *TaskHandler) idempotent(w http.ResponseWriter, r *http.Request, actorID, endpoint string, run func() (int, map[string]any, error)) {
	key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if key != "" {
		rec, err := h.Idem.GetIdempotencyRecord(r.Context(), "tasks", actorID, key, endpoint)
		if err != nil {
			httpx.WriteError(w, 500, "DB_ERROR", err.Error(), nil)
			return
		}
		if rec != nil {
			w.Header().Set("content-type", "application/json")
			w.WriteHeader(rec.ResponseStatus)
			_, _ = w.Write(rec.ResponseBody)
			return
		}
	}

	status, body, err := run()
	if err != nil {
		writeTaskError(w, err)
		return
	}
	if key != "" {
		buf := bytes.Buffer{}
		_ = json.NewEncoder(&buf).Encode(body)
		_ = h.Idem.SaveIdempotencyRecord(r.Context(), store.IdempotencyRecord{
			Scope:          "tasks",
			ActorID:        actorID,
			IdempotencyKey: key,
			Endpoint:       endpoint,
			ResponseStatus: status,
			ResponseBody:   bytes.TrimSpace(buf.Bytes()),
		})
	}
	httpx.WriteJSON(w, status, body)
}
