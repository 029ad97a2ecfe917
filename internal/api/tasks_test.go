package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/jhofrandev/donations-manager/internal/authn"
	"github.com/jhofrandev/donations-manager/internal/store"
	"github.com/jhofrandev/donations-manager/internal/workflow"
)

type fakeEngine struct {
	createErr   error
	updateErr   error
	createCalls int
	lastInput   workflow.CreateTaskInput
	lastActor   workflow.Actor
	lastChanges store.TaskChanges
}

func (f *fakeEngine) CreateTask(ctx context.Context, in workflow.CreateTaskInput, actor workflow.Actor) (store.Task, error) {
	f.createCalls++
	f.lastInput = in
	f.lastActor = actor
	if f.createErr != nil {
		return store.Task{}, f.createErr
	}
	return store.Task{TaskID: "tsk_1", Description: in.Description, Status: store.StatusPending}, nil
}

func (f *fakeEngine) UpdateTask(ctx context.Context, taskID string, ch store.TaskChanges, actor workflow.Actor) (store.Task, error) {
	f.lastChanges = ch
	f.lastActor = actor
	if f.updateErr != nil {
		return store.Task{}, f.updateErr
	}
	return store.Task{TaskID: taskID, Status: store.StatusPending}, nil
}

type fakeIdemStore struct {
	records map[string]store.IdempotencyRecord
	saves   int
}

func (f *fakeIdemStore) key(scope, actor, key, endpoint string) string {
	return scope + "|" + actor + "|" + key + "|" + endpoint
}

func (f *fakeIdemStore) GetIdempotencyRecord(ctx context.Context, scope, actorID, key, endpoint string) (*store.IdempotencyRecord, error) {
	rec, ok := f.records[f.key(scope, actorID, key, endpoint)]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (f *fakeIdemStore) SaveIdempotencyRecord(ctx context.Context, rec store.IdempotencyRecord) error {
	if f.records == nil {
		f.records = map[string]store.IdempotencyRecord{}
	}
	f.saves++
	f.records[f.key(rec.Scope, rec.ActorID, rec.IdempotencyKey, rec.Endpoint)] = rec
	return nil
}

func authedRequest(method, path string, payload any, role authn.Role) *http.Request {
	var body bytes.Buffer
	if payload != nil {
		_ = json.NewEncoder(&body).Encode(payload)
	}
	req := httptest.NewRequest(method, path, &body)
	id := authn.Identity{UserID: "usr_1", Role: role}
	return req.WithContext(context.WithValue(req.Context(), identityKey, id))
}

func withChiParams(req *http.Request, kv ...string) *http.Request {
	rc := chi.NewRouteContext()
	for i := 0; i+1 < len(kv); i += 2 {
		rc.URLParams.Add(kv[i], kv[i+1])
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
}

func TestHandleCreateTask(t *testing.T) {
	eng := &fakeEngine{}
	h := &TaskHandler{Engine: eng, Store: &stubTaskStore{}, Idem: &fakeIdemStore{}}

	req := authedRequest(http.MethodPost, "/tasks", map[string]any{
		"description": "deliver food", "beneficiary_id": "ben_1", "due_date": "2025-05-01",
	}, authn.RoleAdmin)
	rr := httptest.NewRecorder()
	h.HandleCreate(rr, req)

	if rr.Code != 201 {
		t.Fatalf("expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}
	if eng.lastInput.DueDate == nil || eng.lastInput.DueDate.Format("2006-01-02") != "2025-05-01" {
		t.Fatalf("expected due date parsed, got %+v", eng.lastInput.DueDate)
	}
	if eng.lastActor.Role != authn.RoleAdmin {
		t.Fatalf("expected actor role admin, got %q", eng.lastActor.Role)
	}
}

func TestHandleCreateTaskClosedCampaign(t *testing.T) {
	eng := &fakeEngine{createErr: workflow.ErrCampaignClosed}
	h := &TaskHandler{Engine: eng, Store: &stubTaskStore{}, Idem: &fakeIdemStore{}}

	req := authedRequest(http.MethodPost, "/tasks", map[string]any{
		"description": "x", "beneficiary_id": "ben_1", "campaign_id": "cmp_closed",
	}, authn.RoleAdmin)
	rr := httptest.NewRecorder()
	h.HandleCreate(rr, req)

	if rr.Code != 409 {
		t.Fatalf("expected 409, got %d body=%s", rr.Code, rr.Body.String())
	}
	if !bytes.Contains(rr.Body.Bytes(), []byte("CLOSED_CAMPAIGN")) {
		t.Fatalf("expected CLOSED_CAMPAIGN code, got %s", rr.Body.String())
	}
}

func TestHandleCreateTaskNotificationFailed(t *testing.T) {
	eng := &fakeEngine{createErr: fmt.Errorf("%w: smtp down", workflow.ErrNotificationFailed)}
	h := &TaskHandler{Engine: eng, Store: &stubTaskStore{}, Idem: &fakeIdemStore{}}

	req := authedRequest(http.MethodPost, "/tasks", map[string]any{
		"description": "x", "beneficiary_id": "ben_1",
	}, authn.RoleAdmin)
	rr := httptest.NewRecorder()
	h.HandleCreate(rr, req)

	if rr.Code != 502 {
		t.Fatalf("expected 502, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestHandleCreateTaskIdempotentReplay(t *testing.T) {
	eng := &fakeEngine{}
	idem := &fakeIdemStore{}
	h := &TaskHandler{Engine: eng, Store: &stubTaskStore{}, Idem: idem}

	payload := map[string]any{"description": "deliver food", "beneficiary_id": "ben_1"}
	req := authedRequest(http.MethodPost, "/tasks", payload, authn.RoleAdmin)
	req.Header.Set("Idempotency-Key", "k1")
	rr := httptest.NewRecorder()
	h.HandleCreate(rr, req)
	if rr.Code != 201 {
		t.Fatalf("expected 201, got %d", rr.Code)
	}
	if idem.saves != 1 {
		t.Fatalf("expected response recorded, saves=%d", idem.saves)
	}

	req2 := authedRequest(http.MethodPost, "/tasks", payload, authn.RoleAdmin)
	req2.Header.Set("Idempotency-Key", "k1")
	rr2 := httptest.NewRecorder()
	h.HandleCreate(rr2, req2)
	if rr2.Code != 201 {
		t.Fatalf("expected replayed 201, got %d", rr2.Code)
	}
	if eng.createCalls != 1 {
		t.Fatalf("expected engine invoked once, got %d", eng.createCalls)
	}
	if !bytes.Equal(bytes.TrimSpace(rr.Body.Bytes()), bytes.TrimSpace(rr2.Body.Bytes())) {
		t.Fatalf("expected identical replayed body")
	}
}

func TestHandleUpdateTaskFinalized(t *testing.T) {
	eng := &fakeEngine{updateErr: workflow.ErrFinalizedTask}
	h := &TaskHandler{Engine: eng, Store: &stubTaskStore{}, Idem: &fakeIdemStore{}}

	req := authedRequest(http.MethodPatch, "/tasks/tsk_1", map[string]any{"status": "pending"}, authn.RoleBeneficiary)
	req = withChiParams(req, "task_id", "tsk_1")
	rr := httptest.NewRecorder()
	h.HandleUpdate(rr, req)

	if rr.Code != 409 {
		t.Fatalf("expected 409, got %d body=%s", rr.Code, rr.Body.String())
	}
	if !bytes.Contains(rr.Body.Bytes(), []byte("ILLEGAL_TRANSITION")) {
		t.Fatalf("expected ILLEGAL_TRANSITION code, got %s", rr.Body.String())
	}
}

func TestHandleUpdateTaskClearsDueDate(t *testing.T) {
	eng := &fakeEngine{}
	h := &TaskHandler{Engine: eng, Store: &stubTaskStore{}, Idem: &fakeIdemStore{}}

	req := authedRequest(http.MethodPatch, "/tasks/tsk_1", map[string]any{"due_date": ""}, authn.RoleAdmin)
	req = withChiParams(req, "task_id", "tsk_1")
	rr := httptest.NewRecorder()
	h.HandleUpdate(rr, req)

	if rr.Code != 200 {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	if !eng.lastChanges.ClearDue {
		t.Fatalf("expected ClearDue set")
	}
}

func TestHandleListTasksKeepsStoreOrder(t *testing.T) {
	st := &stubTaskStore{tasks: []store.Task{
		{TaskID: "tsk_a", BeneficiaryID: "ben_1"},
		{TaskID: "tsk_b", BeneficiaryID: "ben_1"},
		{TaskID: "tsk_c", BeneficiaryID: "ben_2"},
	}}
	h := &TaskHandler{Engine: &fakeEngine{}, Store: st, Idem: &fakeIdemStore{}}

	req := authedRequest(http.MethodGet, "/tasks", nil, authn.RoleBeneficiary)
	rr := httptest.NewRecorder()
	h.HandleList(rr, req)
	if rr.Code != 200 {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	var resp struct {
		Tasks []store.Task `json:"tasks"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode err: %v", err)
	}
	if len(resp.Tasks) != 3 || resp.Tasks[0].TaskID != "tsk_a" || resp.Tasks[2].TaskID != "tsk_c" {
		t.Fatalf("expected store order preserved, got %+v", resp.Tasks)
	}
}
