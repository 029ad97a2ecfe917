package workflow

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jhofrandev/donations-manager/internal/authn"
	"github.com/jhofrandev/donations-manager/internal/store"
)

// fakeStore mimics the transactional contract of the real store: a task
// mutation only becomes visible when the in-transaction callback returns nil.
type fakeStore struct {
	campaigns     map[string]store.Campaign
	beneficiaries map[string]store.Beneficiary
	tasks         map[string]store.Task
	adminEmails   []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		campaigns:     map[string]store.Campaign{},
		beneficiaries: map[string]store.Beneficiary{},
		tasks:         map[string]store.Task{},
	}
}

func (f *fakeStore) GetCampaign(ctx context.Context, id string) (store.Campaign, error) {
	c, ok := f.campaigns[id]
	if !ok {
		return store.Campaign{}, store.ErrNotFound
	}
	return c, nil
}

func (f *fakeStore) GetBeneficiary(ctx context.Context, id string) (store.Beneficiary, error) {
	b, ok := f.beneficiaries[id]
	if !ok {
		return store.Beneficiary{}, store.ErrNotFound
	}
	return b, nil
}

func (f *fakeStore) AdminEmails(ctx context.Context) ([]string, error) {
	return f.adminEmails, nil
}

func (f *fakeStore) CreateTask(ctx context.Context, t store.Task, actorUserID string, notify func(store.Task) error) (store.Task, error) {
	t.CreatedAt = time.Now().UTC()
	if notify != nil {
		if err := notify(t); err != nil {
			return store.Task{}, err
		}
	}
	f.tasks[t.TaskID] = t
	return t, nil
}

func (f *fakeStore) UpdateTask(ctx context.Context, taskID string, ch store.TaskChanges, actorUserID string, decide func(prev, next store.Task) error) (store.Task, error) {
	prev, ok := f.tasks[taskID]
	if !ok {
		return store.Task{}, store.ErrNotFound
	}
	next := prev
	if ch.Description != nil {
		next.Description = *ch.Description
	}
	if ch.Status != nil {
		next.Status = *ch.Status
	}
	if ch.IsCompleted != nil {
		next.IsCompleted = *ch.IsCompleted
	}
	if ch.DueDate != nil {
		next.DueDate = ch.DueDate
	}
	if ch.ClearDue {
		next.DueDate = nil
	}
	if decide != nil {
		if err := decide(prev, next); err != nil {
			return store.Task{}, err
		}
	}
	f.tasks[taskID] = next
	return next, nil
}

type fakeMailer struct {
	sendErr error
	sends   int
	subject string
	body    string
	lastTo  []string
}

func (f *fakeMailer) Send(ctx context.Context, subject, body string, to []string) error {
	f.sends++
	f.subject = subject
	f.body = body
	f.lastTo = to
	return f.sendErr
}

func seededStore() *fakeStore {
	st := newFakeStore()
	st.campaigns["cmp_open"] = store.Campaign{CampaignID: "cmp_open", Name: "Open", IsActive: true}
	st.campaigns["cmp_closed"] = store.Campaign{CampaignID: "cmp_closed", Name: "Closed", IsActive: false}
	st.beneficiaries["ben_1"] = store.Beneficiary{
		BeneficiaryID: "ben_1", Name: "Maria", Email: "maria@example.com", CampaignID: "cmp_open",
	}
	st.adminEmails = []string{"admin@example.com"}
	return st
}

func TestCreateTaskClosedCampaign(t *testing.T) {
	st := seededStore()
	mail := &fakeMailer{}
	e := &Engine{Store: st, Mailer: mail}

	_, err := e.CreateTask(context.Background(), CreateTaskInput{
		Description:   "deliver food",
		BeneficiaryID: "ben_1",
		CampaignID:    "cmp_closed",
	}, Actor{UserID: "usr_admin", Role: authn.RoleAdmin})
	if !errors.Is(err, ErrCampaignClosed) {
		t.Fatalf("expected ErrCampaignClosed, got %v", err)
	}
	if len(st.tasks) != 0 {
		t.Fatalf("expected no task persisted, got %d", len(st.tasks))
	}
	if mail.sends != 0 {
		t.Fatalf("expected no mail for rejected create")
	}
}

func TestCreateTaskNotifiesBeneficiary(t *testing.T) {
	st := seededStore()
	mail := &fakeMailer{}
	e := &Engine{Store: st, Mailer: mail}

	task, err := e.CreateTask(context.Background(), CreateTaskInput{
		Description:   "deliver food",
		BeneficiaryID: "ben_1",
	}, Actor{UserID: "usr_admin", Role: authn.RoleAdmin})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if task.Status != store.StatusPending {
		t.Fatalf("expected default pending status, got %s", task.Status)
	}
	if task.CampaignID != "cmp_open" {
		t.Fatalf("expected campaign defaulted from beneficiary, got %s", task.CampaignID)
	}
	if mail.sends != 1 || mail.subject != "New Task Assigned" {
		t.Fatalf("expected one assignment mail, got %d %q", mail.sends, mail.subject)
	}
	if len(mail.lastTo) != 1 || mail.lastTo[0] != "maria@example.com" {
		t.Fatalf("expected mail to beneficiary, got %v", mail.lastTo)
	}
	if !strings.Contains(mail.body, "deliver food") {
		t.Fatalf("expected body to name the task, got %q", mail.body)
	}
}

func TestCreateTaskMailFailureRollsBack(t *testing.T) {
	st := seededStore()
	mail := &fakeMailer{sendErr: errors.New("smtp down")}
	e := &Engine{Store: st, Mailer: mail}

	_, err := e.CreateTask(context.Background(), CreateTaskInput{
		Description:   "deliver food",
		BeneficiaryID: "ben_1",
	}, Actor{UserID: "usr_admin", Role: authn.RoleAdmin})
	if !errors.Is(err, ErrNotificationFailed) {
		t.Fatalf("expected ErrNotificationFailed, got %v", err)
	}
	if len(st.tasks) != 0 {
		t.Fatalf("expected rollback, task table has %d rows", len(st.tasks))
	}
}

func TestCreateTaskUnknownStatus(t *testing.T) {
	st := seededStore()
	e := &Engine{Store: st, Mailer: &fakeMailer{}}

	_, err := e.CreateTask(context.Background(), CreateTaskInput{
		Description:   "x",
		BeneficiaryID: "ben_1",
		Status:        "whatever",
	}, Actor{UserID: "usr_admin", Role: authn.RoleAdmin})
	if !errors.Is(err, ErrUnknownStatus) {
		t.Fatalf("expected ErrUnknownStatus, got %v", err)
	}
}

func statusPtr(s store.Status) *store.Status { return &s }

func TestUpdateTaskFinalizedIsTerminal(t *testing.T) {
	st := seededStore()
	st.tasks["tsk_1"] = store.Task{
		TaskID: "tsk_1", Description: "done already", BeneficiaryID: "ben_1",
		CampaignID: "cmp_open", Status: store.StatusFinalized,
	}
	mail := &fakeMailer{}
	e := &Engine{Store: st, Mailer: mail}

	_, err := e.UpdateTask(context.Background(), "tsk_1",
		store.TaskChanges{Status: statusPtr(store.StatusPending)},
		Actor{UserID: "usr_admin", Role: authn.RoleAdmin})
	if !errors.Is(err, ErrFinalizedTask) {
		t.Fatalf("expected ErrFinalizedTask, got %v", err)
	}
	if st.tasks["tsk_1"].Status != store.StatusFinalized {
		t.Fatalf("expected stored status to remain finalizada, got %s", st.tasks["tsk_1"].Status)
	}
	if mail.sends != 0 {
		t.Fatalf("expected no mail for rejected transition")
	}
}

func TestUpdateTaskFinalizedOtherFieldsRollBackToo(t *testing.T) {
	st := seededStore()
	st.tasks["tsk_1"] = store.Task{
		TaskID: "tsk_1", Description: "original", BeneficiaryID: "ben_1",
		CampaignID: "cmp_open", Status: store.StatusFinalized,
	}
	e := &Engine{Store: st, Mailer: &fakeMailer{}}

	desc := "renamed"
	_, err := e.UpdateTask(context.Background(), "tsk_1",
		store.TaskChanges{Description: &desc, Status: statusPtr(store.StatusPending)},
		Actor{UserID: "usr_admin", Role: authn.RoleAdmin})
	if !errors.Is(err, ErrFinalizedTask) {
		t.Fatalf("expected ErrFinalizedTask, got %v", err)
	}
	if st.tasks["tsk_1"].Description != "original" {
		t.Fatalf("expected bundled description change rolled back, got %q", st.tasks["tsk_1"].Description)
	}
}

func TestUpdateTaskAdminActorNotifiesBeneficiary(t *testing.T) {
	st := seededStore()
	st.tasks["tsk_1"] = store.Task{
		TaskID: "tsk_1", Description: "deliver food", BeneficiaryID: "ben_1",
		CampaignID: "cmp_open", Status: store.StatusPending,
	}
	mail := &fakeMailer{}
	e := &Engine{Store: st, Mailer: mail}

	_, err := e.UpdateTask(context.Background(), "tsk_1",
		store.TaskChanges{Status: statusPtr(store.StatusInProgress)},
		Actor{UserID: "usr_admin", Role: authn.RoleAdmin})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if mail.sends != 1 || mail.subject != "Task Status Updated" {
		t.Fatalf("expected status mail, got %d %q", mail.sends, mail.subject)
	}
	if len(mail.lastTo) != 1 || mail.lastTo[0] != "maria@example.com" {
		t.Fatalf("expected mail to beneficiary, got %v", mail.lastTo)
	}
	if !strings.Contains(mail.body, "en_progreso") {
		t.Fatalf("expected body to carry new status, got %q", mail.body)
	}
}

func TestUpdateTaskBeneficiaryActorNotifiesAdmins(t *testing.T) {
	st := seededStore()
	st.tasks["tsk_1"] = store.Task{
		TaskID: "tsk_1", Description: "deliver food", BeneficiaryID: "ben_1",
		CampaignID: "cmp_open", Status: store.StatusPending,
	}
	mail := &fakeMailer{}
	e := &Engine{Store: st, Mailer: mail}

	_, err := e.UpdateTask(context.Background(), "tsk_1",
		store.TaskChanges{Status: statusPtr(store.StatusCompleted)},
		Actor{UserID: "usr_ben", Role: authn.RoleBeneficiary})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(mail.lastTo) != 1 || mail.lastTo[0] != "admin@example.com" {
		t.Fatalf("expected mail to admins, got %v", mail.lastTo)
	}
	if !strings.Contains(mail.body, "Maria") {
		t.Fatalf("expected body to name the beneficiary, got %q", mail.body)
	}
}

func TestUpdateTaskNoStatusChangeNoMail(t *testing.T) {
	st := seededStore()
	st.tasks["tsk_1"] = store.Task{
		TaskID: "tsk_1", Description: "deliver food", BeneficiaryID: "ben_1",
		CampaignID: "cmp_open", Status: store.StatusPending,
	}
	mail := &fakeMailer{}
	e := &Engine{Store: st, Mailer: mail}

	desc := "deliver groceries"
	next, err := e.UpdateTask(context.Background(), "tsk_1",
		store.TaskChanges{Description: &desc},
		Actor{UserID: "usr_admin", Role: authn.RoleAdmin})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if next.Description != "deliver groceries" {
		t.Fatalf("expected description applied, got %q", next.Description)
	}
	if mail.sends != 0 {
		t.Fatalf("expected no mail without a status change, got %d", mail.sends)
	}
}

func TestUpdateTaskMailFailureRollsBack(t *testing.T) {
	st := seededStore()
	st.tasks["tsk_1"] = store.Task{
		TaskID: "tsk_1", Description: "deliver food", BeneficiaryID: "ben_1",
		CampaignID: "cmp_open", Status: store.StatusPending,
	}
	mail := &fakeMailer{sendErr: errors.New("smtp down")}
	e := &Engine{Store: st, Mailer: mail}

	_, err := e.UpdateTask(context.Background(), "tsk_1",
		store.TaskChanges{Status: statusPtr(store.StatusCompleted)},
		Actor{UserID: "usr_admin", Role: authn.RoleAdmin})
	if !errors.Is(err, ErrNotificationFailed) {
		t.Fatalf("expected ErrNotificationFailed, got %v", err)
	}
	if st.tasks["tsk_1"].Status != store.StatusPending {
		t.Fatalf("expected status rolled back to pending, got %s", st.tasks["tsk_1"].Status)
	}
}

func TestUpdateTaskBeneficiaryActorNoAdminsSkipsMail(t *testing.T) {
	st := seededStore()
	st.adminEmails = nil
	st.tasks["tsk_1"] = store.Task{
		TaskID: "tsk_1", Description: "deliver food", BeneficiaryID: "ben_1",
		CampaignID: "cmp_open", Status: store.StatusPending,
	}
	mail := &fakeMailer{}
	e := &Engine{Store: st, Mailer: mail}

	_, err := e.UpdateTask(context.Background(), "tsk_1",
		store.TaskChanges{Status: statusPtr(store.StatusCompleted)},
		Actor{UserID: "usr_ben", Role: authn.RoleBeneficiary})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if mail.sends != 0 {
		t.Fatalf("expected no mail without admin recipients")
	}
}
