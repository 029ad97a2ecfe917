package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jhofrandev/donations-manager/internal/authn"
	"github.com/jhofrandev/donations-manager/internal/mailer"
	"github.com/jhofrandev/donations-manager/internal/store"
)

var (
	ErrCampaignClosed     = errors.New("tasks cannot be created in closed or cancelled campaigns")
	ErrFinalizedTask      = errors.New("a finalized task cannot change status")
	ErrUnknownStatus      = errors.New("unknown task status")
	ErrNotificationFailed = errors.New("notification could not be delivered")
)

// Store is the slice of the data store the engine drives. CreateTask and
// UpdateTask run their callback inside the mutation's transaction, so an
// error from the callback undoes the persisted change.
type Store interface {
	GetCampaign(ctx context.Context, campaignID string) (store.Campaign, error)
	GetBeneficiary(ctx context.Context, beneficiaryID string) (store.Beneficiary, error)
	AdminEmails(ctx context.Context) ([]string, error)
	CreateTask(ctx context.Context, t store.Task, actorUserID string, notify func(store.Task) error) (store.Task, error)
	UpdateTask(ctx context.Context, taskID string, ch store.TaskChanges, actorUserID string, decide func(prev, next store.Task) error) (store.Task, error)
}

// Actor identifies who is performing a mutation. Role decides which side of
// the task gets notified on a status change.
type Actor struct {
	UserID string
	Role   authn.Role
}

// Engine owns task creation and status transitions. Persistence and the
// outbound notification share one transaction: either both succeed or
// neither is observable.
type Engine struct {
	Store  Store
	Mailer mailer.Mailer
}

type CreateTaskInput struct {
	Description   string
	BeneficiaryID string
	CampaignID    string
	Status        store.Status
	DueDate       *time.Time
}

// CreateTask validates the campaign is open, persists the task and mails the
// beneficiary before committing. A failed send rolls the task back.
func (e *Engine) CreateTask(ctx context.Context, in CreateTaskInput, actor Actor) (store.Task, error) {
	if in.Status == "" {
		in.Status = store.StatusPending
	}
	if !in.Status.Known() {
		return store.Task{}, ErrUnknownStatus
	}
	ben, err := e.Store.GetBeneficiary(ctx, in.BeneficiaryID)
	if err != nil {
		return store.Task{}, err
	}
	if in.CampaignID == "" {
		in.CampaignID = ben.CampaignID
	}
	campaign, err := e.Store.GetCampaign(ctx, in.CampaignID)
	if err != nil {
		return store.Task{}, err
	}
	if !campaign.IsActive {
		return store.Task{}, ErrCampaignClosed
	}

	t := store.Task{
		TaskID:        "tsk_" + uuid.NewString(),
		Description:   in.Description,
		BeneficiaryID: ben.BeneficiaryID,
		CampaignID:    campaign.CampaignID,
		Status:        in.Status,
		DueDate:       in.DueDate,
	}
	return e.Store.CreateTask(ctx, t, actor.UserID, func(created store.Task) error {
		body := fmt.Sprintf("A new task has been assigned to you: %s", created.Description)
		if err := e.Mailer.Send(ctx, "New Task Assigned", body, []string{ben.Email}); err != nil {
			return fmt.Errorf("%w: %v", ErrNotificationFailed, err)
		}
		return nil
	})
}

// UpdateTask applies the merged changes under the terminal-status rule and,
// when the status actually changed, notifies the opposite party: admins when
// a beneficiary moved the task, the beneficiary otherwise. Any failure rolls
// back the entire update, other bundled field changes included.
func (e *Engine) UpdateTask(ctx context.Context, taskID string, ch store.TaskChanges, actor Actor) (store.Task, error) {
	if ch.Status != nil && !ch.Status.Known() {
		return store.Task{}, ErrUnknownStatus
	}
	return e.Store.UpdateTask(ctx, taskID, ch, actor.UserID, func(prev, next store.Task) error {
		if prev.Status.Terminal() && next.Status != prev.Status {
			return ErrFinalizedTask
		}
		if prev.Status == next.Status {
			return nil
		}
		return e.notifyStatusChange(ctx, next, actor)
	})
}

func (e *Engine) notifyStatusChange(ctx context.Context, t store.Task, actor Actor) error {
	ben, err := e.Store.GetBeneficiary(ctx, t.BeneficiaryID)
	if err != nil {
		return err
	}
	var body string
	var recipients []string
	if actor.Role == authn.RoleBeneficiary {
		admins, err := e.Store.AdminEmails(ctx)
		if err != nil {
			return err
		}
		if len(admins) == 0 {
			return nil
		}
		recipients = admins
		body = fmt.Sprintf("El beneficiario %s cambió el estado de la tarea %q a %s.", ben.Name, t.Description, t.Status)
	} else {
		recipients = []string{ben.Email}
		body = fmt.Sprintf("The status of your task %q has changed to %s.", t.Description, t.Status)
	}
	if err := e.Mailer.Send(ctx, "Task Status Updated", body, recipients); err != nil {
		return fmt.Errorf("%w: %v", ErrNotificationFailed, err)
	}
	return nil
}
