package store

import "time"

// Status is the closed set of task states. finalizada is terminal: once a task
// reaches it, no transition out is allowed.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "en_progreso"
	StatusCompleted  Status = "completada"
	StatusFinalized  Status = "finalizada"
)

func (s Status) Known() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusFinalized:
		return true
	}
	return false
}

func (s Status) Terminal() bool { return s == StatusFinalized }

type User struct {
	UserID       string    `json:"user_id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

type Campaign struct {
	CampaignID  string    `json:"campaign_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

type Beneficiary struct {
	BeneficiaryID string    `json:"beneficiary_id"`
	UserID        string    `json:"user_id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Address       string    `json:"address"`
	Phone         string    `json:"phone"`
	CampaignID    string    `json:"campaign_id"`
	CreatedAt     time.Time `json:"created_at"`
}

type Task struct {
	TaskID        string     `json:"task_id"`
	Description   string     `json:"description"`
	BeneficiaryID string     `json:"beneficiary_id"`
	CampaignID    string     `json:"campaign_id"`
	Status        Status     `json:"status"`
	IsCompleted   bool       `json:"is_completed"`
	CreatedAt     time.Time  `json:"created_at"`
	DueDate       *time.Time `json:"due_date"`
}

// TaskChanges carries the fields of an update request. Nil pointers mean
// "leave unchanged"; the store merges them with the stored row inside the
// update transaction.
type TaskChanges struct {
	Description *string
	Status      *Status
	IsCompleted *bool
	DueDate     *time.Time
	ClearDue    bool
}
