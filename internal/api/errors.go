package api

import (
	"errors"
	"net/http"

	"github.com/jhofrandev/donations-manager/internal/store"
	"github.com/jhofrandev/donations-manager/internal/workflow"
	"github.com/jhofrandev/donations-manager/pkg/httpx"
)

// writeTaskError maps workflow and store failures onto the error envelope.
func writeTaskError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, workflow.ErrCampaignClosed):
		httpx.WriteError(w, 409, "CLOSED_CAMPAIGN", err.Error(), nil)
	case errors.Is(err, workflow.ErrFinalizedTask):
		httpx.WriteError(w, 409, "ILLEGAL_TRANSITION", err.Error(), nil)
	case errors.Is(err, workflow.ErrUnknownStatus):
		httpx.WriteError(w, 400, "VALIDATION", err.Error(), nil)
	case errors.Is(err, workflow.ErrNotificationFailed):
		httpx.WriteError(w, 502, "NOTIFICATION_FAILED", err.Error(), nil)
	case errors.Is(err, store.ErrNotFound):
		httpx.WriteError(w, 404, "NOT_FOUND", "resource not found", nil)
	default:
		httpx.WriteError(w, 500, "DB_ERROR", err.Error(), nil)
	}
}

func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		httpx.WriteError(w, 404, "NOT_FOUND", "resource not found", nil)
	case store.IsUniqueViolation(err):
		httpx.WriteError(w, 400, "DUPLICATE_EMAIL", "a record with this email already exists", nil)
	case store.IsForeignKeyViolation(err):
		httpx.WriteError(w, 400, "VALIDATION", "referenced resource does not exist", nil)
	default:
		httpx.WriteError(w, 500, "DB_ERROR", err.Error(), nil)
	}
}
