package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jhofrandev/donations-manager/internal/store"
	"github.com/jhofrandev/donations-manager/pkg/httpx"
)

type BeneficiaryStore interface {
	CreateBeneficiary(ctx context.Context, b store.Beneficiary) error
	GetBeneficiary(ctx context.Context, beneficiaryID string) (store.Beneficiary, error)
	ListBeneficiaries(ctx context.Context) ([]store.Beneficiary, error)
	UpdateBeneficiary(ctx context.Context, b store.Beneficiary) error
	DeleteBeneficiary(ctx context.Context, beneficiaryID string) error
}

type BeneficiaryHandler struct {
	Store BeneficiaryStore
}

// beneficiaryRequest uses pointer fields so PATCH can clear address or phone
// with an explicit empty string while leaving absent fields untouched.
type beneficiaryRequest struct {
	UserID     *string `json:"user_id"`
	Name       *string `json:"name"`
	Email      *string `json:"email"`
	Address    *string `json:"address"`
	Phone      *string `json:"phone"`
	CampaignID *string `json:"campaign_id"`
}

// apply merges the present fields onto b. user_id, name, email and
// campaign_id reject empty values; address and phone accept them.
func (req beneficiaryRequest) apply(b *store.Beneficiary) (string, bool) {
	if req.UserID != nil {
		if strings.TrimSpace(*req.UserID) == "" {
			return "user_id must not be empty", false
		}
		b.UserID = strings.TrimSpace(*req.UserID)
	}
	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			return "name must not be empty", false
		}
		b.Name = strings.TrimSpace(*req.Name)
	}
	if req.Email != nil {
		if strings.TrimSpace(*req.Email) == "" {
			return "email must not be empty", false
		}
		b.Email = strings.ToLower(strings.TrimSpace(*req.Email))
	}
	if req.Address != nil {
		b.Address = *req.Address
	}
	if req.Phone != nil {
		b.Phone = *req.Phone
	}
	if req.CampaignID != nil {
		if strings.TrimSpace(*req.CampaignID) == "" {
			return "campaign_id must not be empty", false
		}
		b.CampaignID = strings.TrimSpace(*req.CampaignID)
	}
	return "", true
}

func (req beneficiaryRequest) complete() bool {
	return req.UserID != nil && req.Name != nil && req.Email != nil && req.CampaignID != nil
}

func (h *BeneficiaryHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req beneficiaryRequest
	if err := httpx.ReadJSON(w, r, &req); err != nil {
		httpx.WriteError(w, 400, "BAD_JSON", err.Error(), nil)
		return
	}
	if !req.complete() {
		httpx.WriteError(w, 400, "VALIDATION", "user_id, name, email and campaign_id are required", nil)
		return
	}
	b := store.Beneficiary{BeneficiaryID: "ben_" + uuid.NewString()}
	if msg, ok := req.apply(&b); !ok {
		httpx.WriteError(w, 400, "VALIDATION", msg, nil)
		return
	}
	if err := h.Store.CreateBeneficiary(r.Context(), b); err != nil {
		writeStoreError(w, err)
		return
	}
	httpx.WriteJSON(w, 201, map[string]any{"request_id": httpx.NewRequestID(), "beneficiary": b})
}

func (h *BeneficiaryHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	beneficiaries, err := h.Store.ListBeneficiaries(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	httpx.WriteJSON(w, 200, map[string]any{"request_id": httpx.NewRequestID(), "beneficiaries": beneficiaries})
}

func (h *BeneficiaryHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	b, err := h.Store.GetBeneficiary(r.Context(), chi.URLParam(r, "beneficiary_id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	httpx.WriteJSON(w, 200, map[string]any{"request_id": httpx.NewRequestID(), "beneficiary": b})
}

// HandleUpdate serves PUT as a full replace and PATCH as a partial merge.
func (h *BeneficiaryHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req beneficiaryRequest
	if err := httpx.ReadJSON(w, r, &req); err != nil {
		httpx.WriteError(w, 400, "BAD_JSON", err.Error(), nil)
		return
	}
	if r.Method == http.MethodPut && !req.complete() {
		httpx.WriteError(w, 400, "VALIDATION", "user_id, name, email and campaign_id are required", nil)
		return
	}
	b, err := h.Store.GetBeneficiary(r.Context(), chi.URLParam(r, "beneficiary_id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if msg, ok := req.apply(&b); !ok {
		httpx.WriteError(w, 400, "VALIDATION", msg, nil)
		return
	}
	if err := h.Store.UpdateBeneficiary(r.Context(), b); err != nil {
		writeStoreError(w, err)
		return
	}
	httpx.WriteJSON(w, 200, map[string]any{"request_id": httpx.NewRequestID(), "beneficiary": b})
}

// HandleDelete removes the beneficiary; the schema cascades its tasks.
func (h *BeneficiaryHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteBeneficiary(r.Context(), chi.URLParam(r, "beneficiary_id")); err != nil {
		writeStoreError(w, err)
		return
	}
	httpx.WriteJSON(w, 200, map[string]any{"request_id": httpx.NewRequestID(), "deleted": true})
}
