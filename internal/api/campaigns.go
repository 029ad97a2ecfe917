package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jhofrandev/donations-manager/internal/store"
	"github.com/jhofrandev/donations-manager/pkg/httpx"
)

type CampaignStore interface {
	CreateCampaign(ctx context.Context, c store.Campaign) error
	GetCampaign(ctx context.Context, campaignID string) (store.Campaign, error)
	ListCampaigns(ctx context.Context) ([]store.Campaign, error)
	UpdateCampaign(ctx context.Context, c store.Campaign) error
	DeleteCampaign(ctx context.Context, campaignID string) error
}

type CampaignHandler struct {
	Store CampaignStore
}

// campaignRequest uses pointer fields so PATCH can tell "absent" from
// "set to zero". PUT requires the full set; PATCH merges what is present.
type campaignRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	StartDate   *string `json:"start_date"`
	EndDate     *string `json:"end_date"`
	IsActive    *bool   `json:"is_active"`
}

// apply merges the present fields onto c. It returns a message and false when
// a present field is invalid or the merged date range is inverted.
func (req campaignRequest) apply(c *store.Campaign) (string, bool) {
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return "name is required", false
		}
		c.Name = name
	}
	if req.Description != nil {
		c.Description = *req.Description
	}
	if req.StartDate != nil {
		start, err := parseDate(*req.StartDate)
		if err != nil {
			return "start_date must be YYYY-MM-DD", false
		}
		c.StartDate = start
	}
	if req.EndDate != nil {
		end, err := parseDate(*req.EndDate)
		if err != nil {
			return "end_date must be YYYY-MM-DD", false
		}
		c.EndDate = end
	}
	if c.EndDate.Before(c.StartDate) {
		return "end_date must not precede start_date", false
	}
	if req.IsActive != nil {
		c.IsActive = *req.IsActive
	}
	return "", true
}

func (req campaignRequest) complete() bool {
	return req.Name != nil && req.StartDate != nil && req.EndDate != nil
}

func (h *CampaignHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req campaignRequest
	if err := httpx.ReadJSON(w, r, &req); err != nil {
		httpx.WriteError(w, 400, "BAD_JSON", err.Error(), nil)
		return
	}
	if !req.complete() {
		httpx.WriteError(w, 400, "VALIDATION", "name, start_date and end_date are required", nil)
		return
	}
	c := store.Campaign{
		CampaignID: "cmp_" + uuid.NewString(),
		IsActive:   true,
	}
	if msg, ok := req.apply(&c); !ok {
		httpx.WriteError(w, 400, "VALIDATION", msg, nil)
		return
	}
	if err := h.Store.CreateCampaign(r.Context(), c); err != nil {
		writeStoreError(w, err)
		return
	}
	httpx.WriteJSON(w, 201, map[string]any{"request_id": httpx.NewRequestID(), "campaign": c})
}

func (h *CampaignHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	campaigns, err := h.Store.ListCampaigns(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	httpx.WriteJSON(w, 200, map[string]any{"request_id": httpx.NewRequestID(), "campaigns": campaigns})
}

func (h *CampaignHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	c, err := h.Store.GetCampaign(r.Context(), chi.URLParam(r, "campaign_id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	httpx.WriteJSON(w, 200, map[string]any{"request_id": httpx.NewRequestID(), "campaign": c})
}

// HandleUpdate serves PUT as a full replace and PATCH as a partial merge, so
// deactivating a campaign needs nothing beyond {"is_active": false}.
func (h *CampaignHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req campaignRequest
	if err := httpx.ReadJSON(w, r, &req); err != nil {
		httpx.WriteError(w, 400, "BAD_JSON", err.Error(), nil)
		return
	}
	if r.Method == http.MethodPut && !req.complete() {
		httpx.WriteError(w, 400, "VALIDATION", "name, start_date and end_date are required", nil)
		return
	}
	c, err := h.Store.GetCampaign(r.Context(), chi.URLParam(r, "campaign_id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if msg, ok := req.apply(&c); !ok {
		httpx.WriteError(w, 400, "VALIDATION", msg, nil)
		return
	}
	if err := h.Store.UpdateCampaign(r.Context(), c); err != nil {
		writeStoreError(w, err)
		return
	}
	httpx.WriteJSON(w, 200, map[string]any{"request_id": httpx.NewRequestID(), "campaign": c})
}

func (h *CampaignHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteCampaign(r.Context(), chi.URLParam(r, "campaign_id")); err != nil {
		writeStoreError(w, err)
		return
	}
	httpx.WriteJSON(w, 200, map[string]any{"request_id": httpx.NewRequestID(), "deleted": true})
}

func parseDate(s string) (time.Time, error) {
	return time.Parse("2006-01-02", strings.TrimSpace(s))
}
