package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/julienschmidt/httprouter"

	apiContext "hooksync/internal/api/context"
	"hooksync/internal/engine/webhooks"
	apierrors "hooksync/internal/pkg/errors"
	"hooksync/internal/platform/audit"
	"hooksync/internal/platform/auth"
	"hooksync/internal/platform/models"
	"hooksync/internal/platform/repositories"
)

// WebhookService is the engine surface the handler needs; implemented by
// *webhooks.Service and by fakes in tests.
type WebhookService interface {
	Reinstall(ctx context.Context, res models.Resource, actingUserID string) (*webhooks.ReinstallResult, error)
	Status(ctx context.Context, resources []models.Resource) ([]webhooks.StatusItem, error)
	Get(ctx context.Context, res models.Resource) (*models.WebhookRecord, error)
}

type WebhookHandler struct {
	svc   WebhookService
	audit *audit.Logger
}

func NewWebhookHandler(svc WebhookService, auditLogger *audit.Logger) *WebhookHandler {
	return &WebhookHandler{svc: svc, audit: auditLogger}
}

// List returns the stored webhook status for the resources named in the
// project_ids/group_ids query parameters, resolved in one store round trip.
func (h *WebhookHandler) List(w http.ResponseWriter, r *http.Request) {
	var resources []models.Resource

	for _, id := range splitIDs(r.URL.Query().Get("project_ids")) {
		resources = append(resources, models.ProjectResource(id))
	}
	for _, id := range splitIDs(r.URL.Query().Get("group_ids")) {
		resources = append(resources, models.GroupResource(id))
	}
	if len(resources) == 0 {
		apierrors.WriteError(w, http.StatusBadRequest, apierrors.ErrCodeInvalidInput, "No resources requested", nil)
		return
	}

	items, err := h.svc.Status(r.Context(), resources)
	if err != nil {
		apierrors.WriteError(w, http.StatusInternalServerError, apierrors.ErrCodeInternal, "Failed to load webhook status", nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"webhooks": items})
}

func (h *WebhookHandler) Get(w http.ResponseWriter, r *http.Request) {
	res, ok := resourceFromPath(w, r)
	if !ok {
		return
	}

	rec, err := h.svc.Get(r.Context(), res)
	if err != nil {
		if err == repositories.ErrNotFound {
			apierrors.WriteError(w, http.StatusNotFound, apierrors.ErrCodeNotFound, "Webhook record not found", nil)
			return
		}
		apierrors.WriteError(w, http.StatusInternalServerError, apierrors.ErrCodeInternal, "Failed to load webhook record", nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rec)
}

// Reinstall drives the verify-then-install pipeline for one resource and
// reports the result for immediate display. Provider details are logged, not
// exposed.
func (h *WebhookHandler) Reinstall(w http.ResponseWriter, r *http.Request) {
	res, ok := resourceFromPath(w, r)
	if !ok {
		return
	}

	var actingUserID string
	if claims, ok := r.Context().Value(apiContext.Claims).(*auth.Claims); ok {
		actingUserID = claims.UserID
	}

	result, err := h.svc.Reinstall(r.Context(), res, actingUserID)
	if err != nil {
		apierrors.WriteError(w, http.StatusBadGateway, apierrors.ErrCodeProviderError, "Failed to install webhook", nil)
		return
	}

	h.audit.Log(r.Context(), r, "webhook.reinstall", string(res.Type), strconv.FormatInt(res.ID, 10),
		map[string]interface{}{"outcome": result.Outcome.String()})

	switch result.Outcome {
	case webhooks.OutcomeAccessRevoked:
		apierrors.WriteError(w, http.StatusForbidden, apierrors.ErrCodeForbidden, "Admin access to the resource is required", nil)
		return
	case webhooks.OutcomeResourceGone:
		apierrors.WriteError(w, http.StatusNotFound, apierrors.ErrCodeNotFound, "Resource no longer exists", nil)
		return
	case webhooks.OutcomeRateLimited:
		apierrors.WriteError(w, http.StatusBadGateway, apierrors.ErrCodeProviderError, "Failed to install webhook", nil)
		return
	}

	if result.InstallStatus != webhooks.InstallSucceeded && !result.Installed {
		apierrors.WriteError(w, http.StatusBadGateway, apierrors.ErrCodeProviderError, "Failed to install webhook", nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

func resourceFromPath(w http.ResponseWriter, r *http.Request) (models.Resource, bool) {
	params := r.Context().Value(apiContext.Params).(httprouter.Params)

	id, err := strconv.ParseInt(params.ByName("resource_id"), 10, 64)
	if err != nil {
		apierrors.WriteError(w, http.StatusBadRequest, apierrors.ErrCodeInvalidInput, "Invalid resource id", nil)
		return models.Resource{}, false
	}

	res, err := models.ParseResource(params.ByName("resource_type"), id)
	if err != nil {
		apierrors.WriteError(w, http.StatusBadRequest, apierrors.ErrCodeInvalidInput, "Invalid resource type", nil)
		return models.Resource{}, false
	}
	return res, true
}

func splitIDs(raw string) []int64 {
	if raw == "" {
		return nil
	}
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil || id <= 0 {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}
