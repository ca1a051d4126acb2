package handlers

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	apierrors "hooksync/internal/pkg/errors"
	"hooksync/internal/platform/models"
	"hooksync/internal/platform/repositories"
)

// EventsHandler accepts inbound GitLab deliveries at the fixed callback URL
// and authenticates them against the stored per-resource secret.
type EventsHandler struct {
	svc WebhookService
}

func NewEventsHandler(svc WebhookService) *EventsHandler {
	return &EventsHandler{svc: svc}
}

type gitlabEvent struct {
	ObjectKind string `json:"object_kind"`
	Project    *struct {
		ID int64 `json:"id"`
	} `json:"project"`
	Group *struct {
		ID int64 `json:"id"`
	} `json:"group"`
}

func (h *EventsHandler) HandleGitLab(w http.ResponseWriter, r *http.Request) {
	token := r.Header.Get("X-Gitlab-Token")
	if token == "" {
		apierrors.WriteError(w, http.StatusUnauthorized, apierrors.ErrCodeUnauthorized, "Missing webhook token", nil)
		return
	}

	var event gitlabEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		apierrors.WriteError(w, http.StatusBadRequest, apierrors.ErrCodeInvalidInput, "Invalid event payload", nil)
		return
	}

	var res models.Resource
	switch {
	case event.Project != nil && event.Project.ID > 0:
		res = models.ProjectResource(event.Project.ID)
	case event.Group != nil && event.Group.ID > 0:
		res = models.GroupResource(event.Group.ID)
	default:
		apierrors.WriteError(w, http.StatusBadRequest, apierrors.ErrCodeInvalidInput, "Event names no project or group", nil)
		return
	}

	rec, err := h.svc.Get(r.Context(), res)
	if err != nil {
		if err == repositories.ErrNotFound {
			apierrors.WriteError(w, http.StatusNotFound, apierrors.ErrCodeNotFound, "Unknown resource", nil)
			return
		}
		apierrors.WriteError(w, http.StatusInternalServerError, apierrors.ErrCodeInternal, "Failed to resolve delivery", nil)
		return
	}

	if rec.WebhookSecret == "" ||
		subtle.ConstantTimeCompare([]byte(token), []byte(rec.WebhookSecret)) != 1 {
		apierrors.WriteError(w, http.StatusUnauthorized, apierrors.ErrCodeUnauthorized, "Invalid webhook token", nil)
		return
	}

	log.Debug().
		Stringer("resource", res).
		Str("object_kind", event.ObjectKind).
		Str("correlation_id", rec.WebhookUUID).
		Msg("delivery accepted")

	w.WriteHeader(http.StatusNoContent)
}
