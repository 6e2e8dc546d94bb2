package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/alanyoungcy/marketgroups/internal/domain"
)

// organizerService is the subset of service.OrganizerService the handler
// needs.
type organizerService interface {
	Organize(ctx context.Context, eventID, groupKey string) ([]domain.Organizer, error)
	OrganizeAll(ctx context.Context, eventID string) ([]domain.GroupOrganizers, error)
	FirstMarket(eventID string) (domain.Market, bool)
	Ingest(ctx context.Context, snap domain.EventSnapshot) error
}

// OrganizerHandler serves event organizers.
type OrganizerHandler struct {
	svc    organizerService
	logger *slog.Logger
}

// NewOrganizerHandler creates an OrganizerHandler.
func NewOrganizerHandler(svc organizerService, logger *slog.Logger) *OrganizerHandler {
	return &OrganizerHandler{svc: svc, logger: logHandler(logger, "organizers")}
}

// GetOrganizers returns the organizers of one market group, or of every
// group when the group query parameter is absent.
// GET /api/events/{eventID}/organizers?group={groupKey}
func (h *OrganizerHandler) GetOrganizers(w http.ResponseWriter, r *http.Request) {
	eventID := pathParam(r, "eventID")
	group := strings.TrimSpace(r.URL.Query().Get("group"))

	if group == "" {
		groups, err := h.svc.OrganizeAll(r.Context(), eventID)
		if err != nil {
			writeServiceError(w, r, h.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"event_id": eventID,
			"groups":   groups,
		})
		return
	}

	orgs, err := h.svc.Organize(r.Context(), eventID, group)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"event_id":   eventID,
		"group_key":  group,
		"organizers": orgs,
	})
}

// GetFirstMarket returns the first market organized for the event.
// GET /api/events/{eventID}/first-market
func (h *OrganizerHandler) GetFirstMarket(w http.ResponseWriter, r *http.Request) {
	m, ok := h.svc.FirstMarket(pathParam(r, "eventID"))
	if !ok {
		writeError(w, http.StatusNotFound, "no market organized yet for event")
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// PutSnapshot stores a snapshot for the event and triggers a recompute.
// PUT /api/events/{eventID}/snapshot
func (h *OrganizerHandler) PutSnapshot(w http.ResponseWriter, r *http.Request) {
	var snap domain.EventSnapshot
	if err := decodeBody(w, r, &snap); err != nil {
		writeError(w, http.StatusBadRequest, "invalid snapshot: "+err.Error())
		return
	}
	eventID := pathParam(r, "eventID")
	if snap.EventID == "" {
		snap.EventID = eventID
	}
	if snap.EventID != eventID {
		writeError(w, http.StatusBadRequest, "event_id does not match path")
		return
	}

	if err := h.svc.Ingest(r.Context(), snap); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"event_id": eventID})
}
