package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/marketgroups/internal/domain"
)

// betBuilderService is the subset of service.BetBuilderService the handler
// needs.
type betBuilderService interface {
	SelectionsChanged(ctx context.Context, sessionID string, selectionIDs []string) bool
	Grayouts(sessionID string) domain.GrayoutsState
	ShouldGrayout(sessionID, outcomeID string) bool
	EndSession(sessionID string)
}

// BetBuilderHandler serves bet-builder selections and grayouts.
type BetBuilderHandler struct {
	svc    betBuilderService
	logger *slog.Logger
}

// NewBetBuilderHandler creates a BetBuilderHandler.
func NewBetBuilderHandler(svc betBuilderService, logger *slog.Logger) *BetBuilderHandler {
	return &BetBuilderHandler{svc: svc, logger: logHandler(logger, "betbuilder")}
}

type selectionsRequest struct {
	Selections []string `json:"selections"`
}

// PostSelections notifies the session's gate of its current selections.
// The response reports whether a grayouts fetch was started.
// POST /api/betbuilder/{sessionID}/selections
func (h *BetBuilderHandler) PostSelections(w http.ResponseWriter, r *http.Request) {
	var req selectionsRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid selections: "+err.Error())
		return
	}
	sessionID := pathParam(r, "sessionID")

	started := h.svc.SelectionsChanged(r.Context(), sessionID, req.Selections)
	h.logger.DebugContext(r.Context(), "selections changed",
		slog.String("session_id", sessionID),
		slog.Int("selections", len(req.Selections)),
		slog.Bool("fetch_started", started),
	)
	writeJSON(w, http.StatusAccepted, map[string]any{
		"session_id":    sessionID,
		"fetch_started": started,
	})
}

// GetGrayouts returns the session's grayout state.
// GET /api/betbuilder/{sessionID}/grayouts
func (h *BetBuilderHandler) GetGrayouts(w http.ResponseWriter, r *http.Request) {
	sessionID := pathParam(r, "sessionID")
	state := h.svc.Grayouts(sessionID)
	writeJSON(w, http.StatusOK, domain.GrayoutsUpdate{
		SessionID:   sessionID,
		State:       state,
		Unavailable: state.Unavailable(),
	})
}

// GetOutcomeGrayout reports whether one outcome is grayed out.
// GET /api/betbuilder/{sessionID}/grayouts/{outcomeID}
func (h *BetBuilderHandler) GetOutcomeGrayout(w http.ResponseWriter, r *http.Request) {
	grayout := h.svc.ShouldGrayout(pathParam(r, "sessionID"), pathParam(r, "outcomeID"))
	writeJSON(w, http.StatusOK, map[string]bool{"grayout": grayout})
}

// DeleteSession ends the session and cancels its in-flight fetch.
// DELETE /api/betbuilder/{sessionID}
func (h *BetBuilderHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	h.svc.EndSession(pathParam(r, "sessionID"))
	w.WriteHeader(http.StatusNoContent)
}
