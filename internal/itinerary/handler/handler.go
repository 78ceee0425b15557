// Package handler exposes raw itinerary version access for agents and the
// parsing pipeline. Traveler access never goes through here; travelers only
// see itineraries through the disclosure engine.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"wayfare/internal/itinerary/models"
	id "wayfare/pkg/domain"
	dErrors "wayfare/pkg/domain-errors"
	"wayfare/pkg/platform/httputil"
)

// Service is the itinerary operations the handler depends on.
type Service interface {
	CreateVersion(ctx context.Context, itineraryID id.ItineraryID, sourceSubmissionID id.SubmissionID, drafts []models.ItemDraft) (*models.ItineraryVersion, error)
	GetVersion(ctx context.Context, itineraryID id.ItineraryID, number int) (*models.ItineraryVersion, error)
	LatestVersion(ctx context.Context, itineraryID id.ItineraryID) (*models.ItineraryVersion, error)
	ListVersions(ctx context.Context, itineraryID id.ItineraryID) ([]*models.ItineraryVersion, error)
}

type Handler struct {
	logger *slog.Logger
	svc    Service
}

func New(svc Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, svc: svc}
}

// Register mounts the itinerary routes.
func (h *Handler) Register(r chi.Router) {
	r.Post("/internal/itineraries/{itineraryID}/versions", h.handleCreateVersion)
	r.Get("/agents/itineraries/{itineraryID}/versions", h.handleListVersions)
	r.Get("/agents/itineraries/{itineraryID}/versions/latest", h.handleLatestVersion)
	r.Get("/agents/itineraries/{itineraryID}/versions/{versionNumber}", h.handleGetVersion)
}

type createVersionRequest struct {
	SourceSubmissionID id.SubmissionID    `json:"source_submission_id"`
	Items              []models.ItemDraft `json:"items"`
}

func (h *Handler) handleCreateVersion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	itineraryID, err := id.ParseItineraryID(chi.URLParam(r, "itineraryID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid itinerary id"))
		return
	}

	var req createVersionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	version, err := h.svc.CreateVersion(ctx, itineraryID, req.SourceSubmissionID, req.Items)
	if err != nil {
		h.logError(ctx, "failed to create itinerary version", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, version)
}

func (h *Handler) handleListVersions(w http.ResponseWriter, r *http.Request) {
	itineraryID, err := id.ParseItineraryID(chi.URLParam(r, "itineraryID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid itinerary id"))
		return
	}

	versions, err := h.svc.ListVersions(r.Context(), itineraryID)
	if err != nil {
		h.logError(r.Context(), "failed to list itinerary versions", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"versions": versions})
}

func (h *Handler) handleLatestVersion(w http.ResponseWriter, r *http.Request) {
	itineraryID, err := id.ParseItineraryID(chi.URLParam(r, "itineraryID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid itinerary id"))
		return
	}

	version, err := h.svc.LatestVersion(r.Context(), itineraryID)
	if err != nil {
		h.logError(r.Context(), "failed to load latest itinerary version", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, version)
}

func (h *Handler) handleGetVersion(w http.ResponseWriter, r *http.Request) {
	itineraryID, err := id.ParseItineraryID(chi.URLParam(r, "itineraryID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid itinerary id"))
		return
	}
	number, err := strconv.Atoi(chi.URLParam(r, "versionNumber"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid version number"))
		return
	}

	version, err := h.svc.GetVersion(r.Context(), itineraryID, number)
	if err != nil {
		h.logError(r.Context(), "failed to load itinerary version", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, version)
}

func (h *Handler) logError(ctx context.Context, msg string, err error) {
	switch dErrors.CodeOf(err) {
	case dErrors.CodeInternal, dErrors.CodeInvalidTransition:
		h.logger.ErrorContext(ctx, msg, "error", err)
	default:
		h.logger.WarnContext(ctx, msg, "error", err)
	}
}
