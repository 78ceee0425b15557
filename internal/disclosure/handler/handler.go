// Package handler exposes the traveler-facing, disclosure-gated itinerary
// view. This is the only HTTP surface travelers get; raw versions stay on
// the agent routes.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"wayfare/internal/disclosure/models"
	id "wayfare/pkg/domain"
	dErrors "wayfare/pkg/domain-errors"
	"wayfare/pkg/platform/httputil"
)

// Service is the disclosure operation the handler depends on.
type Service interface {
	RenderForTraveler(ctx context.Context, itineraryID id.ItineraryID, bookingID id.BookingID, versionNumber *int) (models.TravelerView, error)
}

type Handler struct {
	logger *slog.Logger
	svc    Service
}

func New(svc Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, svc: svc}
}

// Register mounts the traveler routes.
func (h *Handler) Register(r chi.Router) {
	r.Get("/travelers/itineraries/{itineraryID}", h.handleRender)
}

func (h *Handler) handleRender(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	itineraryID, err := id.ParseItineraryID(chi.URLParam(r, "itineraryID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid itinerary id"))
		return
	}
	bookingID, err := id.ParseBookingID(r.URL.Query().Get("booking_id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "booking_id is required"))
		return
	}

	var versionNumber *int
	if raw := r.URL.Query().Get("version"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid version"))
			return
		}
		versionNumber = &n
	}

	view, err := h.svc.RenderForTraveler(ctx, itineraryID, bookingID, versionNumber)
	if err != nil {
		switch dErrors.CodeOf(err) {
		case dErrors.CodeInternal:
			h.logger.ErrorContext(ctx, "failed to render traveler itinerary", "error", err)
		default:
			h.logger.WarnContext(ctx, "failed to render traveler itinerary", "error", err)
		}
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}
