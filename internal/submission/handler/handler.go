// Package handler exposes submission intake and processing over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"wayfare/internal/submission/models"
	"wayfare/internal/submission/service"
	id "wayfare/pkg/domain"
	dErrors "wayfare/pkg/domain-errors"
	"wayfare/pkg/platform/httputil"
)

const maxBodyBytes = 1 << 20

// Service is the submission operations the handler depends on.
type Service interface {
	Create(ctx context.Context, input service.CreateInput) (*models.Submission, error)
	Get(ctx context.Context, submissionID id.SubmissionID) (*models.Submission, error)
	ListByTravelRequest(ctx context.Context, requestID id.TravelRequestID) ([]*models.Submission, error)
	ListByAgent(ctx context.Context, agentID id.AgentID) ([]*models.Submission, error)
	UpdateStatus(ctx context.Context, submissionID id.SubmissionID, target models.Status, errorMessage string) (*models.Submission, error)
	LinkToItinerary(ctx context.Context, submissionID id.SubmissionID, itineraryID id.ItineraryID) (*models.Submission, error)
}

// Handler handles submission endpoints for agents and internal processing
// callers.
type Handler struct {
	logger *slog.Logger
	svc    Service
}

func New(svc Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, svc: svc}
}

// Register mounts the submission routes. /agents/* is the agent-facing
// surface; /internal/* is called by the parsing pipeline, not by end users.
func (h *Handler) Register(r chi.Router) {
	r.Post("/agents/submissions", h.handleCreate)
	r.Get("/agents/submissions", h.handleList)
	r.Get("/agents/submissions/{submissionID}", h.handleGet)
	r.Patch("/internal/submissions/{submissionID}/status", h.handleUpdateStatus)
	r.Post("/internal/submissions/{submissionID}/link", h.handleLink)
}

type createSubmissionRequest struct {
	TravelRequestID id.TravelRequestID `json:"travel_request_id"`
	AgentID         id.AgentID         `json:"agent_id"`
	TravelerID      id.TravelerID      `json:"traveler_id"`
	Content         json.RawMessage    `json:"content"`
}

type submissionResponse struct {
	ID                   id.SubmissionID    `json:"id"`
	TravelRequestID      id.TravelRequestID `json:"travel_request_id"`
	AgentID              id.AgentID         `json:"agent_id"`
	TravelerID           id.TravelerID      `json:"traveler_id"`
	Status               models.Status      `json:"status"`
	ContentHash          string             `json:"content_hash"`
	ResultingItineraryID *id.ItineraryID    `json:"resulting_itinerary_id,omitempty"`
	ErrorMessage         *string            `json:"error_message,omitempty"`
	CreatedAt            time.Time          `json:"created_at"`
	UpdatedAt            time.Time          `json:"updated_at"`
	ProcessedAt          *time.Time         `json:"processed_at,omitempty"`
}

func toResponse(sub *models.Submission) submissionResponse {
	return submissionResponse{
		ID:                   sub.ID,
		TravelRequestID:      sub.TravelRequestID,
		AgentID:              sub.AgentID,
		TravelerID:           sub.TravelerID,
		Status:               sub.Status,
		ContentHash:          sub.ContentHash,
		ResultingItineraryID: sub.ResultingItineraryID,
		ErrorMessage:         sub.ErrorMessage,
		CreatedAt:            sub.CreatedAt,
		UpdatedAt:            sub.UpdatedAt,
		ProcessedAt:          sub.ProcessedAt,
	}
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "request body too large or unreadable"))
		return
	}

	var req createSubmissionRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if len(req.Content) == 0 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "content is required"))
		return
	}

	var content models.Content
	if err := json.Unmarshal(req.Content, &content); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid submission content"))
		return
	}

	sub, err := h.svc.Create(ctx, service.CreateInput{
		TravelRequestID: req.TravelRequestID,
		AgentID:         req.AgentID,
		TravelerID:      req.TravelerID,
		Content:         content,
		RawContent:      req.Content,
	})
	if err != nil {
		var dup *service.DuplicateError
		if errors.As(err, &dup) {
			httputil.WriteJSON(w, http.StatusConflict, map[string]string{
				"error":                  string(dErrors.CodeDuplicate),
				"error_description":      "identical content already submitted",
				"existing_submission_id": dup.ExistingID.String(),
			})
			return
		}
		h.logError(ctx, "failed to create submission", err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, toResponse(sub))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	submissionID, err := id.ParseSubmissionID(chi.URLParam(r, "submissionID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid submission id"))
		return
	}

	sub, err := h.svc.Get(r.Context(), submissionID)
	if err != nil {
		h.logError(r.Context(), "failed to get submission", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(sub))
}

// handleList serves both list shapes: by travel request or by agent,
// selected with exactly one query parameter.
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestParam := r.URL.Query().Get("request_id")
	agentParam := r.URL.Query().Get("agent_id")

	var (
		subs []*models.Submission
		err  error
	)
	switch {
	case requestParam != "" && agentParam != "":
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "request_id and agent_id are mutually exclusive"))
		return
	case requestParam != "":
		requestID, parseErr := id.ParseTravelRequestID(requestParam)
		if parseErr != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request_id"))
			return
		}
		subs, err = h.svc.ListByTravelRequest(ctx, requestID)
	case agentParam != "":
		agentID, parseErr := id.ParseAgentID(agentParam)
		if parseErr != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid agent_id"))
			return
		}
		subs, err = h.svc.ListByAgent(ctx, agentID)
	default:
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "request_id or agent_id is required"))
		return
	}
	if err != nil {
		h.logError(ctx, "failed to list submissions", err)
		httputil.WriteError(w, err)
		return
	}

	out := make([]submissionResponse, 0, len(subs))
	for _, sub := range subs {
		out = append(out, toResponse(sub))
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"submissions": out})
}

type updateStatusRequest struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`
}

func (h *Handler) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	submissionID, err := id.ParseSubmissionID(chi.URLParam(r, "submissionID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid submission id"))
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	status, err := models.ParseStatus(req.Status)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	sub, err := h.svc.UpdateStatus(ctx, submissionID, status, req.ErrorMessage)
	if err != nil {
		h.logError(ctx, "failed to update submission status", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(sub))
}

type linkRequest struct {
	ItineraryID id.ItineraryID `json:"itinerary_id"`
}

func (h *Handler) handleLink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	submissionID, err := id.ParseSubmissionID(chi.URLParam(r, "submissionID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid submission id"))
		return
	}

	var req linkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	sub, err := h.svc.LinkToItinerary(ctx, submissionID, req.ItineraryID)
	if err != nil {
		h.logError(ctx, "failed to link submission", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(sub))
}

func (h *Handler) logError(ctx context.Context, msg string, err error) {
	switch dErrors.CodeOf(err) {
	case dErrors.CodeInternal, dErrors.CodeInvalidTransition:
		h.logger.ErrorContext(ctx, msg, "error", err)
	default:
		h.logger.WarnContext(ctx, msg, "error", err)
	}
}
