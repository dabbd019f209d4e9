package api

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/parlohq/parlo-api/internal/api/shared"
	"github.com/parlohq/parlo-api/internal/domain"
	"github.com/parlohq/parlo-api/internal/platform/logger"
	"github.com/parlohq/parlo-api/internal/service"
)

// StudyHandler handles study sessions and card reviews.
type StudyHandler struct {
	studyService service.StudyService
	logger       *slog.Logger
}

// NewStudyHandler creates a StudyHandler.
func NewStudyHandler(studyService service.StudyService, log *slog.Logger) *StudyHandler {
	if log == nil {
		log = slog.Default()
	}
	return &StudyHandler{
		studyService: studyService,
		logger:       log.With(slog.String("component", "study_handler")),
	}
}

// StartSession handles POST /study/sessions, the session-gated entry point.
// On allow the session is created with usage recorded atomically; on quota
// deny the response is the 429 envelope.
func (h *StudyHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req StartSessionRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}
	topicID, err := uuid.Parse(req.TopicID)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid topic_id")
		return
	}

	session, err := h.studyService.StartSession(r.Context(), userID, topicID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to start study session")
		return
	}

	log := logger.FromContextOrDefault(r.Context(), h.logger)
	log.Info("study session started",
		slog.String("session_id", session.ID.String()),
		slog.String("topic_id", topicID.String()))

	shared.RespondWithJSON(w, r, http.StatusCreated, sessionToResponse(session))
}

// SubmitReview handles POST /study/sessions/{id}/reviews. Reviews against a
// completed session fail with 409.
func (h *StudyHandler) SubmitReview(w http.ResponseWriter, r *http.Request) {
	userID, sessionID, ok := requireUserAndPathUUID(w, r, "id")
	if !ok {
		return
	}

	var req SubmitReviewRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}
	cardID, err := uuid.Parse(req.CardID)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid card_id")
		return
	}

	review, err := h.studyService.SubmitReview(
		r.Context(), userID, sessionID, cardID, domain.ReviewOutcome(req.Outcome))
	if err != nil {
		HandleAPIError(w, r, err, "Failed to submit review")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, reviewToResponse(review))
}

// CompleteSession handles POST /study/sessions/{id}/complete. Completing an
// already-completed session fails with 409.
func (h *StudyHandler) CompleteSession(w http.ResponseWriter, r *http.Request) {
	userID, sessionID, ok := requireUserAndPathUUID(w, r, "id")
	if !ok {
		return
	}

	session, err := h.studyService.CompleteSession(r.Context(), userID, sessionID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to complete study session")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, sessionToResponse(session))
}
