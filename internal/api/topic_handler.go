package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/parlohq/parlo-api/internal/api/shared"
	"github.com/parlohq/parlo-api/internal/platform/logger"
	"github.com/parlohq/parlo-api/internal/service"
)

// TopicHandler handles topic CRUD and the generation-gated request.
type TopicHandler struct {
	topicService service.TopicService
	cardService  service.CardService
	logger       *slog.Logger
}

// NewTopicHandler creates a TopicHandler.
func NewTopicHandler(
	topicService service.TopicService,
	cardService service.CardService,
	log *slog.Logger,
) *TopicHandler {
	if log == nil {
		log = slog.Default()
	}
	return &TopicHandler{
		topicService: topicService,
		cardService:  cardService,
		logger:       log.With(slog.String("component", "topic_handler")),
	}
}

// CreateTopic handles POST /topics.
func (h *TopicHandler) CreateTopic(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req CreateTopicRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	topic, err := h.topicService.CreateTopic(r.Context(), userID, req.Title, req.Description)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create topic")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, topicToResponse(topic))
}

// ListTopics handles GET /topics.
func (h *TopicHandler) ListTopics(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	topics, err := h.topicService.ListTopics(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list topics")
		return
	}

	responses := make([]TopicResponse, 0, len(topics))
	for _, topic := range topics {
		responses = append(responses, topicToResponse(topic))
	}
	shared.RespondWithJSON(w, r, http.StatusOK, responses)
}

// GetTopic handles GET /topics/{id}.
func (h *TopicHandler) GetTopic(w http.ResponseWriter, r *http.Request) {
	userID, topicID, ok := requireUserAndPathUUID(w, r, "id")
	if !ok {
		return
	}

	topic, err := h.topicService.GetTopic(r.Context(), userID, topicID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get topic")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, topicToResponse(topic))
}

// DeleteTopic handles DELETE /topics/{id}. Cards under the topic go with it.
func (h *TopicHandler) DeleteTopic(w http.ResponseWriter, r *http.Request) {
	userID, topicID, ok := requireUserAndPathUUID(w, r, "id")
	if !ok {
		return
	}

	if err := h.topicService.DeleteTopic(r.Context(), userID, topicID); err != nil {
		HandleAPIError(w, r, err, "Failed to delete topic")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListTopicCards handles GET /topics/{id}/cards.
func (h *TopicHandler) ListTopicCards(w http.ResponseWriter, r *http.Request) {
	userID, topicID, ok := requireUserAndPathUUID(w, r, "id")
	if !ok {
		return
	}

	log := logger.FromContextOrDefault(r.Context(), h.logger)

	cards, err := h.cardService.ListCardsByTopic(r.Context(), userID, topicID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list cards")
		return
	}

	responses := make([]CardResponse, 0, len(cards))
	for _, card := range cards {
		resp, err := cardToResponse(card)
		if err != nil {
			// A malformed content row shouldn't hide the rest of the deck.
			log.Error("skipping card with unparseable content",
				slog.String("card_id", card.ID.String()),
				slog.String("error", err.Error()))
			continue
		}
		responses = append(responses, resp)
	}
	shared.RespondWithJSON(w, r, http.StatusOK, responses)
}

// GenerateCards handles POST /topics/{id}/generate, the generation-gated
// entry point. On allow the response is 202 with the queued task's ID; on
// quota deny it is the 429 envelope.
func (h *TopicHandler) GenerateCards(w http.ResponseWriter, r *http.Request) {
	userID, topicID, ok := requireUserAndPathUUID(w, r, "id")
	if !ok {
		return
	}

	log := logger.FromContextOrDefault(r.Context(), h.logger)

	// The body is optional; {count} tunes the batch size.
	var req GenerateCardsRequest
	if err := shared.DecodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	genTask, err := h.topicService.RequestGeneration(r.Context(), userID, topicID, req.Count)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to request generation")
		return
	}

	log.Info("generation request accepted",
		slog.String("topic_id", topicID.String()),
		slog.String("task_id", genTask.ID().String()))

	shared.RespondWithJSON(w, r, http.StatusAccepted, GenerationAcceptedResponse{
		TaskID: genTask.ID().String(),
		Status: string(genTask.Status()),
	})
}
