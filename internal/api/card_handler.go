package api

import (
	"log/slog"
	"net/http"

	"github.com/parlohq/parlo-api/internal/api/shared"
	"github.com/parlohq/parlo-api/internal/service"
)

// CardHandler handles single-card reads and deletes.
type CardHandler struct {
	cardService service.CardService
	logger      *slog.Logger
}

// NewCardHandler creates a CardHandler.
func NewCardHandler(cardService service.CardService, log *slog.Logger) *CardHandler {
	if log == nil {
		log = slog.Default()
	}
	return &CardHandler{
		cardService: cardService,
		logger:      log.With(slog.String("component", "card_handler")),
	}
}

// GetCard handles GET /cards/{id}.
func (h *CardHandler) GetCard(w http.ResponseWriter, r *http.Request) {
	userID, cardID, ok := requireUserAndPathUUID(w, r, "id")
	if !ok {
		return
	}

	card, err := h.cardService.GetCard(r.Context(), userID, cardID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get card")
		return
	}

	resp, err := cardToResponse(card)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to read card content")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// DeleteCard handles DELETE /cards/{id}.
func (h *CardHandler) DeleteCard(w http.ResponseWriter, r *http.Request) {
	userID, cardID, ok := requireUserAndPathUUID(w, r, "id")
	if !ok {
		return
	}

	if err := h.cardService.DeleteCard(r.Context(), userID, cardID); err != nil {
		HandleAPIError(w, r, err, "Failed to delete card")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
