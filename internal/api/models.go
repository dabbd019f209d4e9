package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/parlohq/parlo-api/internal/domain"
	"github.com/parlohq/parlo-api/internal/domain/quota"
)

// Request and response DTOs. Domain entities never cross the HTTP boundary
// directly; each handler converts through these.

// RegisterRequest is the payload for user registration.
type RegisterRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=12,max=72"`
}

// LoginRequest is the payload for user login.
type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=1"`
}

// RefreshTokenRequest is the payload for the token refresh endpoint.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// AuthResponse is the success response for register, login, and refresh.
type AuthResponse struct {
	UserID       uuid.UUID `json:"user_id"`
	Token        string    `json:"token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    string    `json:"expires_at,omitempty"`
}

// CreateTopicRequest is the payload for creating a topic.
type CreateTopicRequest struct {
	Title       string `json:"title"       validate:"required,min=1,max=100"`
	Description string `json:"description" validate:"max=500"`
}

// TopicResponse is the wire form of a topic.
type TopicResponse struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	Description      string    `json:"description,omitempty"`
	GenerationStatus string    `json:"generation_status"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func topicToResponse(topic *domain.Topic) TopicResponse {
	return TopicResponse{
		ID:               topic.ID.String(),
		Title:            topic.Title,
		Description:      topic.Description,
		GenerationStatus: string(topic.GenerationStatus),
		CreatedAt:        topic.CreatedAt,
		UpdatedAt:        topic.UpdatedAt,
	}
}

// GenerateCardsRequest is the payload for requesting card generation.
// Count falls back to the configured default when omitted.
type GenerateCardsRequest struct {
	Count int `json:"count" validate:"omitempty,gt=0,lte=50"`
}

// GenerationAcceptedResponse is the 202 body for an accepted generation
// request. The task runs asynchronously; status starts at pending.
type GenerationAcceptedResponse struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
}

// CardResponse is the wire form of a card, with content flattened out of
// its stored JSON.
type CardResponse struct {
	ID        string    `json:"id"`
	TopicID   string    `json:"topic_id"`
	Front     string    `json:"front"`
	Back      string    `json:"back"`
	Example   string    `json:"example,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func cardToResponse(card *domain.Card) (CardResponse, error) {
	content, err := card.ParsedContent()
	if err != nil {
		return CardResponse{}, err
	}
	return CardResponse{
		ID:        card.ID.String(),
		TopicID:   card.TopicID.String(),
		Front:     content.Front,
		Back:      content.Back,
		Example:   content.Example,
		CreatedAt: card.CreatedAt,
	}, nil
}

// StartSessionRequest is the payload for starting a study session.
type StartSessionRequest struct {
	TopicID string `json:"topic_id" validate:"required,uuid"`
}

// SessionResponse is the wire form of a study session.
type SessionResponse struct {
	ID            string     `json:"id"`
	TopicID       string     `json:"topic_id"`
	StartedAt     time.Time  `json:"started_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	CardsReviewed int        `json:"cards_reviewed"`
}

func sessionToResponse(session *domain.StudySession) SessionResponse {
	return SessionResponse{
		ID:            session.ID.String(),
		TopicID:       session.TopicID.String(),
		StartedAt:     session.StartedAt,
		CompletedAt:   session.CompletedAt,
		CardsReviewed: session.CardsReviewed,
	}
}

// SubmitReviewRequest is the payload for recording a card review outcome.
type SubmitReviewRequest struct {
	CardID  string `json:"card_id" validate:"required,uuid"`
	Outcome string `json:"outcome" validate:"required,oneof=again good easy"`
}

// ReviewResponse is the wire form of a recorded review.
type ReviewResponse struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"session_id"`
	CardID     string    `json:"card_id"`
	Outcome    string    `json:"outcome"`
	ReviewedAt time.Time `json:"reviewed_at"`
}

func reviewToResponse(review *domain.CardReview) ReviewResponse {
	return ReviewResponse{
		ID:         review.ID.String(),
		SessionID:  review.SessionID.String(),
		CardID:     review.CardID.String(),
		Outcome:    string(review.Outcome),
		ReviewedAt: review.ReviewedAt,
	}
}

// ChangePlanRequest is the payload for switching subscription plans.
type ChangePlanRequest struct {
	PlanType string `json:"plan_type" validate:"required"`
}

// SubscriptionResponse is the user's full quota snapshot plus the reset
// countdown, the shape the usage meter renders from.
type SubscriptionResponse struct {
	PlanType             string `json:"plan_type"`
	SessionsUsed         int    `json:"sessions_used"`
	SessionsLimit        int    `json:"sessions_limit"`
	SessionsRemaining    int    `json:"sessions_remaining"`
	GenerationsUsed      int    `json:"generations_used"`
	GenerationsLimit     int    `json:"generations_limit"`
	GenerationsRemaining int    `json:"generations_remaining"`
	Unlimited            bool   `json:"unlimited"`
	UsageDate            string `json:"usage_date"`
	TimeUntilReset       string `json:"time_until_reset"`
	QuotaPrompt          bool   `json:"quota_prompt,omitempty"`
}

func snapshotToResponse(snap quota.Snapshot, timeUntilReset string) SubscriptionResponse {
	return SubscriptionResponse{
		PlanType:             snap.PlanType,
		SessionsUsed:         snap.SessionsUsed,
		SessionsLimit:        snap.SessionsLimit,
		SessionsRemaining:    snap.SessionsRemaining,
		GenerationsUsed:      snap.GenerationsUsed,
		GenerationsLimit:     snap.GenerationsLimit,
		GenerationsRemaining: snap.GenerationsRemaining,
		Unlimited:            snap.Unlimited,
		UsageDate:            snap.UsageDate,
		TimeUntilReset:       timeUntilReset,
	}
}

// PlanChangeFlowResponse is the body for POST /quota/plan-change: the
// navigation destination plus the quota-origin marker.
type PlanChangeFlowResponse struct {
	Destination string `json:"destination"`
	QuotaPrompt bool   `json:"quota_prompt"`
}
