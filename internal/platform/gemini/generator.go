package gemini

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"text/template"
	"time"

	"github.com/parlohq/parlo-api/internal/config"
	"github.com/parlohq/parlo-api/internal/domain"
	"github.com/parlohq/parlo-api/internal/generation"
	"github.com/parlohq/parlo-api/internal/platform/logger"
	"google.golang.org/genai"
)

//go:embed prompt.tmpl
var promptTemplateText string

// Error definitions for the gemini package.
var (
	// ErrNilTopic is returned when GenerateCards is called without a topic.
	ErrNilTopic = errors.New("topic cannot be nil")

	// ErrInvalidCardCount is returned when the requested card count is not positive.
	ErrInvalidCardCount = errors.New("card count must be positive")
)

// promptData represents the data passed to the prompt template
type promptData struct {
	Title       string
	Description string
	Count       int
}

// responseSchema is the JSON document the model is instructed to return.
type responseSchema struct {
	Cards []cardSchema `json:"cards"`
}

// cardSchema is a single flashcard in the model's response.
type cardSchema struct {
	Front   string `json:"front"`
	Back    string `json:"back"`
	Example string `json:"example,omitempty"`
}

// modelCaller is the single Gemini call the generator makes, kept behind an
// interface so tests can exercise retry and parsing logic without the network.
type modelCaller interface {
	generateContent(ctx context.Context, model, prompt string) (*genai.GenerateContentResponse, error)
}

// genaiCaller calls the real Gemini API. The response is requested as JSON
// so the model does not wrap it in prose or markdown fences.
type genaiCaller struct {
	client *genai.Client
}

func (c *genaiCaller) generateContent(
	ctx context.Context,
	model, prompt string,
) (*genai.GenerateContentResponse, error) {
	return c.client.Models.GenerateContent(ctx, model, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
}

// GeminiGenerator implements the generation.Generator interface using
// Google's Gemini API to generate flashcards for a topic.
type GeminiGenerator struct {
	logger         *slog.Logger
	config         config.LLMConfig
	promptTemplate *template.Template
	caller         modelCaller
	baseDelay      time.Duration
}

// NewGeminiGenerator creates a GeminiGenerator from the LLM configuration.
// The prompt template is embedded in the binary, so the generator has no
// filesystem dependencies.
func NewGeminiGenerator(
	ctx context.Context,
	logger *slog.Logger,
	cfg config.LLMConfig,
) (*GeminiGenerator, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", generation.ErrInvalidConfig)
	}

	if cfg.ModelName == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", generation.ErrInvalidConfig)
	}

	promptTemplate, err := template.New("flashcards").Parse(promptTemplateText)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse prompt template: %v",
			generation.ErrInvalidConfig, err)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v",
			generation.ErrInvalidConfig, err)
	}

	baseDelay := time.Duration(cfg.RetryDelaySeconds) * time.Second
	if baseDelay < time.Second {
		baseDelay = 2 * time.Second
	}

	return &GeminiGenerator{
		logger:         logger.With(slog.String("component", "gemini_generator")),
		config:         cfg,
		promptTemplate: promptTemplate,
		caller:         &genaiCaller{client: client},
		baseDelay:      baseDelay,
	}, nil
}

// Ensure GeminiGenerator implements generation.Generator
var _ generation.Generator = (*GeminiGenerator)(nil)

// GenerateCards implements generation.Generator.GenerateCards
func (g *GeminiGenerator) GenerateCards(
	ctx context.Context,
	topic *domain.Topic,
	count int,
) ([]*domain.Card, error) {
	if topic == nil {
		return nil, ErrNilTopic
	}
	if count <= 0 {
		return nil, ErrInvalidCardCount
	}

	log := logger.FromContextOrDefault(ctx, g.logger)

	prompt, err := g.createPrompt(topic, count)
	if err != nil {
		return nil, err
	}

	log.Debug("generating cards",
		slog.String("topic_id", topic.ID.String()),
		slog.String("model", g.config.ModelName),
		slog.Int("count", count))

	response, err := g.callWithRetry(ctx, prompt)
	if err != nil {
		return nil, err
	}

	cards, err := g.parseResponse(response, topic, count)
	if err != nil {
		return nil, err
	}

	log.Info("cards generated",
		slog.String("topic_id", topic.ID.String()),
		slog.Int("requested", count),
		slog.Int("generated", len(cards)))
	return cards, nil
}

// createPrompt renders the embedded template for the topic.
func (g *GeminiGenerator) createPrompt(topic *domain.Topic, count int) (string, error) {
	var buf bytes.Buffer
	err := g.promptTemplate.Execute(&buf, promptData{
		Title:       topic.Title,
		Description: topic.Description,
		Count:       count,
	})
	if err != nil {
		return "", fmt.Errorf("failed to execute prompt template: %w", err)
	}
	return buf.String(), nil
}

// callWithRetry calls the model, retrying transient failures with
// exponential backoff and jitter. Permanent failures (blocked content,
// unparseable responses, 4xx rejections) return immediately.
func (g *GeminiGenerator) callWithRetry(ctx context.Context, prompt string) (*responseSchema, error) {
	log := logger.FromContextOrDefault(ctx, g.logger)

	maxRetries := g.config.MaxRetries
	if maxRetries < 0 {
		maxRetries = 3
	}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	for attempt := 0; ; attempt++ {
		response, err := g.callOnce(ctx, prompt)
		if err == nil {
			return response, nil
		}

		if !errors.Is(err, generation.ErrTransientFailure) {
			log.Warn("permanent generation failure, not retrying",
				slog.String("error", err.Error()))
			return nil, err
		}

		if attempt >= maxRetries {
			log.Warn("maximum retry attempts reached",
				slog.Int("max_retries", maxRetries))
			return nil, fmt.Errorf("exceeded %d attempts: %w", maxRetries+1, err)
		}

		// delay = baseDelay * 2^attempt * (0.5 + rand(0, 0.5))
		backoff := float64(g.baseDelay) * math.Pow(2, float64(attempt))
		jitter := 0.5 + rng.Float64()*0.5
		delay := time.Duration(backoff * jitter)

		log.Info("retrying generation after delay",
			slog.Int("attempt", attempt+1),
			slog.Duration("delay", delay),
			slog.String("error", err.Error()))

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", generation.ErrTransientFailure, ctx.Err())
		}
	}
}

// callOnce makes a single model call and validates the response shape.
func (g *GeminiGenerator) callOnce(ctx context.Context, prompt string) (*responseSchema, error) {
	resp, err := g.caller.generateContent(ctx, g.config.ModelName, prompt)
	if err != nil {
		return nil, classifyAPIError(err)
	}

	if resp == nil || len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("%w: no content generated", generation.ErrInvalidResponse)
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return nil, fmt.Errorf("%w: generation stopped by safety filters", generation.ErrContentBlocked)
	}

	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return nil, fmt.Errorf("%w: empty content in response", generation.ErrInvalidResponse)
	}

	var text string
	for _, part := range candidate.Content.Parts {
		if part != nil {
			text += part.Text
		}
	}

	var parsed responseSchema
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return nil, fmt.Errorf("%w: failed to parse JSON response: %v",
			generation.ErrInvalidResponse, err)
	}

	return &parsed, nil
}

// classifyAPIError maps a transport error to the package's sentinel errors.
// Rate limits and server errors are transient; other API rejections are not.
func classifyAPIError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code == 429 || apiErr.Code >= 500 {
			return fmt.Errorf("%w: gemini API returned %d: %s",
				generation.ErrTransientFailure, apiErr.Code, apiErr.Message)
		}
		return fmt.Errorf("%w: gemini API returned %d: %s",
			generation.ErrGenerationFailed, apiErr.Code, apiErr.Message)
	}

	// Anything else is transport-level (DNS, reset connections) and worth retrying.
	return fmt.Errorf("%w: %v", generation.ErrTransientFailure, err)
}

// parseResponse converts the model's JSON into domain cards owned by the
// topic. Responses with more cards than requested are truncated; a card
// missing either side invalidates the whole response.
func (g *GeminiGenerator) parseResponse(
	response *responseSchema,
	topic *domain.Topic,
	count int,
) ([]*domain.Card, error) {
	if response == nil || len(response.Cards) == 0 {
		return nil, fmt.Errorf("%w: no cards in response", generation.ErrInvalidResponse)
	}

	schemas := response.Cards
	if len(schemas) > count {
		schemas = schemas[:count]
	}

	cards := make([]*domain.Card, 0, len(schemas))
	for i, schema := range schemas {
		card, err := domain.NewCardFromContent(topic.UserID, topic.ID, domain.CardContent{
			Front:   schema.Front,
			Back:    schema.Back,
			Example: schema.Example,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: card %d: %v", generation.ErrInvalidResponse, i, err)
		}
		cards = append(cards, card)
	}

	return cards, nil
}
