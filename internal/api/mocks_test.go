package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/parlohq/parlo-api/internal/api/shared"
	"github.com/parlohq/parlo-api/internal/domain"
	"github.com/parlohq/parlo-api/internal/domain/quota"
	"github.com/parlohq/parlo-api/internal/service/auth"
	"github.com/parlohq/parlo-api/internal/store"
	"github.com/parlohq/parlo-api/internal/task"
)

// newJSONRequest builds a request with a JSON body.
func newJSONRequest(t *testing.T, method, target string, payload interface{}) *http.Request {
	t.Helper()

	var body bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(payload))
	}

	req := httptest.NewRequest(method, target, &body)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// asUser stamps the request context the way the auth middleware would.
func asUser(r *http.Request, userID uuid.UUID) *http.Request {
	ctx := context.WithValue(r.Context(), shared.UserIDContextKey, userID)
	return r.WithContext(ctx)
}

// withPathParam adds a chi URL parameter to the request context.
func withPathParam(r *http.Request, name, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(name, value)
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
	return r.WithContext(ctx)
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(v))
}

// stubUserStore is an in-memory store.UserStore.
type stubUserStore struct {
	mu      sync.Mutex
	byEmail map[string]*domain.User
	byID    map[uuid.UUID]*domain.User

	CreateFn func(ctx context.Context, user *domain.User) error
}

func newStubUserStore() *stubUserStore {
	return &stubUserStore{
		byEmail: make(map[string]*domain.User),
		byID:    make(map[uuid.UUID]*domain.User),
	}
}

func (s *stubUserStore) Create(ctx context.Context, user *domain.User) error {
	if s.CreateFn != nil {
		return s.CreateFn(ctx, user)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byEmail[user.Email]; exists {
		return store.ErrEmailExists
	}
	// The real store hashes at the persistence edge.
	user.HashedPassword = "hashed:" + user.Password
	user.Password = ""
	s.byEmail[user.Email] = user
	s.byID[user.ID] = user
	return nil
}

func (s *stubUserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.byID[id]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	return user, nil
}

func (s *stubUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.byEmail[email]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	return user, nil
}

func (s *stubUserStore) Update(ctx context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[user.ID]; !ok {
		return store.ErrUserNotFound
	}
	s.byID[user.ID] = user
	s.byEmail[user.Email] = user
	return nil
}

func (s *stubUserStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.byID[id]
	if !ok {
		return store.ErrUserNotFound
	}
	delete(s.byEmail, user.Email)
	delete(s.byID, id)
	return nil
}

func (s *stubUserStore) WithTx(tx *sql.Tx) store.UserStore { return s }

// stubJWTService hands out fixed tokens.
type stubJWTService struct {
	Token          string
	RefreshToken   string
	GenerateErr    error
	ValidateClaims *auth.Claims
	ValidateErr    error
	RefreshClaims  *auth.Claims
	RefreshErr     error
}

func (s *stubJWTService) GenerateToken(ctx context.Context, userID uuid.UUID) (string, error) {
	return s.Token, s.GenerateErr
}

func (s *stubJWTService) ValidateToken(ctx context.Context, token string) (*auth.Claims, error) {
	return s.ValidateClaims, s.ValidateErr
}

func (s *stubJWTService) GenerateRefreshToken(ctx context.Context, userID uuid.UUID) (string, error) {
	return s.RefreshToken, s.GenerateErr
}

func (s *stubJWTService) ValidateRefreshToken(ctx context.Context, token string) (*auth.Claims, error) {
	return s.RefreshClaims, s.RefreshErr
}

// stubPasswordVerifier accepts or rejects every password.
type stubPasswordVerifier struct {
	ShouldSucceed bool
}

func (v *stubPasswordVerifier) Compare(hashedPassword, password string) error {
	if v.ShouldSucceed {
		return nil
	}
	return bcrypt.ErrMismatchedHashAndPassword
}

// stubTopicService implements service.TopicService with overridable funcs.
type stubTopicService struct {
	CreateTopicFn       func(ctx context.Context, userID uuid.UUID, title, description string) (*domain.Topic, error)
	GetTopicFn          func(ctx context.Context, userID, topicID uuid.UUID) (*domain.Topic, error)
	ListTopicsFn        func(ctx context.Context, userID uuid.UUID) ([]*domain.Topic, error)
	DeleteTopicFn       func(ctx context.Context, userID, topicID uuid.UUID) error
	RequestGenerationFn func(ctx context.Context, userID, topicID uuid.UUID, count int) (task.Task, error)
}

func (s *stubTopicService) CreateTopic(ctx context.Context, userID uuid.UUID, title, description string) (*domain.Topic, error) {
	return s.CreateTopicFn(ctx, userID, title, description)
}

func (s *stubTopicService) GetTopic(ctx context.Context, userID, topicID uuid.UUID) (*domain.Topic, error) {
	return s.GetTopicFn(ctx, userID, topicID)
}

func (s *stubTopicService) ListTopics(ctx context.Context, userID uuid.UUID) ([]*domain.Topic, error) {
	return s.ListTopicsFn(ctx, userID)
}

func (s *stubTopicService) DeleteTopic(ctx context.Context, userID, topicID uuid.UUID) error {
	return s.DeleteTopicFn(ctx, userID, topicID)
}

func (s *stubTopicService) RequestGeneration(ctx context.Context, userID, topicID uuid.UUID, count int) (task.Task, error) {
	return s.RequestGenerationFn(ctx, userID, topicID, count)
}

func (s *stubTopicService) SetGenerationStatus(ctx context.Context, topicID uuid.UUID, status domain.GenerationStatus) error {
	return nil
}

// stubCardService implements service.CardService with overridable funcs.
type stubCardService struct {
	GetCardFn          func(ctx context.Context, userID, cardID uuid.UUID) (*domain.Card, error)
	ListCardsByTopicFn func(ctx context.Context, userID, topicID uuid.UUID) ([]*domain.Card, error)
	DeleteCardFn       func(ctx context.Context, userID, cardID uuid.UUID) error
}

func (s *stubCardService) GetCard(ctx context.Context, userID, cardID uuid.UUID) (*domain.Card, error) {
	return s.GetCardFn(ctx, userID, cardID)
}

func (s *stubCardService) ListCardsByTopic(ctx context.Context, userID, topicID uuid.UUID) ([]*domain.Card, error) {
	return s.ListCardsByTopicFn(ctx, userID, topicID)
}

func (s *stubCardService) DeleteCard(ctx context.Context, userID, cardID uuid.UUID) error {
	return s.DeleteCardFn(ctx, userID, cardID)
}

func (s *stubCardService) SaveGeneratedCards(ctx context.Context, topicID uuid.UUID, cards []*domain.Card) error {
	return nil
}

// stubStudyService implements service.StudyService with overridable funcs.
type stubStudyService struct {
	StartSessionFn    func(ctx context.Context, userID, topicID uuid.UUID) (*domain.StudySession, error)
	SubmitReviewFn    func(ctx context.Context, userID, sessionID, cardID uuid.UUID, outcome domain.ReviewOutcome) (*domain.CardReview, error)
	CompleteSessionFn func(ctx context.Context, userID, sessionID uuid.UUID) (*domain.StudySession, error)
}

func (s *stubStudyService) StartSession(ctx context.Context, userID, topicID uuid.UUID) (*domain.StudySession, error) {
	return s.StartSessionFn(ctx, userID, topicID)
}

func (s *stubStudyService) SubmitReview(ctx context.Context, userID, sessionID, cardID uuid.UUID, outcome domain.ReviewOutcome) (*domain.CardReview, error) {
	return s.SubmitReviewFn(ctx, userID, sessionID, cardID, outcome)
}

func (s *stubStudyService) CompleteSession(ctx context.Context, userID, sessionID uuid.UUID) (*domain.StudySession, error) {
	return s.CompleteSessionFn(ctx, userID, sessionID)
}

// stubSubscriptionService implements SubscriptionService with overridable
// funcs and call counters for the gate operations.
type stubSubscriptionService struct {
	GetSnapshotFn func(ctx context.Context, userID uuid.UUID) (quota.Snapshot, error)
	ChangePlanFn  func(ctx context.Context, userID uuid.UUID, planName string) (quota.Snapshot, error)
	QuotaStateFn  func(ctx context.Context, userID uuid.UUID) (quota.State, error)

	DismissState  quota.State
	DismissCalls  int
	OpenFlowState quota.State
	OpenFlowCalls int
}

func (s *stubSubscriptionService) GetSnapshot(ctx context.Context, userID uuid.UUID) (quota.Snapshot, error) {
	return s.GetSnapshotFn(ctx, userID)
}

func (s *stubSubscriptionService) ChangePlan(ctx context.Context, userID uuid.UUID, planName string) (quota.Snapshot, error) {
	return s.ChangePlanFn(ctx, userID, planName)
}

func (s *stubSubscriptionService) QuotaState(ctx context.Context, userID uuid.UUID) (quota.State, error) {
	return s.QuotaStateFn(ctx, userID)
}

func (s *stubSubscriptionService) DismissQuotaPrompt(userID uuid.UUID) quota.State {
	s.DismissCalls++
	return s.DismissState
}

func (s *stubSubscriptionService) OpenPlanChangeFlow(userID uuid.UUID) quota.State {
	s.OpenFlowCalls++
	return s.OpenFlowState
}

// stubTask is a minimal task.Task for handler responses.
type stubTask struct {
	id uuid.UUID
}

func (t *stubTask) ID() uuid.UUID                     { return t.id }
func (t *stubTask) Type() string                      { return task.TaskTypeCardGeneration }
func (t *stubTask) Payload() []byte                   { return []byte(`{}`) }
func (t *stubTask) Status() task.TaskStatus           { return task.TaskStatusPending }
func (t *stubTask) Execute(ctx context.Context) error { return nil }
