package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"dm_chat/internal/attach"
	"dm_chat/internal/auth"
	"dm_chat/internal/config"
	"dm_chat/internal/model"
	"dm_chat/internal/service/delivery"
	"dm_chat/internal/service/presence"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// stubStore is just enough of delivery.Store for routing tests.
type stubStore struct {
	mu      sync.Mutex
	threads map[string]*model.Thread
}

func newStubStore() *stubStore {
	return &stubStore{threads: make(map[string]*model.Thread)}
}

func (s *stubStore) Resolve(ctx context.Context, a, b string) (*model.Thread, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.Join(model.CanonicalPair(a, b), "|")
	if th, ok := s.threads[key]; ok {
		return th, nil
	}
	th := &model.Thread{ID: primitive.NewObjectID(), Participants: model.CanonicalPair(a, b)}
	s.threads[key] = th
	return th, nil
}

func (s *stubStore) GetExisting(ctx context.Context, a, b string) (*model.Thread, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if th, ok := s.threads[strings.Join(model.CanonicalPair(a, b), "|")]; ok {
		return th, nil
	}
	return nil, errors.New("thread not found")
}

func (s *stubStore) GetByID(ctx context.Context, id primitive.ObjectID) (*model.Thread, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, th := range s.threads {
		if th.ID == id {
			return th, nil
		}
	}
	return nil, errors.New("thread not found")
}

func (s *stubStore) AppendMessage(ctx context.Context, id primitive.ObjectID, msg *model.Message) error {
	th, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	th.Messages = append(th.Messages, *msg)
	s.mu.Unlock()
	return nil
}

func (s *stubStore) AdvanceStatus(ctx context.Context, id primitive.ObjectID, messageID string, from, to model.Status) (bool, error) {
	th, err := s.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range th.Messages {
		if th.Messages[i].ID == messageID && th.Messages[i].Status == from && from.CanAdvance(to) {
			th.Messages[i].Status = to
			return true, nil
		}
	}
	return false, nil
}

func (s *stubStore) MarkRead(ctx context.Context, id primitive.ObjectID, reader string) ([]string, error) {
	th, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for i := range th.Messages {
		if th.Messages[i].Receiver == reader && th.Messages[i].Status == model.StatusDelivered {
			th.Messages[i].Status = model.StatusRead
			ids = append(ids, th.Messages[i].ID)
		}
	}
	return ids, nil
}

func newTestServer(t *testing.T) (*HttpServer, *auth.Manager) {
	t.Helper()

	cfg := &config.Config{
		MaxFileSize: 1024 * 1024,
	}
	authManager := auth.NewManager("test-secret", time.Minute)

	attachments, err := attach.NewLocalStore(t.TempDir(), "name-key")
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}

	registry := presence.NewRegistry()
	engine := delivery.NewEngine(newStubStore(), registry, nil)

	return NewHttpServer(cfg, registry, engine, nil, authManager, attachments), authManager
}

func TestGetTokenRoundTrip(t *testing.T) {
	srv, authManager := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/get_token/alice", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var body struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.TokenType != "bearer" {
		t.Fatalf("token_type = %q", body.TokenType)
	}

	user, err := authManager.Verify(body.AccessToken)
	if err != nil || user != "alice" {
		t.Fatalf("issued token does not verify: user=%q err=%v", user, err)
	}
}

func TestAuthMiddlewareRejects(t *testing.T) {
	srv, _ := newTestServer(t)
	router := srv.Router()

	for _, header := range []string{"", "Bearer ", "Bearer bogus-token", "Basic abc"} {
		req := httptest.NewRequest(http.MethodGet, "/chat_history", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("header %q: status = %d, want 401", header, rec.Code)
		}
	}
}

func TestChatHistoryMarksRead(t *testing.T) {
	srv, authManager := newTestServer(t)
	router := srv.Router()
	ctx := context.Background()

	// seed one delivered message from alice to bob
	if _, err := srv.engine.Submit(ctx, &model.Message{
		Sender: "alice", Receiver: "bob", Body: "hello bob",
	}); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	token, err := authManager.Issue("bob")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/chat_history/alice", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var messages []model.Message
	if err := json.Unmarshal(rec.Body.Bytes(), &messages); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(messages) != 1 {
		t.Fatalf("messages = %d, want 1", len(messages))
	}
	if messages[0].Status != model.StatusRead {
		t.Fatalf("status = %s, want read after opening history", messages[0].Status)
	}
}

func TestChatHistoryRejectsSelf(t *testing.T) {
	srv, authManager := newTestServer(t)

	token, err := authManager.Issue("alice")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/chat_history/alice", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestWebsocketRejectsBadToken(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws/bad-token", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}
