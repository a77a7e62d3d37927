package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"devtalk/internal/entity"
	"devtalk/pkg/jwt"
	apperrors "devtalk/pkg/errors"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubConversationUc struct {
	indexFn func(ctx context.Context, userId int64) ([]entity.ChatSummary, error)
}

func (s *stubConversationUc) Index(ctx context.Context, userId int64) ([]entity.ChatSummary, error) {
	return s.indexFn(ctx, userId)
}

func (s *stubConversationUc) Get(ctx context.Context, conversationId string, callerId int64) (entity.Conversation, error) {
	return entity.Conversation{}, nil
}

type stubMessageUc struct {
	sendFn     func(ctx context.Context, senderId, receiverId int64, content string) (entity.MessageView, error)
	listFn     func(ctx context.Context, conversationId string, callerId int64) ([]entity.MessageView, error)
	markReadFn func(ctx context.Context, conversationId string, readerId int64) error
}

func (s *stubMessageUc) Send(ctx context.Context, senderId, receiverId int64, content string) (entity.MessageView, error) {
	return s.sendFn(ctx, senderId, receiverId, content)
}

func (s *stubMessageUc) ListConversation(ctx context.Context, conversationId string, callerId int64) ([]entity.MessageView, error) {
	return s.listFn(ctx, conversationId, callerId)
}

func (s *stubMessageUc) ListBetweenUsers(ctx context.Context, userA, userB int64) ([]entity.MessageView, error) {
	return nil, nil
}

func (s *stubMessageUc) MarkRead(ctx context.Context, conversationId string, readerId int64) error {
	return s.markReadFn(ctx, conversationId, readerId)
}

func (s *stubMessageUc) MarkDelivered(ctx context.Context, messageId string) error { return nil }

func (s *stubMessageUc) RelayTyping(ctx context.Context, senderId, receiverId int64, isTyping bool) error {
	return nil
}

type stubUserUc struct {
	statusFn func(ctx context.Context, userId int64) (entity.UserStatus, error)
}

func (s *stubUserUc) Get(ctx context.Context, userId int64) (entity.User, error) {
	return entity.User{}, nil
}

func (s *stubUserUc) GetStatus(ctx context.Context, userId int64) (entity.UserStatus, error) {
	return s.statusFn(ctx, userId)
}

func (s *stubUserUc) UpdateStatus(ctx context.Context, userId int64, status entity.UserStatus) error {
	return nil
}

func (s *stubUserUc) HandleConnect(ctx context.Context, userId int64) error    { return nil }
func (s *stubUserUc) HandleDisconnect(ctx context.Context, userId int64) error { return nil }

func authed(r *http.Request, userId int64) *http.Request {
	claims := &jwt.Claims{UserId: userId, Name: "tester"}
	return r.WithContext(context.WithValue(r.Context(), UserContextKey, claims))
}

func newRouter(h *HttpHandler) *chi.Mux {
	router := chi.NewRouter()
	router.Post("/api/messages/send", h.SendMessage)
	router.Get("/api/messages/chats/{userId}", h.GetUserChats)
	router.Get("/api/messages/conversation/{conversationId}", h.GetConversationMessages)
	router.Put("/api/messages/read", h.MarkRead)
	router.Get("/api/messages/status/{userId}", h.GetUserStatus)
	return router
}

func TestSendMessageEndpoint(t *testing.T) {
	messageUc := &stubMessageUc{
		sendFn: func(ctx context.Context, senderId, receiverId int64, content string) (entity.MessageView, error) {
			return entity.MessageView{
				Id:         "m1",
				SenderId:   senderId,
				ReceiverId: receiverId,
				Content:    content,
				Status:     entity.MessageStatusSent,
				Timestamp:  time.Now().UTC(),
			}, nil
		},
	}
	handler := NewHttpHandler(&stubConversationUc{}, messageUc, &stubUserUc{}, zap.NewNop())
	router := newRouter(handler)

	body := `{"senderId":3,"receiverId":7,"content":"hi"}`
	req := authed(httptest.NewRequest(http.MethodPost, "/api/messages/send", strings.NewReader(body)), 3)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Message string             `json:"message"`
		Data    entity.MessageView `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "success", resp.Message)
	assert.Equal(t, "m1", resp.Data.Id)
	assert.Equal(t, "hi", resp.Data.Content)
}

func TestSendMessageRejectsImpersonation(t *testing.T) {
	handler := NewHttpHandler(&stubConversationUc{}, &stubMessageUc{}, &stubUserUc{}, zap.NewNop())
	router := newRouter(handler)

	body := `{"senderId":3,"receiverId":7,"content":"hi"}`
	req := authed(httptest.NewRequest(http.MethodPost, "/api/messages/send", strings.NewReader(body)), 99)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestErrorCodeMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"not found", apperrors.ErrConversationNotFound, http.StatusNotFound},
		{"not participant", apperrors.ErrNotParticipant, http.StatusForbidden},
		{"invalid argument", apperrors.ErrEmptyContent, http.StatusBadRequest},
		{"internal", apperrors.Internal("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			messageUc := &stubMessageUc{
				listFn: func(ctx context.Context, conversationId string, callerId int64) ([]entity.MessageView, error) {
					return nil, tt.err
				},
			}
			handler := NewHttpHandler(&stubConversationUc{}, messageUc, &stubUserUc{}, zap.NewNop())
			router := newRouter(handler)

			req := authed(httptest.NewRequest(http.MethodGet, "/api/messages/conversation/c1", nil), 3)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestGetUserChatsRequiresOwnership(t *testing.T) {
	convUc := &stubConversationUc{
		indexFn: func(ctx context.Context, userId int64) ([]entity.ChatSummary, error) {
			return []entity.ChatSummary{{ConversationId: "c1", OtherUserId: 7, UnreadCount: 2}}, nil
		},
	}
	handler := NewHttpHandler(convUc, &stubMessageUc{}, &stubUserUc{}, zap.NewNop())
	router := newRouter(handler)

	req := authed(httptest.NewRequest(http.MethodGet, "/api/messages/chats/3", nil), 3)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req = authed(httptest.NewRequest(http.MethodGet, "/api/messages/chats/3", nil), 7)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestMarkReadEndpoint(t *testing.T) {
	var gotConversation string
	var gotReader int64
	messageUc := &stubMessageUc{
		markReadFn: func(ctx context.Context, conversationId string, readerId int64) error {
			gotConversation = conversationId
			gotReader = readerId
			return nil
		},
	}
	handler := NewHttpHandler(&stubConversationUc{}, messageUc, &stubUserUc{}, zap.NewNop())
	router := newRouter(handler)

	body := `{"conversationId":"c1","readerId":3}`
	req := authed(httptest.NewRequest(http.MethodPut, "/api/messages/read", strings.NewReader(body)), 3)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "c1", gotConversation)
	assert.Equal(t, int64(3), gotReader)
}

func TestGetUserStatusIsPublicWithinAuth(t *testing.T) {
	userUc := &stubUserUc{
		statusFn: func(ctx context.Context, userId int64) (entity.UserStatus, error) {
			return entity.UserStatusOnline, nil
		},
	}
	handler := NewHttpHandler(&stubConversationUc{}, &stubMessageUc{}, userUc, zap.NewNop())
	router := newRouter(handler)

	// any authenticated user may check presence, not just the owner
	req := authed(httptest.NewRequest(http.MethodGet, "/api/messages/status/3", nil), 7)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "online")
}

func TestAuthenticateMiddleware(t *testing.T) {
	manager := jwt.NewJWTManager("test-secret", 15*time.Minute)
	middleware := NewAuthMiddleware(manager)

	var seenUserId int64
	protected := middleware.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenUserId, _ = CallerId(r)
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("missing header", func(t *testing.T) {
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("malformed header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "token abc")
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("valid token", func(t *testing.T) {
		token, err := manager.GenerateAccessToken(42, "Ana", "freelancer")
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, int64(42), seenUserId)
	})
}
