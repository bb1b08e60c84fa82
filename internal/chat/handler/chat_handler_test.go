package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"tenantlink/internal/chat/service"
	"tenantlink/internal/common"
	"tenantlink/internal/dbsql"
)

type MockChatService struct {
	mock.Mock
}

func (m *MockChatService) SendMessage(ctx context.Context, in service.SendMessageInput) (*dbsql.Message, error) {
	args := m.Called(ctx, in)
	msg, _ := args.Get(0).(*dbsql.Message)
	return msg, args.Error(1)
}

func (m *MockChatService) GetConversations(ctx context.Context, userID string) ([]service.Conversation, error) {
	args := m.Called(ctx, userID)
	convs, _ := args.Get(0).([]service.Conversation)
	return convs, args.Error(1)
}

func (m *MockChatService) GetFacilitatorConversations(ctx context.Context, facilitatorID string) ([]service.Conversation, error) {
	args := m.Called(ctx, facilitatorID)
	convs, _ := args.Get(0).([]service.Conversation)
	return convs, args.Error(1)
}

func (m *MockChatService) GetConversationThread(ctx context.Context, userID, otherUserID string, page, limit int) (*service.Thread, error) {
	args := m.Called(ctx, userID, otherUserID, page, limit)
	th, _ := args.Get(0).(*service.Thread)
	return th, args.Error(1)
}

func (m *MockChatService) MarkAsRead(ctx context.Context, messageID, userID string) error {
	return m.Called(ctx, messageID, userID).Error(0)
}

func (m *MockChatService) UnreadCount(ctx context.Context, userID, fromUserID string) (int64, error) {
	args := m.Called(ctx, userID, fromUserID)
	return args.Get(0).(int64), args.Error(1)
}

func newRouter(svc service.ChatService, userID string, role common.Role) *mux.Router {
	r := mux.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if userID != "" {
				req = req.WithContext(common.WithIdentity(req.Context(), userID, role))
			}
			next.ServeHTTP(w, req)
		})
	})
	NewChatHandler(svc).RegisterRoutes(r.PathPrefix("/api/v1").Subrouter())
	return r
}

func do(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestSendMessage_UsesCallerAsSender(t *testing.T) {
	svc := new(MockChatService)
	svc.On("SendMessage", mock.Anything, service.SendMessageInput{
		SenderID:   "tenant-1",
		ReceiverID: "landlord-1",
		Content:    "hi",
	}).Return(&dbsql.Message{ID: "m1", SenderID: "tenant-1", ReceiverID: "fac-1", Content: "hi"}, nil)

	rec := do(t, newRouter(svc, "tenant-1", common.RoleTenant), http.MethodPost, "/api/v1/messages",
		map[string]string{"receiverId": "landlord-1", "content": "hi"})
	require.Equal(t, http.StatusCreated, rec.Code)

	var got dbsql.Message
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, "fac-1", got.ReceiverID)
	svc.AssertExpectations(t)
}

func TestSendMessage_ServiceErrorMapsStatus(t *testing.T) {
	svc := new(MockChatService)
	svc.On("SendMessage", mock.Anything, mock.Anything).Return(nil, common.BadRequest("message content cannot be empty"))

	rec := do(t, newRouter(svc, "tenant-1", common.RoleTenant), http.MethodPost, "/api/v1/messages",
		map[string]string{"receiverId": "landlord-1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestConversations_FacilitatorGetsOversight(t *testing.T) {
	svc := new(MockChatService)
	svc.On("GetFacilitatorConversations", mock.Anything, "fac-1").
		Return([]service.Conversation{{Key: "property:p:t:l", IsGroupConversation: true}}, nil)

	rec := do(t, newRouter(svc, "fac-1", common.RoleFacilitator), http.MethodGet, "/api/v1/messages/conversations", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "property:p:t:l")
	svc.AssertNotCalled(t, "GetConversations", mock.Anything, mock.Anything)
}

func TestConversations_EmptyListIsArray(t *testing.T) {
	svc := new(MockChatService)
	svc.On("GetConversations", mock.Anything, "tenant-1").Return(nil, nil)

	rec := do(t, newRouter(svc, "tenant-1", common.RoleTenant), http.MethodGet, "/api/v1/messages/conversations", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"conversations":[]}`, rec.Body.String())
}

func TestThread_PassesPaging(t *testing.T) {
	svc := new(MockChatService)
	svc.On("GetConversationThread", mock.Anything, "tenant-1", "landlord-1", 2, 10).
		Return(&service.Thread{Page: 2, Limit: 10}, nil)

	rec := do(t, newRouter(svc, "tenant-1", common.RoleTenant), http.MethodGet, "/api/v1/messages/thread/landlord-1?page=2&limit=10", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}

func TestMarkAsRead_Forbidden(t *testing.T) {
	svc := new(MockChatService)
	svc.On("MarkAsRead", mock.Anything, "m1", "tenant-1").Return(common.Forbidden("not the receiver"))

	rec := do(t, newRouter(svc, "tenant-1", common.RoleTenant), http.MethodPut, "/api/v1/messages/m1/read", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestUnreadCount(t *testing.T) {
	svc := new(MockChatService)
	svc.On("UnreadCount", mock.Anything, "tenant-1", "landlord-1").Return(int64(3), nil)

	rec := do(t, newRouter(svc, "tenant-1", common.RoleTenant), http.MethodGet, "/api/v1/messages/unread-count?from=landlord-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"count":3}`, rec.Body.String())
}

func TestUnauthenticated(t *testing.T) {
	rec := do(t, newRouter(new(MockChatService), "", ""), http.MethodGet, "/api/v1/messages/conversations", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
