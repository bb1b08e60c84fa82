// Package handler exposes the messaging endpoints.
package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"tenantlink/internal/chat/service"
	"tenantlink/internal/common"
)

type ChatHandler struct {
	chatService service.ChatService
}

func NewChatHandler(chatService service.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

func (h *ChatHandler) RegisterRoutes(api *mux.Router) {
	api.HandleFunc("/messages", h.SendMessage).Methods(http.MethodPost)
	api.HandleFunc("/messages/conversations", h.Conversations).Methods(http.MethodGet)
	api.HandleFunc("/messages/unread-count", h.UnreadCount).Methods(http.MethodGet)
	api.HandleFunc("/messages/thread/{userId}", h.Thread).Methods(http.MethodGet)
	api.HandleFunc("/messages/{id}/read", h.MarkAsRead).Methods(http.MethodPut)
}

func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	userID, _, err := common.CurrentUser(r)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	var in service.SendMessageInput
	if err := common.DecodeJSON(r, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	in.SenderID = userID

	msg, err := h.chatService.SendMessage(r.Context(), in)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.WriteJSON(w, http.StatusCreated, msg)
}

// Conversations returns the caller's inbox; facilitators also get their
// oversight conversations.
func (h *ChatHandler) Conversations(w http.ResponseWriter, r *http.Request) {
	userID, role, err := common.CurrentUser(r)
	if err != nil {
		common.WriteError(w, err)
		return
	}

	var convs []service.Conversation
	if role == common.RoleFacilitator {
		convs, err = h.chatService.GetFacilitatorConversations(r.Context(), userID)
	} else {
		convs, err = h.chatService.GetConversations(r.Context(), userID)
	}
	if err != nil {
		common.WriteError(w, err)
		return
	}
	if convs == nil {
		convs = []service.Conversation{}
	}
	common.WriteJSON(w, http.StatusOK, map[string]interface{}{"conversations": convs})
}

func (h *ChatHandler) Thread(w http.ResponseWriter, r *http.Request) {
	userID, _, err := common.CurrentUser(r)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	thread, err := h.chatService.GetConversationThread(r.Context(), userID, mux.Vars(r)["userId"],
		common.QueryInt(r, "page", 1), common.QueryInt(r, "limit", 0))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, thread)
}

func (h *ChatHandler) MarkAsRead(w http.ResponseWriter, r *http.Request) {
	userID, _, err := common.CurrentUser(r)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	if err := h.chatService.MarkAsRead(r.Context(), mux.Vars(r)["id"], userID); err != nil {
		common.WriteError(w, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *ChatHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	userID, _, err := common.CurrentUser(r)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	n, err := h.chatService.UnreadCount(r.Context(), userID, r.URL.Query().Get("from"))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, map[string]int64{"count": n})
}
