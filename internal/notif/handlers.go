package notif

import (
	"net/http"

	"github.com/gorilla/mux"

	"tenantlink/internal/common"
)

type Handler struct {
	dispatcher *Dispatcher
	tokens     *TokenRegistry
	history    DeliveryHistory
}

// NewHandler builds the notification handler; history may be nil when the
// delivery log is disabled.
func NewHandler(dispatcher *Dispatcher, tokens *TokenRegistry, history DeliveryHistory) *Handler {
	return &Handler{dispatcher: dispatcher, tokens: tokens, history: history}
}

// RegisterRoutes mounts user routes on api and admin-only routes on admin.
func (h *Handler) RegisterRoutes(api, admin *mux.Router) {
	api.HandleFunc("/notifications", h.List).Methods(http.MethodGet)
	api.HandleFunc("/notifications/unread-count", h.UnreadCount).Methods(http.MethodGet)
	api.HandleFunc("/notifications/{id}/read", h.MarkAsRead).Methods(http.MethodPut)
	api.HandleFunc("/notifications/tokens", h.RegisterToken).Methods(http.MethodPost)
	api.HandleFunc("/notifications/tokens/deactivate", h.DeactivateToken).Methods(http.MethodPost)

	admin.HandleFunc("/notifications/send", h.Send).Methods(http.MethodPost)
	admin.HandleFunc("/notifications/send-bulk", h.SendBulk).Methods(http.MethodPost)
	admin.HandleFunc("/notifications/multi-channel", h.SendMultiChannel).Methods(http.MethodPost)
	admin.HandleFunc("/notifications/{id}/deliveries", h.Deliveries).Methods(http.MethodGet)
}

type registerTokenRequest struct {
	Token      string `json:"token"`
	DeviceInfo string `json:"deviceInfo"`
}

func (h *Handler) RegisterToken(w http.ResponseWriter, r *http.Request) {
	userID, _, err := common.CurrentUser(r)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	var req registerTokenRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	pt, err := h.tokens.Register(r.Context(), userID, req.Token, req.DeviceInfo)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, pt)
}

func (h *Handler) DeactivateToken(w http.ResponseWriter, r *http.Request) {
	if _, _, err := common.CurrentUser(r); err != nil {
		common.WriteError(w, err)
		return
	}
	var req registerTokenRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	if req.Token == "" {
		common.WriteError(w, common.BadRequest("token is required"))
		return
	}
	if err := h.tokens.Deactivate(r.Context(), req.Token); err != nil {
		common.WriteError(w, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, _, err := common.CurrentUser(r)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	list, err := h.dispatcher.ListForUser(r.Context(), userID, common.QueryInt(r, "page", 1), common.QueryInt(r, "limit", 20))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, map[string]interface{}{"notifications": list})
}

func (h *Handler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	userID, _, err := common.CurrentUser(r)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	n, err := h.dispatcher.UnreadCount(r.Context(), userID)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, map[string]int64{"count": n})
}

func (h *Handler) MarkAsRead(w http.ResponseWriter, r *http.Request) {
	userID, _, err := common.CurrentUser(r)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	if err := h.dispatcher.MarkAsRead(r.Context(), mux.Vars(r)["id"], userID); err != nil {
		common.WriteError(w, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) Send(w http.ResponseWriter, r *http.Request) {
	var req NotificationRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	res, err := h.dispatcher.SendNotification(r.Context(), req)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) SendBulk(w http.ResponseWriter, r *http.Request) {
	var req BulkRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	res, err := h.dispatcher.SendBulk(r.Context(), req)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, res)
}

type multiChannelRequest struct {
	MultiChannelPayload
	Recipient Recipient `json:"recipient"`
}

func (h *Handler) SendMultiChannel(w http.ResponseWriter, r *http.Request) {
	var req multiChannelRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	res, err := h.dispatcher.SendMultiChannel(r.Context(), req.MultiChannelPayload, req.Recipient)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) Deliveries(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		common.WriteError(w, common.NotFound("delivery log is not enabled"))
		return
	}
	attempts, err := h.history.ForNotification(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		common.WriteError(w, err)
		return
	}
	if attempts == nil {
		attempts = []DeliveryAttempt{}
	}
	common.WriteJSON(w, http.StatusOK, map[string]interface{}{"attempts": attempts})
}
