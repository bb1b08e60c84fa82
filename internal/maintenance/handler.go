package maintenance

import (
	"net/http"

	"github.com/gorilla/mux"

	"tenantlink/internal/common"
	"tenantlink/internal/dbsql"
)

type Handler struct {
	workflow *Workflow
}

func NewHandler(workflow *Workflow) *Handler {
	return &Handler{workflow: workflow}
}

func (h *Handler) RegisterRoutes(api *mux.Router) {
	api.HandleFunc("/maintenance", h.Create).Methods(http.MethodPost)
	api.HandleFunc("/maintenance", h.List).Methods(http.MethodGet)
	api.HandleFunc("/maintenance/{id}", h.Get).Methods(http.MethodGet)
	api.HandleFunc("/maintenance/{id}/status", h.UpdateStatus).Methods(http.MethodPut)
	api.HandleFunc("/maintenance/{id}/priority", h.UpdatePriority).Methods(http.MethodPut)
	api.HandleFunc("/maintenance/{id}/comments", h.AddComment).Methods(http.MethodPost)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID, role, err := common.CurrentUser(r)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	if role != common.RoleTenant {
		common.WriteError(w, common.Forbidden("only tenants can create maintenance requests"))
		return
	}
	var in CreateRequestInput
	if err := common.DecodeJSON(r, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	in.TenantID = userID

	req, err := h.workflow.CreateRequest(r.Context(), in)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.WriteJSON(w, http.StatusCreated, req)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, _, err := common.CurrentUser(r)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	list, err := h.workflow.ListForUser(r.Context(), userID, r.URL.Query().Get("status"))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	if list == nil {
		list = []*dbsql.MaintenanceRequest{}
	}
	common.WriteJSON(w, http.StatusOK, map[string]interface{}{"requests": list})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID, role, err := common.CurrentUser(r)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	detail, err := h.workflow.GetByID(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		common.WriteError(w, err)
		return
	}
	if !detail.CanView(userID, role) {
		common.WriteError(w, common.Forbidden("not a party to this request"))
		return
	}
	common.WriteJSON(w, http.StatusOK, detail)
}

type changeRequest struct {
	Status   string `json:"status"`
	Priority string `json:"priority"`
	Notes    string `json:"notes"`
}

func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	userID, _, err := common.CurrentUser(r)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	var body changeRequest
	if err := common.DecodeJSON(r, &body); err != nil {
		common.WriteError(w, err)
		return
	}
	req, err := h.workflow.UpdateStatus(r.Context(), mux.Vars(r)["id"], body.Status, userID, body.Notes)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, req)
}

func (h *Handler) UpdatePriority(w http.ResponseWriter, r *http.Request) {
	userID, _, err := common.CurrentUser(r)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	var body changeRequest
	if err := common.DecodeJSON(r, &body); err != nil {
		common.WriteError(w, err)
		return
	}
	req, err := h.workflow.UpdatePriority(r.Context(), mux.Vars(r)["id"], body.Priority, userID, body.Notes)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, req)
}

type commentRequest struct {
	Text string `json:"text"`
}

func (h *Handler) AddComment(w http.ResponseWriter, r *http.Request) {
	userID, _, err := common.CurrentUser(r)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	var body commentRequest
	if err := common.DecodeJSON(r, &body); err != nil {
		common.WriteError(w, err)
		return
	}
	msg, err := h.workflow.AddComment(r.Context(), mux.Vars(r)["id"], userID, body.Text)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.WriteJSON(w, http.StatusCreated, msg)
}
