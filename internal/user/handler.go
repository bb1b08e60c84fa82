package user

import (
	"net/http"

	"github.com/gorilla/mux"

	"tenantlink/internal/common"
)

// Handler serves the profile lookups clients need to render conversations
// and maintenance requests.
type Handler struct {
	users UserRepository
}

func NewHandler(users UserRepository) *Handler {
	return &Handler{users: users}
}

func (h *Handler) RegisterRoutes(api *mux.Router) {
	api.HandleFunc("/users/me", h.GetProfile).Methods(http.MethodGet)
	api.HandleFunc("/users/{id}", h.GetUser).Methods(http.MethodGet)
}

func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, _, err := common.CurrentUser(r)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	u, err := h.users.GetUserByID(r.Context(), userID)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, u)
}

// GetUser returns the display summary of another user.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	if _, _, err := common.CurrentUser(r); err != nil {
		common.WriteError(w, err)
		return
	}
	u, err := h.users.GetUserByID(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, u.Summary())
}
