package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/efreitasn/finance/internal/service"
)

// AccountHandler handles HTTP requests for user account endpoints.
type AccountHandler struct {
	accountSvc *service.AccountService
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accountSvc *service.AccountService) *AccountHandler {
	return &AccountHandler{accountSvc: accountSvc}
}

// registerRequest is the JSON request body for POST /users. initial_cash may
// be a JSON number or a numeric string.
type registerRequest struct {
	Username    string          `json:"username"`
	InitialCash json.RawMessage `json:"initial_cash"`
}

// usernameCheckResponse is the JSON response for GET /users/check.
type usernameCheckResponse struct {
	Username  string `json:"username"`
	Available bool   `json:"available"`
}

// Register handles POST /users.
func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	svcReq := service.RegisterRequest{Username: req.Username}
	if cash, ok := rawScalar(req.InitialCash); ok {
		svcReq.InitialCash = &cash
	}

	u, err := h.accountSvc.Register(r.Context(), svcReq)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, newUserResponse(u))
}

// CheckUsername handles GET /users/check?username=.
func (h *AccountHandler) CheckUsername(w http.ResponseWriter, r *http.Request) {
	username := r.URL.Query().Get("username")
	available, err := h.accountSvc.CheckUsername(r.Context(), username)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, usernameCheckResponse{
		Username:  username,
		Available: available,
	})
}

// Get handles GET /users/{user_id}.
func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	u, err := h.accountSvc.Get(r.Context(), chi.URLParam(r, "user_id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, newUserResponse(u))
}
