package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/kozaktomas/attendance/internal/users"
)

// UsersHandler manages login accounts
type UsersHandler struct {
	users *users.Store
}

// NewUsersHandler creates a new users handler
func NewUsersHandler(store *users.Store) *UsersHandler {
	return &UsersHandler{users: store}
}

// UserResponse is an account without its password hash
type UserResponse struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	Name     string `json:"name"`
}

type createUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
	Name     string `json:"name"`
}

// List returns every account
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	list := h.users.List()
	result := make([]UserResponse, len(list))
	for i, u := range list {
		result[i] = UserResponse{Username: u.Username, Role: u.Role, Name: u.Name}
	}
	respondJSON(w, http.StatusOK, result)
}

// Create adds an account
func (h *UsersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	u, err := h.users.Add(req.Username, req.Password, req.Role, req.Name)
	if err != nil {
		respondServiceError(w, r, "add user", err)
		return
	}
	respondJSON(w, http.StatusCreated, UserResponse{Username: u.Username, Role: u.Role, Name: u.Name})
}
