package api

import (
	"net/http"

	"github.com/bagaart/TaskFlow/internal/auth"
	"github.com/bagaart/TaskFlow/internal/httputil"
	"github.com/bagaart/TaskFlow/internal/models"
)

type tokenResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

func (a *API) register(w http.ResponseWriter, r *http.Request) {
	var req auth.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	u, err := a.auth.Register(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	token, err := a.tokens.Issue(u.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	httputil.WriteJSON(w, tokenResponse{Token: token, User: u}, http.StatusCreated)
}

func (a *API) login(w http.ResponseWriter, r *http.Request) {
	var req auth.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	token, u, err := a.auth.Login(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	httputil.WriteJSON(w, tokenResponse{Token: token, User: u}, http.StatusOK)
}

func (a *API) me(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, auth.UserFromContext(r.Context()), http.StatusOK)
}
