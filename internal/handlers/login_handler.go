package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"
)

type LoginHandler struct {
	logins LoginRunner
	logger arbor.ILogger
}

func NewLoginHandler(logins LoginRunner, logger arbor.ILogger) *LoginHandler {
	return &LoginHandler{
		logins: logins,
		logger: logger,
	}
}

type loginManyRequest struct {
	Profiles []string `json:"profiles"`
}

// LoginHandler logs into one profile: POST /api/login/{ref}, ref is a profile ID or name.
// The result is returned even when the login failed; only transport errors change the status code.
func (h *LoginHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	ref := PathParam(r, "/api/login/")
	if ref == "" {
		WriteError(w, http.StatusBadRequest, "profile reference is required")
		return
	}

	WriteJSON(w, http.StatusOK, h.logins.Login(r.Context(), ref))
}

// LoginManyHandler logs into several profiles: POST /api/login {"profiles": [...]}
func (h *LoginHandler) LoginManyHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req loginManyRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if len(req.Profiles) == 0 {
		WriteError(w, http.StatusBadRequest, "profiles is required")
		return
	}

	results := h.logins.LoginMany(r.Context(), req.Profiles)
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"results": results,
	})
}
