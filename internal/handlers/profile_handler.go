package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/sellersync/internal/interfaces"
	"github.com/ternarybob/sellersync/internal/models"
)

// ProfileView is a control-plane profile annotated with credential availability
type ProfileView struct {
	models.ProfileDescriptor
	HasCredentials bool `json:"has_credentials"`
}

type ProfileHandler struct {
	controller  interfaces.ProfileController
	credentials interfaces.CredentialStore
	logger      arbor.ILogger
}

func NewProfileHandler(controller interfaces.ProfileController, credentials interfaces.CredentialStore, logger arbor.ILogger) *ProfileHandler {
	return &ProfileHandler{
		controller:  controller,
		credentials: credentials,
		logger:      logger,
	}
}

// ListHandler returns the profiles known to the control plane
func (h *ProfileHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	descriptors, err := h.controller.List(r.Context())
	if err != nil {
		h.logger.Warn().Err(err).Msg("Failed to list profiles")
		WriteError(w, http.StatusBadGateway, err.Error())
		return
	}

	views := make([]ProfileView, 0, len(descriptors))
	for _, d := range descriptors {
		views = append(views, ProfileView{
			ProfileDescriptor: d,
			HasCredentials:    h.credentials.GetByProfileID(d.ID) != nil,
		})
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"profiles": views,
		"count":    len(views),
	})
}
