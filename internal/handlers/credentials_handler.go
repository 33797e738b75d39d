package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/sellersync/internal/interfaces"
)

const maxUploadBytes = 10 << 20

type CredentialsHandler struct {
	store  interfaces.CredentialStore
	loader CredentialLoader
	logger arbor.ILogger
}

func NewCredentialsHandler(store interfaces.CredentialStore, loader CredentialLoader, logger arbor.ILogger) *CredentialsHandler {
	return &CredentialsHandler{
		store:  store,
		loader: loader,
		logger: logger,
	}
}

// ListHandler returns the loaded credentials without secrets
func (h *CredentialsHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"credentials": h.store.Summaries(),
		"count":       h.store.Count(),
	})
}

type loadRequest struct {
	Path string `json:"path"`
}

// LoadHandler replaces the credential store from a multipart upload (field "file")
// or from a local path given as {"path": "..."}
func (h *CredentialsHandler) LoadHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var (
		source string
		err    error
		count  int
	)

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		source, count, err = h.loadUpload(w, r)
	} else {
		source, count, err = h.loadPath(r)
	}
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.logger.Info().Str("source", source).Int("count", count).Msg("Credentials replaced")
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"count":  count,
	})
}

func (h *CredentialsHandler) loadUpload(w http.ResponseWriter, r *http.Request) (string, int, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		return "", 0, fmt.Errorf("missing upload field \"file\": %w", err)
	}
	defer file.Close()

	creds, err := h.loader.Load(file, header.Filename)
	if err != nil {
		return "", 0, err
	}
	return header.Filename, h.store.ReplaceAll(creds), nil
}

func (h *CredentialsHandler) loadPath(r *http.Request) (string, int, error) {
	var req loadRequest
	if err := decodeJSON(r, &req); err != nil {
		return "", 0, fmt.Errorf("invalid request body: %w", err)
	}
	if strings.TrimSpace(req.Path) == "" {
		return "", 0, fmt.Errorf("path is required")
	}

	creds, err := h.loader.LoadFile(req.Path)
	if err != nil {
		return "", 0, err
	}
	return req.Path, h.store.ReplaceAll(creds), nil
}
