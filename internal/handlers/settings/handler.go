package settings

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"gitlab.com/fbworkers.net/internal/core/ports/primary"
	settingssvc "gitlab.com/fbworkers.net/internal/core/services/settings"
	"gitlab.com/fbworkers.net/internal/domain"
	"gitlab.com/fbworkers.net/internal/handlers"
	"gitlab.com/fbworkers.net/internal/static/errs"
)

type SettingsHandler struct {
	settingsService settingssvc.ISettingsService
	middleware      *handlers.MiddlewareProvider
	logger          primary.Logger
}

func NewSettingsHandler(settingsService settingssvc.ISettingsService, middleware *handlers.MiddlewareProvider, logger primary.Logger) *SettingsHandler {
	return &SettingsHandler{
		settingsService: settingsService,
		middleware:      middleware,
		logger:          logger,
	}
}

func (h *SettingsHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/settings", h.GetSettings).Methods("GET")

	protected := router.NewRoute().Subrouter()
	protected.Use(h.middleware.JWTMiddleware(domain.PermissionSettingsWrite))
	protected.HandleFunc("/api/settings", h.UpdateSettings).Methods("PUT")
	protected.HandleFunc("/api/settings/reload", h.Reload).Methods("POST")
}

func (h *SettingsHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	view, err := h.settingsService.GetSettings(r.Context())
	if err != nil {
		h.logger.Error("Failed to get settings", "error", err)
		handlers.ResponseError(w, "Failed to get settings", http.StatusInternalServerError)
		return
	}
	handlers.ResponseWithJson(w, http.StatusOK, view)
}

func (h *SettingsHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req domain.SettingsUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("Failed to decode request", "error", err)
		handlers.ResponseError(w, "Invalid request", http.StatusBadRequest)
		return
	}

	view, err := h.settingsService.UpdateSettings(r.Context(), req)
	switch {
	case err == nil:
		if payload, ok := handlers.AuthPayloadFrom(r.Context()); ok {
			h.logger.Info("Settings changed", "user", payload.Username)
		}
		handlers.ResponseWithJson(w, http.StatusOK, view)
	case errors.Is(err, errs.ErrInvalidSettings):
		handlers.ResponseError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, errs.ErrSettingsBusy):
		handlers.ResponseError(w, "Settings file busy, retry", http.StatusConflict)
	default:
		handlers.ResponseError(w, "Failed to update settings", http.StatusInternalServerError)
	}
}

func (h *SettingsHandler) Reload(w http.ResponseWriter, r *http.Request) {
	if err := h.settingsService.Reload(r.Context()); err != nil && !errors.Is(err, errs.ErrSettingsNotFound) {
		handlers.ResponseError(w, "Failed to reload settings", http.StatusInternalServerError)
		return
	}
	h.GetSettings(w, r)
}
