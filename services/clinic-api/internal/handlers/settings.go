package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/odemir/clinicbook/services/clinic-api/internal/storage"
)

// SettingsHandler manages the single site configuration record.
type SettingsHandler struct {
	settings *storage.SettingsRepository
	logger   *slog.Logger
}

func NewSettingsHandler(settings *storage.SettingsRepository, logger *slog.Logger) *SettingsHandler {
	return &SettingsHandler{settings: settings, logger: logger}
}

type settingsPayload struct {
	SiteTitle       string `json:"site_title"`
	SiteDescription string `json:"site_description"`
	CaptchaKey      string `json:"captcha_key"`
	WhatsappNumber  string `json:"whatsapp_number"`
	MobileAppLink   string `json:"mobile_app_link"`
	UpdatedAt       string `json:"updated_at,omitempty"`
}

func (h *SettingsHandler) Handle(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.get(w, r)
	case http.MethodPut, http.MethodPost:
		h.put(w, r)
	default:
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *SettingsHandler) get(w http.ResponseWriter, r *http.Request) {
	s, err := h.settings.GetActive(r.Context())
	if err != nil {
		if storage.IsNotFound(err) {
			respondJSON(w, http.StatusOK, settingsPayload{})
			return
		}
		h.logger.Error("settings lookup failed", "err", err)
		respondError(w, http.StatusInternalServerError, "failed to load settings")
		return
	}
	respondJSON(w, http.StatusOK, settingsPayload{
		SiteTitle:       s.SiteTitle,
		SiteDescription: s.SiteDescription,
		CaptchaKey:      s.CaptchaKey,
		WhatsappNumber:  s.WhatsappNumber,
		MobileAppLink:   s.MobileAppLink,
		UpdatedAt:       s.UpdatedAt.UTC().Format(time.RFC3339),
	})
}

func (h *SettingsHandler) put(w http.ResponseWriter, r *http.Request) {
	var req settingsPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if strings.TrimSpace(req.SiteTitle) == "" {
		respondError(w, http.StatusBadRequest, "site_title is required")
		return
	}
	err := h.settings.Upsert(r.Context(), storage.Settings{
		SiteTitle:       strings.TrimSpace(req.SiteTitle),
		SiteDescription: strings.TrimSpace(req.SiteDescription),
		CaptchaKey:      strings.TrimSpace(req.CaptchaKey),
		WhatsappNumber:  strings.TrimSpace(req.WhatsappNumber),
		MobileAppLink:   strings.TrimSpace(req.MobileAppLink),
	})
	if err != nil {
		h.logger.Error("settings save failed", "err", err)
		respondError(w, http.StatusInternalServerError, "failed to save settings")
		return
	}
	h.get(w, r)
}
