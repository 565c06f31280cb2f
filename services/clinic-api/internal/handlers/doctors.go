package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/odemir/clinicbook/services/clinic-api/internal/availability"
	"github.com/odemir/clinicbook/services/clinic-api/internal/model"
	"github.com/odemir/clinicbook/services/clinic-api/internal/storage"
)

// DoctorHandler manages the doctor roster: profile, weekly schedule, slot
// duration and public visibility.
type DoctorHandler struct {
	doctors *storage.DoctorRepository
	logger  *slog.Logger
}

func NewDoctorHandler(doctors *storage.DoctorRepository, logger *slog.Logger) *DoctorHandler {
	return &DoctorHandler{doctors: doctors, logger: logger}
}

type doctorPayload struct {
	ID           string                      `json:"id,omitempty"`
	Name         string                      `json:"name"`
	Specialty    string                      `json:"specialty"`
	Phone        string                      `json:"phone"`
	Address      string                      `json:"address"`
	WorkingHours availability.WeeklySchedule `json:"working_hours"`
	SlotMinutes  int                         `json:"slot_minutes"`
	IsActive     bool                        `json:"is_active"`
}

func doctorToPayload(d model.Doctor) doctorPayload {
	return doctorPayload{
		ID:           d.ID,
		Name:         d.Name,
		Specialty:    d.Specialty,
		Phone:        d.Phone,
		Address:      d.Address,
		WorkingHours: d.WorkingHours,
		SlotMinutes:  d.SlotMinutes,
		IsActive:     d.IsActive,
	}
}

func (h *DoctorHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	docs, err := h.doctors.List(r.Context(), false)
	if err != nil {
		h.logger.Error("doctor list failed", "err", err)
		respondError(w, http.StatusInternalServerError, "failed to load doctors")
		return
	}
	out := make([]doctorPayload, 0, len(docs))
	for _, d := range docs {
		out = append(out, doctorToPayload(d))
	}
	respondJSON(w, http.StatusOK, map[string]any{"doctors": out})
}

func (h *DoctorHandler) Get(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if id == "" {
		respondError(w, http.StatusBadRequest, "id is required")
		return
	}
	doc, err := h.doctors.Get(r.Context(), id)
	if err != nil {
		if storage.IsNotFound(err) {
			respondError(w, http.StatusNotFound, "doctor not found")
			return
		}
		h.logger.Error("doctor lookup failed", "err", err, "doctor_id", id)
		respondError(w, http.StatusInternalServerError, "failed to load doctor")
		return
	}
	respondJSON(w, http.StatusOK, doctorToPayload(doc))
}

func (h *DoctorHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req doctorPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	doc, err := doctorFromPayload(req)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	id, err := h.doctors.Create(r.Context(), &doc)
	if err != nil {
		h.logger.Error("doctor create failed", "err", err)
		respondError(w, http.StatusInternalServerError, "failed to create doctor")
		return
	}
	h.logger.Info("doctor created", "doctor_id", id, "name", doc.Name)
	respondJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (h *DoctorHandler) Update(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut && r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req doctorPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if strings.TrimSpace(req.ID) == "" {
		respondError(w, http.StatusBadRequest, "id is required")
		return
	}
	doc, err := doctorFromPayload(req)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	doc.ID = req.ID
	if err := h.doctors.Update(r.Context(), &doc); err != nil {
		if storage.IsNotFound(err) {
			respondError(w, http.StatusNotFound, "doctor not found")
			return
		}
		h.logger.Error("doctor update failed", "err", err, "doctor_id", doc.ID)
		respondError(w, http.StatusInternalServerError, "failed to update doctor")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"id": doc.ID})
}

type setActiveRequest struct {
	ID       string `json:"id"`
	IsActive bool   `json:"is_active"`
}

// SetActive toggles a doctor's public visibility. Deactivating keeps existing
// appointments and history; it only removes the doctor from the booking flow.
func (h *DoctorHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req setActiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if strings.TrimSpace(req.ID) == "" {
		respondError(w, http.StatusBadRequest, "id is required")
		return
	}
	if err := h.doctors.SetActive(r.Context(), req.ID, req.IsActive); err != nil {
		if storage.IsNotFound(err) {
			respondError(w, http.StatusNotFound, "doctor not found")
			return
		}
		h.logger.Error("doctor activation toggle failed", "err", err, "doctor_id", req.ID)
		respondError(w, http.StatusInternalServerError, "failed to update doctor")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"id": req.ID, "is_active": req.IsActive})
}

// doctorFromPayload validates the write shape. Schedules are checked here at
// the write boundary; the slot generator itself tolerates whatever is stored.
func doctorFromPayload(p doctorPayload) (model.Doctor, error) {
	if strings.TrimSpace(p.Name) == "" {
		return model.Doctor{}, fmt.Errorf("name is required")
	}
	if p.SlotMinutes <= 0 {
		return model.Doctor{}, fmt.Errorf("slot_minutes must be a positive number")
	}
	if p.WorkingHours == nil {
		p.WorkingHours = availability.WeeklySchedule{}
	}
	if err := validateSchedule(p.WorkingHours); err != nil {
		return model.Doctor{}, err
	}
	return model.Doctor{
		Name:         strings.TrimSpace(p.Name),
		Specialty:    strings.TrimSpace(p.Specialty),
		Phone:        strings.TrimSpace(p.Phone),
		Address:      strings.TrimSpace(p.Address),
		WorkingHours: p.WorkingHours,
		SlotMinutes:  p.SlotMinutes,
		IsActive:     p.IsActive,
	}, nil
}

var validDays = map[string]bool{
	"sunday": true, "monday": true, "tuesday": true, "wednesday": true,
	"thursday": true, "friday": true, "saturday": true,
}

func validateSchedule(s availability.WeeklySchedule) error {
	for day, periods := range s {
		if !validDays[day] {
			return fmt.Errorf("unknown weekday %q in working_hours", day)
		}
		for _, p := range periods {
			if !p.Start.Before(p.End) {
				return fmt.Errorf("working_hours for %s: period start %s must be before end %s", day, p.Start, p.End)
			}
		}
	}
	return nil
}
