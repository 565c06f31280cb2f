package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/odemir/clinicbook/services/clinic-api/internal/metrics"
	"github.com/odemir/clinicbook/services/clinic-api/internal/model"
	"github.com/odemir/clinicbook/services/clinic-api/internal/outbox"
	"github.com/odemir/clinicbook/services/clinic-api/internal/storage"
)

// AdminHandler serves the staff panel. Doctor-role accounts see only their
// own calendar; admin accounts see everything.
type AdminHandler struct {
	appointments *storage.AppointmentRepository
	booking      *PublicHandler
	outbox       *outbox.Repository
	metrics      *metrics.BookingMetrics
	logger       *slog.Logger
	now          func() time.Time
}

func NewAdminHandler(
	appointments *storage.AppointmentRepository,
	booking *PublicHandler,
	ob *outbox.Repository,
	m *metrics.BookingMetrics,
	logger *slog.Logger,
) *AdminHandler {
	return &AdminHandler{
		appointments: appointments,
		booking:      booking,
		outbox:       ob,
		metrics:      m,
		logger:       logger,
		now:          time.Now,
	}
}

type appointmentView struct {
	ID         string `json:"id"`
	FullName   string `json:"full_name"`
	Phone      string `json:"phone"`
	NationalID string `json:"national_id"`
	Type       string `json:"appointment_type"`
	DoctorID   string `json:"doctor_id"`
	DoctorName string `json:"doctor_name"`
	Date       string `json:"appointment_date"`
	Time       string `json:"appointment_time"`
	Status     string `json:"status"`
	CreatedBy  string `json:"created_by"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}

func toView(a model.Appointment) appointmentView {
	return appointmentView{
		ID:         a.ID,
		FullName:   a.FullName,
		Phone:      a.Phone,
		NationalID: a.NationalID,
		Type:       a.Type,
		DoctorID:   a.DoctorID,
		DoctorName: a.DoctorName,
		Date:       a.Date,
		Time:       a.Time,
		Status:     a.Status,
		CreatedBy:  a.CreatedBy,
		CreatedAt:  a.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:  a.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// List returns appointments matching the query filters. A doctor-role token
// is pinned to its own doctor id regardless of the requested filter.
func (h *AdminHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	q := r.URL.Query()
	filter := storage.ListFilter{
		DoctorID: strings.TrimSpace(q.Get("doctor_id")),
		Date:     strings.TrimSpace(q.Get("date")),
		FromDate: strings.TrimSpace(q.Get("from")),
		ToDate:   strings.TrimSpace(q.Get("to")),
		Status:   strings.TrimSpace(q.Get("status")),
		Search:   strings.TrimSpace(q.Get("search")),
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "limit must be a number")
			return
		}
		filter.Limit = n
	}
	if filter.Status != "" && !model.ValidStatus(filter.Status) {
		respondError(w, http.StatusBadRequest, "unknown status filter")
		return
	}

	if claims, ok := ClaimsFromContext(r.Context()); ok && claims.Role == storage.RoleDoctor {
		filter.DoctorID = claims.DoctorID
	}

	appts, err := h.appointments.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("appointment list failed", "err", err)
		respondError(w, http.StatusInternalServerError, "failed to load appointments")
		return
	}
	out := make([]appointmentView, 0, len(appts))
	for _, a := range appts {
		out = append(out, toView(a))
	}
	respondJSON(w, http.StatusOK, map[string]any{"appointments": out})
}

type manualCreateRequest struct {
	bookingInput
	Status string `json:"status"`
}

// Create is the staff manual entry. The operator picks the initial status;
// the date window is uncapped so front-desk staff can schedule far ahead.
func (h *AdminHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req manualCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.Status == "" {
		req.Status = model.StatusConfirmed
	}
	if req.Status != model.StatusPending && req.Status != model.StatusConfirmed {
		respondError(w, http.StatusBadRequest, "status must be pending or confirmed")
		return
	}

	createdBy := model.CreatedByAdmin
	if claims, ok := ClaimsFromContext(r.Context()); ok && claims.Role == storage.RoleDoctor {
		createdBy = model.CreatedByDoctor
		// Doctors book into their own calendar only.
		if req.DoctorID != "" && req.DoctorID != claims.DoctorID {
			respondError(w, http.StatusForbidden, "cannot book for another doctor")
			return
		}
		req.DoctorID = claims.DoctorID
	}

	h.booking.createAppointment(w, r, req.bookingInput, req.Status, createdBy, 0)
}

type statusRequest struct {
	AppointmentID string `json:"appointment_id"`
	Status        string `json:"status"`
}

// UpdateStatus applies a status transition. Re-applying the current status
// succeeds without touching updated_at, so a double-clicked cancel stays
// harmless.
func (h *AdminHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	req.AppointmentID = strings.TrimSpace(req.AppointmentID)
	if req.AppointmentID == "" {
		respondError(w, http.StatusBadRequest, "appointment_id is required")
		return
	}
	if !model.ValidStatus(req.Status) {
		respondError(w, http.StatusBadRequest, "status must be pending, confirmed or cancelled")
		return
	}

	if claims, ok := ClaimsFromContext(r.Context()); ok && claims.Role == storage.RoleDoctor {
		appt, err := h.appointments.Get(r.Context(), req.AppointmentID)
		if err != nil {
			if storage.IsNotFound(err) {
				respondError(w, http.StatusNotFound, "appointment not found")
				return
			}
			h.logger.Error("appointment lookup failed", "err", err)
			respondError(w, http.StatusInternalServerError, "status update failed")
			return
		}
		if appt.DoctorID != claims.DoctorID {
			respondError(w, http.StatusForbidden, "cannot modify another doctor's appointment")
			return
		}
	}

	tx, err := h.appointments.Begin(r.Context())
	if err != nil {
		h.logger.Error("status tx begin failed", "err", err)
		respondError(w, http.StatusInternalServerError, "status update failed")
		return
	}
	defer tx.Rollback(r.Context())

	status, updatedAt, err := h.appointments.TransitionStatus(r.Context(), tx, req.AppointmentID, req.Status)
	if err != nil {
		if storage.IsNotFound(err) {
			respondError(w, http.StatusNotFound, "appointment not found")
			return
		}
		h.logger.Error("status transition failed", "err", err, "appointment_id", req.AppointmentID)
		respondError(w, http.StatusInternalServerError, "status update failed")
		return
	}

	payload, err := json.Marshal(map[string]string{
		"appointment_id": req.AppointmentID,
		"status":         status,
	})
	if err == nil {
		err = h.outbox.Insert(r.Context(), tx, outbox.Event{
			AggregateType: "appointment",
			AggregateID:   req.AppointmentID,
			EventType:     outbox.EventAppointmentStatusChanged,
			Payload:       payload,
		})
	}
	if err != nil {
		h.logger.Error("outbox insert failed", "err", err)
		respondError(w, http.StatusInternalServerError, "status update failed")
		return
	}

	if err := tx.Commit(r.Context()); err != nil {
		h.logger.Error("status commit failed", "err", err)
		respondError(w, http.StatusInternalServerError, "status update failed")
		return
	}

	h.metrics.ObserveTransition(status)
	h.logger.Info("appointment status updated",
		"appointment_id", req.AppointmentID,
		"status", status,
	)
	respondJSON(w, http.StatusOK, map[string]string{
		"id":         req.AppointmentID,
		"status":     status,
		"updated_at": updatedAt.UTC().Format(time.RFC3339),
	})
}

// Stats serves the dashboard counters.
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s, err := h.appointments.Stats(r.Context(), h.now().Format("2006-01-02"))
	if err != nil {
		h.logger.Error("stats query failed", "err", err)
		respondError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{
		"total":     s.Total,
		"pending":   s.Pending,
		"confirmed": s.Confirmed,
		"today":     s.Today,
	})
}

// Patients projects the patient directory out of appointment history.
func (h *AdminHandler) Patients(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "limit must be a number")
			return
		}
		limit = n
	}
	patients, err := h.appointments.ListPatients(r.Context(), limit)
	if err != nil {
		h.logger.Error("patient list failed", "err", err)
		respondError(w, http.StatusInternalServerError, "failed to load patients")
		return
	}
	type patientView struct {
		NationalID string `json:"national_id"`
		FullName   string `json:"full_name"`
		Phone      string `json:"phone"`
		Visits     int    `json:"visits"`
		LastVisit  string `json:"last_visit"`
	}
	out := make([]patientView, 0, len(patients))
	for _, p := range patients {
		out = append(out, patientView{
			NationalID: p.NationalID,
			FullName:   p.FullName,
			Phone:      p.Phone,
			Visits:     p.Visits,
			LastVisit:  p.LastVisit,
		})
	}
	respondJSON(w, http.StatusOK, map[string]any{"patients": out})
}
