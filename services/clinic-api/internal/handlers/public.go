package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/odemir/clinicbook/services/clinic-api/internal/availability"
	"github.com/odemir/clinicbook/services/clinic-api/internal/metrics"
	"github.com/odemir/clinicbook/services/clinic-api/internal/model"
	"github.com/odemir/clinicbook/services/clinic-api/internal/outbox"
	"github.com/odemir/clinicbook/services/clinic-api/internal/storage"
)

// publicBookingWindowDays caps how far ahead the public form may book.
// Staff entry is uncapped.
const publicBookingWindowDays = 30

// PublicHandler serves the unauthenticated booking site: the doctor list,
// the slot picker and the booking form itself.
type PublicHandler struct {
	doctors      *storage.DoctorRepository
	appointments *storage.AppointmentRepository
	settings     *storage.SettingsRepository
	outbox       *outbox.Repository
	metrics      *metrics.BookingMetrics
	logger       *slog.Logger
	now          func() time.Time
}

func NewPublicHandler(
	doctors *storage.DoctorRepository,
	appointments *storage.AppointmentRepository,
	settings *storage.SettingsRepository,
	ob *outbox.Repository,
	m *metrics.BookingMetrics,
	logger *slog.Logger,
) *PublicHandler {
	return &PublicHandler{
		doctors:      doctors,
		appointments: appointments,
		settings:     settings,
		outbox:       ob,
		metrics:      m,
		logger:       logger,
		now:          time.Now,
	}
}

type publicDoctor struct {
	ID          string                      `json:"id"`
	Name        string                      `json:"name"`
	Specialty   string                      `json:"specialty"`
	SlotMinutes int                         `json:"slot_minutes"`
	Schedule    availability.WeeklySchedule `json:"working_hours"`
}

// Doctors lists active doctors for the public site. Contact details stay
// staff-only.
func (h *PublicHandler) Doctors(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	docs, err := h.doctors.List(r.Context(), true)
	if err != nil {
		h.logger.Error("doctor list failed", "err", err)
		respondError(w, http.StatusInternalServerError, "failed to load doctors")
		return
	}
	out := make([]publicDoctor, 0, len(docs))
	for _, d := range docs {
		out = append(out, publicDoctor{
			ID:          d.ID,
			Name:        d.Name,
			Specialty:   d.Specialty,
			SlotMinutes: d.SlotMinutes,
			Schedule:    d.WorkingHours,
		})
	}
	respondJSON(w, http.StatusOK, map[string]any{"doctors": out})
}

type slotsResponse struct {
	DoctorID string              `json:"doctor_id"`
	Date     string              `json:"date"`
	Slots    []availability.Slot `json:"slots"`
}

// Slots renders the picker for one doctor and date. An empty slot list is a
// normal answer for an off day, not an error.
func (h *PublicHandler) Slots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	doctorID := strings.TrimSpace(r.URL.Query().Get("doctor_id"))
	rawDate := strings.TrimSpace(r.URL.Query().Get("date"))
	if doctorID == "" || rawDate == "" {
		respondError(w, http.StatusBadRequest, "doctor_id and date are required")
		return
	}
	date, err := time.Parse("2006-01-02", rawDate)
	if err != nil {
		respondError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	doctor, err := h.doctors.Get(r.Context(), doctorID)
	if err != nil {
		if storage.IsNotFound(err) {
			respondError(w, http.StatusNotFound, "doctor not found")
			return
		}
		h.logger.Error("doctor lookup failed", "err", err, "doctor_id", doctorID)
		respondError(w, http.StatusInternalServerError, "failed to load doctor")
		return
	}
	if !doctor.IsActive {
		respondError(w, http.StatusNotFound, "doctor not found")
		return
	}

	booked, err := h.appointments.BookedTimes(r.Context(), doctorID, date.Format("2006-01-02"))
	if err != nil {
		h.logger.Error("booked times query failed", "err", err, "doctor_id", doctorID)
		respondError(w, http.StatusInternalServerError, "failed to load slots")
		return
	}

	slots := availability.GenerateSlots(doctor.WorkingHours, date, doctor.SlotMinutes, availability.NewBookedSet(booked))
	if slots == nil {
		slots = []availability.Slot{}
	}
	h.metrics.ObserveSlotQuery()
	respondJSON(w, http.StatusOK, slotsResponse{
		DoctorID: doctorID,
		Date:     date.Format("2006-01-02"),
		Slots:    slots,
	})
}

// Book handles the public booking form.
func (h *PublicHandler) Book(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var in bookingInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	h.createAppointment(w, r, in, model.StatusPending, model.CreatedByWeb, publicBookingWindowDays)
}

// createAppointment is the shared booking path for the public form and the
// staff manual entry. The slot guard runs inside the insert transaction so
// the re-check and the row commit together; the partial unique index catches
// the rare race that slips between them.
func (h *PublicHandler) createAppointment(w http.ResponseWriter, r *http.Request, in bookingInput, status, createdBy string, maxDaysAhead int) {
	in, err := validateBooking(in, h.now(), maxDaysAhead)
	if err != nil {
		h.metrics.ObserveBooking(createdBy, "invalid")
		respondError(w, http.StatusBadRequest, strings.TrimPrefix(err.Error(), errValidation.Error()+": "))
		return
	}

	doctor, err := h.doctors.Get(r.Context(), in.DoctorID)
	if err != nil {
		if storage.IsNotFound(err) {
			respondError(w, http.StatusNotFound, "doctor not found")
			return
		}
		h.logger.Error("doctor lookup failed", "err", err, "doctor_id", in.DoctorID)
		respondError(w, http.StatusInternalServerError, "booking failed")
		return
	}
	if createdBy == model.CreatedByWeb && !doctor.IsActive {
		respondError(w, http.StatusNotFound, "doctor not found")
		return
	}

	// The requested time must be one of the doctor's offerable slots for
	// that day, not merely an unbooked instant.
	date, _ := time.Parse("2006-01-02", in.Date)
	requested, _ := availability.ParseTimeOfDay(in.Time)
	if !slotOffered(doctor, date, requested) {
		h.metrics.ObserveBooking(createdBy, "invalid")
		respondError(w, http.StatusUnprocessableEntity, "requested time is not an offered slot")
		return
	}

	tx, err := h.appointments.Begin(r.Context())
	if err != nil {
		h.logger.Error("booking tx begin failed", "err", err)
		respondError(w, http.StatusInternalServerError, "booking failed")
		return
	}
	defer tx.Rollback(r.Context())

	booked, err := h.appointments.BookedTimesTx(r.Context(), tx, in.DoctorID, in.Date)
	if err != nil {
		h.logger.Error("booked times re-check failed", "err", err)
		respondError(w, http.StatusInternalServerError, "booking failed")
		return
	}
	if err := availability.CheckBookable(requested, availability.NewBookedSet(booked)); err != nil {
		h.metrics.ObserveSlotConflict()
		h.metrics.ObserveBooking(createdBy, "conflict")
		respondError(w, http.StatusConflict, "time slot already booked")
		return
	}

	appt := &model.Appointment{
		FullName:   in.FullName,
		Phone:      in.Phone,
		NationalID: in.NationalID,
		Type:       in.Type,
		DoctorID:   in.DoctorID,
		Date:       in.Date,
		Time:       in.Time,
		Status:     status,
		CreatedBy:  createdBy,
	}
	id, err := h.appointments.Create(r.Context(), tx, appt)
	if err != nil {
		if storage.IsConflict(err) {
			h.metrics.ObserveSlotConflict()
			h.metrics.ObserveBooking(createdBy, "conflict")
			respondError(w, http.StatusConflict, "time slot already booked")
			return
		}
		h.logger.Error("appointment insert failed", "err", err)
		respondError(w, http.StatusInternalServerError, "booking failed")
		return
	}

	payload, err := json.Marshal(map[string]string{
		"appointment_id":   id,
		"doctor_id":        in.DoctorID,
		"appointment_date": in.Date,
		"appointment_time": in.Time,
		"status":           status,
		"created_by":       createdBy,
	})
	if err == nil {
		err = h.outbox.Insert(r.Context(), tx, outbox.Event{
			AggregateType: "appointment",
			AggregateID:   id,
			EventType:     outbox.EventAppointmentBooked,
			Payload:       payload,
		})
	}
	if err != nil {
		h.logger.Error("outbox insert failed", "err", err)
		respondError(w, http.StatusInternalServerError, "booking failed")
		return
	}

	if err := tx.Commit(r.Context()); err != nil {
		h.logger.Error("booking commit failed", "err", err)
		respondError(w, http.StatusInternalServerError, "booking failed")
		return
	}

	h.metrics.ObserveBooking(createdBy, "created")
	h.logger.Info("appointment booked",
		"appointment_id", id,
		"doctor_id", in.DoctorID,
		"date", in.Date,
		"time", in.Time,
		"created_by", createdBy,
	)
	respondJSON(w, http.StatusCreated, map[string]string{
		"id":     id,
		"status": status,
	})
}

// slotOffered reports whether the requested time is one of the slots the
// schedule generates for that date.
func slotOffered(doctor model.Doctor, date time.Time, requested availability.TimeOfDay) bool {
	for _, slot := range availability.GenerateSlots(doctor.WorkingHours, date, doctor.SlotMinutes, nil) {
		if slot.Time == requested {
			return true
		}
	}
	return false
}

// SiteInfo exposes the public subset of the site settings.
func (h *PublicHandler) SiteInfo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s, err := h.settings.GetActive(r.Context())
	if err != nil {
		if storage.IsNotFound(err) {
			respondJSON(w, http.StatusOK, map[string]string{})
			return
		}
		h.logger.Error("settings lookup failed", "err", err)
		respondError(w, http.StatusInternalServerError, "failed to load site info")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"site_title":       s.SiteTitle,
		"site_description": s.SiteDescription,
		"captcha_key":      s.CaptchaKey,
		"whatsapp_number":  s.WhatsappNumber,
		"mobile_app_link":  s.MobileAppLink,
	})
}
