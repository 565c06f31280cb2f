package metrics

import "github.com/prometheus/client_golang/prometheus"

// BookingMetrics exposes counters for the booking and status flows.
type BookingMetrics struct {
	bookingsTotal    *prometheus.CounterVec
	slotConflicts    prometheus.Counter
	transitionsTotal *prometheus.CounterVec
	slotQueries      prometheus.Counter
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinicbook",
			Subsystem: "booking",
			Name:      "created_total",
			Help:      "Appointments created, by origin and outcome",
		}, []string{"origin", "outcome"}),
		slotConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "clinicbook",
			Subsystem: "booking",
			Name:      "slot_conflicts_total",
			Help:      "Bookings rejected because the slot was already taken",
		}),
		transitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinicbook",
			Subsystem: "booking",
			Name:      "status_transitions_total",
			Help:      "Appointment status transitions, by target status",
		}, []string{"target"}),
		slotQueries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "clinicbook",
			Subsystem: "booking",
			Name:      "slot_queries_total",
			Help:      "Availability queries served",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.bookingsTotal, m.slotConflicts, m.transitionsTotal, m.slotQueries)
	return m
}

func (m *BookingMetrics) ObserveBooking(origin, outcome string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(origin, outcome).Inc()
}

func (m *BookingMetrics) ObserveSlotConflict() {
	if m == nil {
		return
	}
	m.slotConflicts.Inc()
}

func (m *BookingMetrics) ObserveTransition(target string) {
	if m == nil {
		return
	}
	m.transitionsTotal.WithLabelValues(target).Inc()
}

func (m *BookingMetrics) ObserveSlotQuery() {
	if m == nil {
		return
	}
	m.slotQueries.Inc()
}
