package outbox

// Event is a pending integration event, written in the same transaction as
// the state change it describes.
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

const (
	EventAppointmentBooked        = "clinic.appointment.booked.v1"
	EventAppointmentStatusChanged = "clinic.appointment.status_changed.v1"
)
