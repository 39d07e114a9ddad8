package models

import "time"

// Appointment statuses
const (
	ApptPending     = "pending"
	ApptConfirmed   = "confirmed"
	ApptCancelled   = "cancelled"
	ApptCompleted   = "completed"
	ApptRescheduled = "rescheduled"
)

// PaymentDetails is the fast-path payment summary embedded on an appointment.
// The durable audit row lives in the payments collection.
type PaymentDetails struct {
	TransactionID string    `json:"transactionId,omitempty" bson:"transactionId,omitempty"`
	Amount        int64     `json:"amount,omitempty" bson:"amount,omitempty"`
	PaidAt        time.Time `json:"paidAt,omitempty" bson:"paidAt,omitempty"`
	Method        string    `json:"method,omitempty" bson:"method,omitempty"`
	FailureReason string    `json:"failureReason,omitempty" bson:"failureReason,omitempty"`
}

// Appointment is one customer's booking of a consultant for a service within
// a slot.
//
// IsRescheduled is a one-way flag: once set, neither this appointment nor its
// successor can ever be rescheduled again. The rescheduled status is terminal
// for the row; the successor is a new appointment.
type Appointment struct {
	AppointmentID string          `json:"appointmentId" bson:"appointmentId"`
	SlotID        string          `json:"slotTime_id" bson:"slotId"`
	CustomerID    string          `json:"user_id" bson:"customerId"`
	ConsultantID  string          `json:"consultant_id" bson:"consultantId"`
	ServiceID     string          `json:"service_id" bson:"serviceId"`
	DateBooking   time.Time       `json:"dateBooking" bson:"dateBooking"`
	Reason        string          `json:"reason,omitempty" bson:"reason,omitempty"`
	Note          string          `json:"note,omitempty" bson:"note,omitempty"`
	Status        string          `json:"status" bson:"status"`
	IsRescheduled bool            `json:"isRescheduled" bson:"isRescheduled"`
	Payment       *PaymentDetails `json:"paymentDetails,omitempty" bson:"paymentDetails,omitempty"`
	MeetLink      string          `json:"meetLink,omitempty" bson:"meetLink,omitempty"`
	CreatedAt     time.Time       `json:"createdAt" bson:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt" bson:"updatedAt"`
}

// Terminal reports whether no further business transition is permitted.
func (a *Appointment) Terminal() bool {
	switch a.Status {
	case ApptCancelled, ApptCompleted, ApptRescheduled:
		return true
	}
	return false
}

// ValidApptStatus reports whether s is a known appointment status.
func ValidApptStatus(s string) bool {
	switch s {
	case ApptPending, ApptConfirmed, ApptCancelled, ApptCompleted, ApptRescheduled:
		return true
	}
	return false
}

// Compensation records a slot release that failed during a reschedule and
// must be retried out of band.
type Compensation struct {
	ID            string    `json:"id" bson:"id"`
	Kind          string    `json:"kind" bson:"kind"`
	SlotID        string    `json:"slotId" bson:"slotId"`
	AppointmentID string    `json:"appointmentId" bson:"appointmentId"`
	Attempts      int       `json:"attempts" bson:"attempts"`
	Done          bool      `json:"done" bson:"done"`
	LastError     string    `json:"lastError,omitempty" bson:"lastError,omitempty"`
	CreatedAt     time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt" bson:"updatedAt"`
}

const (
	// CompensationReleaseSlot: an old slot failed to release during a
	// reschedule and should be retried.
	CompensationReleaseSlot = "release_slot"
	// CompensationOrphanedReschedule: the original appointment was closed but
	// the new slot could not be booked; needs operator review.
	CompensationOrphanedReschedule = "orphaned_reschedule"
)
