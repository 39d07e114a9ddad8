package models

import "time"

// Slot statuses
const (
	SlotAvailable = "available"
	SlotBooked    = "booked"
	SlotCancelled = "cancelled"
	SlotDeleted   = "deleted"
)

// Slot is one bookable time window for one consultant.
//
// HoldedBy is set only while the slot is booked provisionally (a customer is
// mid-checkout). Confirming the booking clears HoldedBy but keeps the slot
// booked. HeldUntil is the lease expiry: once it passes, an abandoned hold is
// eligible to be re-held by another customer.
type Slot struct {
	SlotID       string    `json:"slotId" bson:"slotId"`
	ConsultantID string    `json:"consultant_id" bson:"consultantId"`
	StartTime    time.Time `json:"start_time" bson:"startTime"`
	EndTime      time.Time `json:"end_time" bson:"endTime"`
	Status       string    `json:"status" bson:"status"`
	HoldedBy     string    `json:"holdedBy,omitempty" bson:"holdedBy,omitempty"`
	HeldUntil    time.Time `json:"heldUntil,omitempty" bson:"heldUntil,omitempty"`
	CreatedAt    time.Time `json:"createdAt" bson:"createdAt"`
}

// Provisional reports whether the slot is held but not yet backed by a
// confirmed appointment.
func (s *Slot) Provisional() bool {
	return s.Status == SlotBooked && s.HoldedBy != ""
}

// HoldExpired reports whether a provisional hold has outlived its lease.
func (s *Slot) HoldExpired(now time.Time) bool {
	return s.Provisional() && !s.HeldUntil.IsZero() && now.After(s.HeldUntil)
}
