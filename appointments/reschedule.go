package appointments

import (
	"context"
	"fmt"
	"log"
	"time"

	"mindline/models"
	"mindline/slots"
	"mindline/utils"
)

// MinRescheduleLead is the minimum time before the booked start at which a
// reschedule is still allowed.
const MinRescheduleLead = 3 * time.Hour

// RescheduleService moves a confirmed appointment to a new slot exactly once
// per booking lineage.
type RescheduleService struct {
	appts Store
	slots slots.Store
	comp  CompensationStore
}

func NewRescheduleService(appts Store, slotStore slots.Store, comp CompensationStore) *RescheduleService {
	return &RescheduleService{appts: appts, slots: slotStore, comp: comp}
}

// Reschedule closes the original appointment (status rescheduled, one-way
// flag set), releases its slot, books the new slot and creates a confirmed
// successor carrying forward service and payment data.
//
// The old-slot release is best effort: a failure is logged and queued for
// compensation rather than blocking the new booking. A failure to book the
// new slot after the original has been closed aborts with ErrBookingFailed;
// the closed original is the accepted inconsistency window and is also
// queued for compensation review.
func (s *RescheduleService) Reschedule(ctx context.Context, appointmentID, newSlotID, newConsultantID string) (*models.Appointment, error) {
	appt, err := s.appts.GetByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}

	if appt.Status != models.ApptConfirmed {
		return nil, fmt.Errorf("%w: status is %s, only confirmed appointments can be rescheduled", ErrInvalidState, appt.Status)
	}
	if appt.IsRescheduled {
		return nil, ErrAlreadyRescheduled
	}
	if time.Until(appt.DateBooking) < MinRescheduleLead {
		return nil, ErrTooLate
	}

	newSlot, err := s.slots.GetByID(ctx, newSlotID)
	if err != nil {
		return nil, err
	}
	eligible := newSlot.Status == models.SlotAvailable ||
		(newSlot.Status == models.SlotBooked && newSlot.HoldedBy == appt.CustomerID)
	if !eligible {
		return nil, &slots.UnavailableError{SlotID: newSlotID, Status: newSlot.Status, HoldedBy: newSlot.HoldedBy}
	}
	if newConsultantID != "" && newConsultantID != newSlot.ConsultantID {
		return nil, ErrConsultantMismatch
	}

	ok, err := s.appts.MarkRescheduled(ctx, appointmentID)
	if err != nil {
		return nil, fmt.Errorf("mark rescheduled: %w", err)
	}
	if !ok {
		// Lost a race: someone confirmed, cancelled or rescheduled it since
		// the read above.
		return nil, ErrAlreadyRescheduled
	}

	// Best effort; must not block the new booking.
	if _, err := s.slots.Release(ctx, appt.SlotID, ""); err != nil {
		log.Printf("Reschedule: release of old slot %s failed, queuing compensation: %v", appt.SlotID, err)
		s.queueCompensation(ctx, models.CompensationReleaseSlot, appt.SlotID, appointmentID, err)
	}

	if _, err := s.slots.TryHold(ctx, newSlotID, appt.CustomerID); err != nil {
		s.queueCompensation(ctx, models.CompensationOrphanedReschedule, newSlotID, appointmentID, err)
		return nil, fmt.Errorf("%w: %v", ErrBookingFailed, err)
	}
	if _, err := s.slots.ConfirmBooking(ctx, newSlotID); err != nil {
		s.queueCompensation(ctx, models.CompensationOrphanedReschedule, newSlotID, appointmentID, err)
		return nil, fmt.Errorf("%w: %v", ErrBookingFailed, err)
	}

	consultantID := newConsultantID
	if consultantID == "" {
		consultantID = newSlot.ConsultantID
	}

	now := time.Now()
	successor := &models.Appointment{
		AppointmentID: utils.GenerateID(22),
		SlotID:        newSlotID,
		CustomerID:    appt.CustomerID,
		ConsultantID:  consultantID,
		ServiceID:     appt.ServiceID,
		DateBooking:   newSlot.StartTime,
		Reason:        appt.Reason,
		Note:          appt.Note,
		Status:        models.ApptConfirmed,
		IsRescheduled: true,
		Payment:       appt.Payment,
		MeetLink:      appt.MeetLink,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.appts.Insert(ctx, successor); err != nil {
		s.queueCompensation(ctx, models.CompensationOrphanedReschedule, newSlotID, appointmentID, err)
		return nil, fmt.Errorf("%w: insert successor: %v", ErrBookingFailed, err)
	}

	return successor, nil
}

func (s *RescheduleService) queueCompensation(ctx context.Context, kind, slotID, appointmentID string, cause error) {
	if s.comp == nil {
		return
	}
	now := time.Now()
	rec := &models.Compensation{
		ID:            utils.GetUUID(),
		Kind:          kind,
		SlotID:        slotID,
		AppointmentID: appointmentID,
		LastError:     cause.Error(),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.comp.Insert(ctx, rec); err != nil {
		log.Printf("Reschedule: could not queue compensation for slot %s: %v", slotID, err)
	}
}
