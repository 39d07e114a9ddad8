package appointments

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"mindline/models"
	"mindline/rdx"
	"mindline/slots"
	"mindline/utils"
)

// lockTTL bounds how long one customer's booking flow may exclude their own
// concurrent requests.
const lockTTL = 10 * time.Second

// Locker is a per-customer advisory lock so a double-submitted checkout does
// not race against itself.
type Locker interface {
	Acquire(key string, ttl time.Duration) (bool, error)
	Release(key string)
}

// RedisLocker implements Locker on the shared redis connection.
type RedisLocker struct{}

func (RedisLocker) Acquire(key string, ttl time.Duration) (bool, error) {
	return rdx.RdxSetNX(key, "1", ttl)
}

func (RedisLocker) Release(key string) {
	if err := rdx.RdxDel(key); err != nil {
		log.Printf("booking lock release failed for %s: %v", key, err)
	}
}

// CreateRequest carries the booking input.
type CreateRequest struct {
	SlotID       string    `json:"slotTime_id"`
	CustomerID   string    `json:"user_id"`
	ConsultantID string    `json:"consultant_id"`
	ServiceID    string    `json:"service_id"`
	DateBooking  time.Time `json:"dateBooking"`
	Reason       string    `json:"reason"`
	Note         string    `json:"note"`
}

// BookingService creates and deletes appointments against the slot store.
type BookingService struct {
	appts  Store
	slots  slots.Store
	locker Locker
}

func NewBookingService(appts Store, slotStore slots.Store, locker Locker) *BookingService {
	return &BookingService{appts: appts, slots: slotStore, locker: locker}
}

// CreateAppointment books req.SlotID for req.CustomerID.
//
// The slot hold (a conditional write) is the sole concurrency gate: the slot
// must be available, or already held by this customer re-entering their own
// checkout. On success the appointment is pending and the slot is booked
// with its holder cleared. The appointment insert and the slot confirm are
// logically one transaction; if the confirm fails the appointment is deleted
// and the hold released.
func (s *BookingService) CreateAppointment(ctx context.Context, req CreateRequest) (*models.Appointment, error) {
	if req.SlotID == "" || req.CustomerID == "" || req.ServiceID == "" {
		return nil, fmt.Errorf("%w: missing slotTime_id, user_id or service_id", ErrInvalidState)
	}

	if s.locker != nil {
		key := "booking_lock:" + req.CustomerID
		ok, err := s.locker.Acquire(key, lockTTL)
		if err != nil {
			return nil, fmt.Errorf("acquire booking lock: %w", err)
		}
		if !ok {
			return nil, fmt.Errorf("%w: another booking for this customer is in flight", ErrInvalidState)
		}
		defer s.locker.Release(key)
	}

	slot, err := s.slots.TryHold(ctx, req.SlotID, req.CustomerID)
	if err != nil {
		return nil, err
	}

	dateBooking := req.DateBooking
	if dateBooking.IsZero() {
		dateBooking = slot.StartTime
	}
	consultantID := req.ConsultantID
	if consultantID == "" {
		consultantID = slot.ConsultantID
	}

	now := time.Now()
	appt := &models.Appointment{
		AppointmentID: utils.GenerateID(22),
		SlotID:        req.SlotID,
		CustomerID:    req.CustomerID,
		ConsultantID:  consultantID,
		ServiceID:     req.ServiceID,
		DateBooking:   dateBooking,
		Reason:        req.Reason,
		Note:          req.Note,
		Status:        models.ApptPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.appts.Insert(ctx, appt); err != nil {
		if _, rerr := s.slots.Release(ctx, req.SlotID, req.CustomerID); rerr != nil {
			log.Printf("CreateAppointment: release after failed insert on slot %s: %v", req.SlotID, rerr)
		}
		return nil, fmt.Errorf("insert appointment: %w", err)
	}

	if _, err := s.slots.ConfirmBooking(ctx, req.SlotID); err != nil {
		// Compensate: the appointment write and the slot confirm must both
		// succeed or neither does.
		if derr := s.appts.Delete(ctx, appt.AppointmentID); derr != nil {
			log.Printf("CreateAppointment: compensating delete of %s failed: %v", appt.AppointmentID, derr)
		}
		if _, rerr := s.slots.Release(ctx, req.SlotID, req.CustomerID); rerr != nil {
			log.Printf("CreateAppointment: compensating release of slot %s failed: %v", req.SlotID, rerr)
		}
		return nil, fmt.Errorf("confirm slot booking: %w", err)
	}

	return appt, nil
}

// DeleteAppointment cancels a pending appointment, returning its slot to the
// pool. Non-pending appointments cannot be deleted.
func (s *BookingService) DeleteAppointment(ctx context.Context, appointmentID string) error {
	appt, err := s.appts.GetByID(ctx, appointmentID)
	if err != nil {
		return err
	}
	if appt.Status != models.ApptPending {
		return fmt.Errorf("%w: status is %s, only pending appointments can be deleted", ErrInvalidState, appt.Status)
	}

	if _, err := s.slots.Release(ctx, appt.SlotID, ""); err != nil {
		if errors.Is(err, slots.ErrNotFound) {
			log.Printf("DeleteAppointment: slot %s missing, deleting appointment anyway", appt.SlotID)
		} else {
			var unavail *slots.UnavailableError
			if !errors.As(err, &unavail) {
				return fmt.Errorf("release slot %s: %w", appt.SlotID, err)
			}
			// Slot already left booked state; nothing to undo.
			log.Printf("DeleteAppointment: slot %s already %s", appt.SlotID, unavail.Status)
		}
	}

	return s.appts.Delete(ctx, appointmentID)
}

// UpdateStatus performs a direct administrative transition.
func (s *BookingService) UpdateStatus(ctx context.Context, appointmentID, status string) (*models.Appointment, error) {
	if !models.ValidApptStatus(status) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidState, status)
	}
	return s.appts.UpdateStatus(ctx, appointmentID, status)
}

// Get returns one appointment.
func (s *BookingService) Get(ctx context.Context, appointmentID string) (*models.Appointment, error) {
	return s.appts.GetByID(ctx, appointmentID)
}

// ListByCustomer returns a customer's appointments, newest first.
func (s *BookingService) ListByCustomer(ctx context.Context, customerID string) ([]models.Appointment, error) {
	return s.appts.ListByCustomer(ctx, customerID)
}
