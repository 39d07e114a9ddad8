package appointments

import (
	"context"
	"errors"
	"sync"
	"time"

	"mindline/models"
	"mindline/slots"
)

// memSlotStore mirrors the conditional-write semantics of the Mongo store
// behind a mutex, so concurrency tests exercise the same win/lose outcomes.
type memSlotStore struct {
	mu    sync.Mutex
	slots map[string]*models.Slot

	failConfirm map[string]error
	failRelease map[string]error
	failHold    map[string]error
}

func newMemSlotStore(seed ...*models.Slot) *memSlotStore {
	s := &memSlotStore{
		slots:       map[string]*models.Slot{},
		failConfirm: map[string]error{},
		failRelease: map[string]error{},
		failHold:    map[string]error{},
	}
	for _, sl := range seed {
		cp := *sl
		s.slots[sl.SlotID] = &cp
	}
	return s
}

func (s *memSlotStore) get(slotID string) (*models.Slot, error) {
	sl, ok := s.slots[slotID]
	if !ok {
		return nil, slots.ErrNotFound
	}
	return sl, nil
}

func (s *memSlotStore) TryHold(_ context.Context, slotID, customerID string) (*models.Slot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failHold[slotID]; err != nil {
		return nil, err
	}
	sl, err := s.get(slotID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	eligible := sl.Status == models.SlotAvailable ||
		(sl.Status == models.SlotBooked && sl.HoldedBy == customerID) ||
		sl.HoldExpired(now)
	if !eligible {
		return nil, &slots.UnavailableError{SlotID: slotID, Status: sl.Status, HoldedBy: sl.HoldedBy}
	}

	sl.Status = models.SlotBooked
	sl.HoldedBy = customerID
	sl.HeldUntil = now.Add(slots.HoldTTL)
	cp := *sl
	return &cp, nil
}

func (s *memSlotStore) ConfirmBooking(_ context.Context, slotID string) (*models.Slot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failConfirm[slotID]; err != nil {
		return nil, err
	}
	sl, err := s.get(slotID)
	if err != nil {
		return nil, err
	}
	if sl.Status != models.SlotBooked {
		return nil, &slots.UnavailableError{SlotID: slotID, Status: sl.Status, HoldedBy: sl.HoldedBy}
	}
	sl.HoldedBy = ""
	sl.HeldUntil = time.Time{}
	cp := *sl
	return &cp, nil
}

func (s *memSlotStore) Release(_ context.Context, slotID, customerID string) (*models.Slot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failRelease[slotID]; err != nil {
		return nil, err
	}
	sl, err := s.get(slotID)
	if err != nil {
		return nil, err
	}
	if sl.Status != models.SlotBooked {
		return nil, &slots.UnavailableError{SlotID: slotID, Status: sl.Status, HoldedBy: sl.HoldedBy}
	}
	if customerID != "" && sl.HoldedBy != customerID {
		return nil, slots.ErrNotHolder
	}
	sl.Status = models.SlotAvailable
	sl.HoldedBy = ""
	sl.HeldUntil = time.Time{}
	cp := *sl
	return &cp, nil
}

func (s *memSlotStore) IsHeldBy(_ context.Context, slotID, customerID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl, err := s.get(slotID)
	if err != nil {
		return false, err
	}
	return sl.Status == models.SlotBooked && sl.HoldedBy == customerID, nil
}

func (s *memSlotStore) GetByID(_ context.Context, slotID string) (*models.Slot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl, err := s.get(slotID)
	if err != nil {
		return nil, err
	}
	cp := *sl
	return &cp, nil
}

func (s *memSlotStore) ListByConsultant(_ context.Context, consultantID string, _ time.Time) ([]models.Slot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Slot
	for _, sl := range s.slots {
		if sl.ConsultantID == consultantID {
			out = append(out, *sl)
		}
	}
	return out, nil
}

func (s *memSlotStore) Create(_ context.Context, slot *models.Slot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *slot
	s.slots[slot.SlotID] = &cp
	return nil
}

func (s *memSlotStore) CreateMany(ctx context.Context, list []models.Slot) error {
	for i := range list {
		if err := s.Create(ctx, &list[i]); err != nil {
			return err
		}
	}
	return nil
}

// memApptStore is an in-memory appointments Store.
type memApptStore struct {
	mu    sync.Mutex
	appts map[string]*models.Appointment

	failInsert error
}

func newMemApptStore(seed ...*models.Appointment) *memApptStore {
	s := &memApptStore{appts: map[string]*models.Appointment{}}
	for _, a := range seed {
		cp := *a
		s.appts[a.AppointmentID] = &cp
	}
	return s
}

func (s *memApptStore) Insert(_ context.Context, appt *models.Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failInsert != nil {
		return s.failInsert
	}
	if _, exists := s.appts[appt.AppointmentID]; exists {
		return errors.New("duplicate appointment id")
	}
	cp := *appt
	s.appts[appt.AppointmentID] = &cp
	return nil
}

func (s *memApptStore) GetByID(_ context.Context, id string) (*models.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.appts[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *memApptStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.appts[id]; !ok {
		return ErrNotFound
	}
	delete(s.appts, id)
	return nil
}

func (s *memApptStore) ListByCustomer(_ context.Context, customerID string) ([]models.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Appointment
	for _, a := range s.appts {
		if a.CustomerID == customerID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (s *memApptStore) UpdateStatus(_ context.Context, id, status string) (*models.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.appts[id]
	if !ok {
		return nil, ErrNotFound
	}
	a.Status = status
	a.UpdatedAt = time.Now()
	cp := *a
	return &cp, nil
}

func (s *memApptStore) MarkRescheduled(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.appts[id]
	if !ok || a.Status != models.ApptConfirmed || a.IsRescheduled {
		return false, nil
	}
	a.Status = models.ApptRescheduled
	a.IsRescheduled = true
	a.UpdatedAt = time.Now()
	return true, nil
}

func (s *memApptStore) ApplyPaymentOutcome(_ context.Context, id, status string, details *models.PaymentDetails) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.appts[id]
	if !ok || a.Status != models.ApptPending {
		return false, nil
	}
	a.Status = status
	if details != nil {
		d := *details
		a.Payment = &d
	}
	a.UpdatedAt = time.Now()
	return true, nil
}

// memCompStore is an in-memory CompensationStore.
type memCompStore struct {
	mu   sync.Mutex
	recs map[string]*models.Compensation
}

func newMemCompStore() *memCompStore {
	return &memCompStore{recs: map[string]*models.Compensation{}}
}

func (s *memCompStore) Insert(_ context.Context, rec *models.Compensation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *rec
	s.recs[rec.ID] = &cp
	return nil
}

func (s *memCompStore) ListPending(_ context.Context, kind string, _ int64) ([]models.Compensation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Compensation
	for _, r := range s.recs {
		if !r.Done && r.Kind == kind {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (s *memCompStore) MarkDone(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.recs[id]
	if !ok {
		return ErrNotFound
	}
	r.Done = true
	return nil
}

func (s *memCompStore) RecordAttempt(_ context.Context, id string, cause error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.recs[id]
	if !ok {
		return ErrNotFound
	}
	r.Attempts++
	r.LastError = cause.Error()
	return nil
}

func (s *memCompStore) byKind(kind string) []models.Compensation {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Compensation
	for _, r := range s.recs {
		if r.Kind == kind {
			out = append(out, *r)
		}
	}
	return out
}
