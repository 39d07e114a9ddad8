package payments

import (
	"context"
	"sync"
	"time"

	"mindline/appointments"
	"mindline/models"
)

// fakeApptStore is the minimal in-memory appointments.Store the reconciler
// tests need.
type fakeApptStore struct {
	mu    sync.Mutex
	appts map[string]*models.Appointment
}

func newFakeApptStore(seed ...*models.Appointment) *fakeApptStore {
	s := &fakeApptStore{appts: map[string]*models.Appointment{}}
	for _, a := range seed {
		cp := *a
		s.appts[a.AppointmentID] = &cp
	}
	return s
}

func (s *fakeApptStore) Insert(_ context.Context, appt *models.Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *appt
	s.appts[appt.AppointmentID] = &cp
	return nil
}

func (s *fakeApptStore) GetByID(_ context.Context, id string) (*models.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.appts[id]
	if !ok {
		return nil, appointments.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *fakeApptStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.appts, id)
	return nil
}

func (s *fakeApptStore) ListByCustomer(_ context.Context, customerID string) ([]models.Appointment, error) {
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

func (s *fakeApptStore) UpdateStatus(_ context.Context, id, status string) (*models.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.appts[id]
	if !ok {
		return nil, appointments.ErrNotFound
	}
	a.Status = status
	cp := *a
	return &cp, nil
}

func (s *fakeApptStore) MarkRescheduled(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.appts[id]
	if !ok || a.Status != models.ApptConfirmed || a.IsRescheduled {
		return false, nil
	}
	a.Status = models.ApptRescheduled
	a.IsRescheduled = true
	return true, nil
}

func (s *fakeApptStore) ApplyPaymentOutcome(_ context.Context, id, status string, details *models.PaymentDetails) (bool, error) {
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

// fakeLedger records audit rows in memory.
type fakeLedger struct {
	mu   sync.Mutex
	rows []models.Payment
}

func (l *fakeLedger) Insert(_ context.Context, p *models.Payment) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rows = append(l.rows, *p)
	return nil
}

func (l *fakeLedger) ListByAccount(_ context.Context, accountID string) ([]models.Payment, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []models.Payment
	for _, r := range l.rows {
		if r.AccountID == accountID {
			out = append(out, r)
		}
	}
	return out, nil
}

func pendingAppt(id string) *models.Appointment {
	return &models.Appointment{
		AppointmentID: id,
		SlotID:        "s1",
		CustomerID:    "u1",
		ConsultantID:  "c1",
		ServiceID:     "svc1",
		DateBooking:   time.Now().Add(48 * time.Hour),
		Status:        models.ApptPending,
	}
}
