package slots

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"mindline/globals"
	"mindline/models"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore mirrors the conditional-write rules of the Mongo store.
type fakeStore struct {
	mu    sync.Mutex
	slots map[string]*models.Slot
}

func newFakeStore(seed ...*models.Slot) *fakeStore {
	s := &fakeStore{slots: map[string]*models.Slot{}}
	for _, sl := range seed {
		cp := *sl
		s.slots[sl.SlotID] = &cp
	}
	return s
}

func (s *fakeStore) TryHold(_ context.Context, slotID, customerID string) (*models.Slot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl, ok := s.slots[slotID]
	if !ok {
		return nil, ErrNotFound
	}
	now := time.Now()
	eligible := sl.Status == models.SlotAvailable ||
		(sl.Status == models.SlotBooked && sl.HoldedBy == customerID) ||
		sl.HoldExpired(now)
	if !eligible {
		return nil, &UnavailableError{SlotID: slotID, Status: sl.Status, HoldedBy: sl.HoldedBy}
	}
	sl.Status = models.SlotBooked
	sl.HoldedBy = customerID
	sl.HeldUntil = now.Add(HoldTTL)
	cp := *sl
	return &cp, nil
}

func (s *fakeStore) ConfirmBooking(_ context.Context, slotID string) (*models.Slot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl, ok := s.slots[slotID]
	if !ok {
		return nil, ErrNotFound
	}
	if sl.Status != models.SlotBooked {
		return nil, &UnavailableError{SlotID: slotID, Status: sl.Status, HoldedBy: sl.HoldedBy}
	}
	sl.HoldedBy = ""
	sl.HeldUntil = time.Time{}
	cp := *sl
	return &cp, nil
}

func (s *fakeStore) Release(_ context.Context, slotID, customerID string) (*models.Slot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl, ok := s.slots[slotID]
	if !ok {
		return nil, ErrNotFound
	}
	if sl.Status != models.SlotBooked {
		return nil, &UnavailableError{SlotID: slotID, Status: sl.Status, HoldedBy: sl.HoldedBy}
	}
	if customerID != "" && sl.HoldedBy != customerID {
		return nil, ErrNotHolder
	}
	sl.Status = models.SlotAvailable
	sl.HoldedBy = ""
	sl.HeldUntil = time.Time{}
	cp := *sl
	return &cp, nil
}

func (s *fakeStore) IsHeldBy(_ context.Context, slotID, customerID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl, ok := s.slots[slotID]
	if !ok {
		return false, ErrNotFound
	}
	return sl.Status == models.SlotBooked && sl.HoldedBy == customerID, nil
}

func (s *fakeStore) GetByID(_ context.Context, slotID string) (*models.Slot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl, ok := s.slots[slotID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *sl
	return &cp, nil
}

func (s *fakeStore) ListByConsultant(_ context.Context, consultantID string, _ time.Time) ([]models.Slot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Slot{}
	for _, sl := range s.slots {
		if sl.ConsultantID == consultantID {
			out = append(out, *sl)
		}
	}
	return out, nil
}

func (s *fakeStore) Create(_ context.Context, slot *models.Slot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *slot
	s.slots[slot.SlotID] = &cp
	return nil
}

func (s *fakeStore) CreateMany(ctx context.Context, list []models.Slot) error {
	for i := range list {
		if err := s.Create(ctx, &list[i]); err != nil {
			return err
		}
	}
	return nil
}

func putStatus(t *testing.T, h *Handler, slotID, userID, status string) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(map[string]string{"status": status})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPut, "/api/slotTime/status/"+slotID, bytes.NewReader(body))
	req = req.WithContext(context.WithValue(req.Context(), globals.UserIDKey, userID))
	w := httptest.NewRecorder()
	h.UpdateSlotStatus(w, req, httprouter.Params{{Key: "id", Value: slotID}})
	return w
}

func seedSlot(id, consultantID, status, holder string) *models.Slot {
	return &models.Slot{
		SlotID:       id,
		ConsultantID: consultantID,
		StartTime:    time.Now().Add(48 * time.Hour),
		EndTime:      time.Now().Add(49 * time.Hour),
		Status:       status,
		HoldedBy:     holder,
	}
}

func TestUpdateSlotStatusHoldAndRelease(t *testing.T) {
	store := newFakeStore(seedSlot("s1", "c1", models.SlotAvailable, ""))
	h := NewHandler(store)

	w := putStatus(t, h, "s1", "u1", models.SlotBooked)
	assert.Equal(t, http.StatusOK, w.Code)

	sl, err := store.GetByID(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, models.SlotBooked, sl.Status)
	assert.Equal(t, "u1", sl.HoldedBy)

	held, err := store.IsHeldBy(context.Background(), "s1", "u1")
	require.NoError(t, err)
	assert.True(t, held)
	held, err = store.IsHeldBy(context.Background(), "s1", "u2")
	require.NoError(t, err)
	assert.False(t, held)

	w = putStatus(t, h, "s1", "u1", models.SlotAvailable)
	assert.Equal(t, http.StatusOK, w.Code)

	sl, err = store.GetByID(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, models.SlotAvailable, sl.Status)
	assert.Empty(t, sl.HoldedBy)
}

func TestUpdateSlotStatusConflictReportsState(t *testing.T) {
	store := newFakeStore(seedSlot("s1", "c1", models.SlotBooked, "u1"))
	h := NewHandler(store)

	w := putStatus(t, h, "s1", "u2", models.SlotBooked)
	assert.Equal(t, http.StatusConflict, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, models.SlotBooked, body["status"])
	assert.Equal(t, "u1", body["holdedBy"])
}

func TestUpdateSlotStatusWrongHolderCannotRelease(t *testing.T) {
	store := newFakeStore(seedSlot("s1", "c1", models.SlotBooked, "u1"))
	h := NewHandler(store)

	w := putStatus(t, h, "s1", "u2", models.SlotAvailable)
	assert.Equal(t, http.StatusForbidden, w.Code)

	sl, err := store.GetByID(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "u1", sl.HoldedBy, "the hold survives a foreign release attempt")
}

func TestUpdateSlotStatusNotFoundAndBadBody(t *testing.T) {
	h := NewHandler(newFakeStore())

	w := putStatus(t, h, "missing", "u1", models.SlotBooked)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = putStatus(t, h, "missing", "u1", "cancelled")
	assert.Equal(t, http.StatusBadRequest, w.Code, "only booked and available are accepted")
}

func TestCreateSlotValidation(t *testing.T) {
	store := newFakeStore()
	h := NewHandler(store)

	body, _ := json.Marshal(models.Slot{ConsultantID: "c1"})
	req := httptest.NewRequest(http.MethodPost, "/api/slotTime", bytes.NewReader(body))
	w := httptest.NewRecorder()
	h.CreateSlot(w, req, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	body, _ = json.Marshal(models.Slot{
		ConsultantID: "c1",
		StartTime:    time.Now().Add(48 * time.Hour),
		EndTime:      time.Now().Add(49 * time.Hour),
	})
	req = httptest.NewRequest(http.MethodPost, "/api/slotTime", bytes.NewReader(body))
	w = httptest.NewRecorder()
	h.CreateSlot(w, req, nil)
	assert.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		Slot models.Slot `json:"slot"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, models.SlotAvailable, resp.Slot.Status)
	assert.NotEmpty(t, resp.Slot.SlotID)
}

func TestHoldExpiry(t *testing.T) {
	sl := seedSlot("s1", "c1", models.SlotBooked, "ghost")
	sl.HeldUntil = time.Now().Add(-time.Minute)
	store := newFakeStore(sl)
	h := NewHandler(store)

	w := putStatus(t, h, "s1", "u1", models.SlotBooked)
	assert.Equal(t, http.StatusOK, w.Code, "an expired hold is up for grabs")

	got, err := store.GetByID(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.HoldedBy)
}
