package consultants

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"mindline/models"
	"mindline/rdx"
	"mindline/slots"

	"github.com/alicebob/miniredis/v2"
	"github.com/julienschmidt/httprouter"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubSlotStore records CreateMany calls; the profile handlers never touch it.
type stubSlotStore struct {
	created []models.Slot
}

func (s *stubSlotStore) TryHold(context.Context, string, string) (*models.Slot, error) {
	return nil, slots.ErrNotFound
}
func (s *stubSlotStore) ConfirmBooking(context.Context, string) (*models.Slot, error) {
	return nil, slots.ErrNotFound
}
func (s *stubSlotStore) Release(context.Context, string, string) (*models.Slot, error) {
	return nil, slots.ErrNotFound
}
func (s *stubSlotStore) IsHeldBy(context.Context, string, string) (bool, error) {
	return false, nil
}
func (s *stubSlotStore) GetByID(context.Context, string) (*models.Slot, error) {
	return nil, slots.ErrNotFound
}
func (s *stubSlotStore) ListByConsultant(context.Context, string, time.Time) ([]models.Slot, error) {
	return nil, nil
}
func (s *stubSlotStore) Create(_ context.Context, slot *models.Slot) error {
	s.created = append(s.created, *slot)
	return nil
}
func (s *stubSlotStore) CreateMany(_ context.Context, list []models.Slot) error {
	s.created = append(s.created, list...)
	return nil
}

func postAvailability(t *testing.T, h *Handler, consultantID string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/consultants/"+consultantID+"/availability", bytes.NewReader(raw))
	w := httptest.NewRecorder()
	h.PublishAvailability(w, req, httprouter.Params{{Key: "id", Value: consultantID}})
	return w
}

func TestPublishAvailabilityGeneratesWeeklySlots(t *testing.T) {
	store := &stubSlotStore{}
	h := NewHandler(store)

	// Mon Sep 7 2026 through Sun Sep 13 2026, Mon/Wed/Fri 09:00-12:00, hourly.
	w := postAvailability(t, h, "c1", map[string]interface{}{
		"startDate":   "2026-09-07",
		"endDate":     "2026-09-13",
		"daysOfWeek":  []int{1, 3, 5},
		"startHour":   "09:00",
		"endHour":     "12:00",
		"slotMinutes": 60,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	// 3 days of 3 hourly slots each.
	assert.Len(t, store.created, 9)
	for _, sl := range store.created {
		assert.Equal(t, "c1", sl.ConsultantID)
		assert.Equal(t, models.SlotAvailable, sl.Status)
		assert.Equal(t, time.Hour, sl.EndTime.Sub(sl.StartTime))
		day := int(sl.StartTime.Weekday())
		assert.Contains(t, []int{1, 3, 5}, day)
	}
}

func TestPublishAvailabilityRejectsBadRange(t *testing.T) {
	h := NewHandler(&stubSlotStore{})

	w := postAvailability(t, h, "c1", map[string]interface{}{
		"startDate": "2026-09-13",
		"endDate":   "2026-09-07",
		"startHour": "09:00",
		"endHour":   "12:00",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = postAvailability(t, h, "c1", map[string]interface{}{
		"endDate":   "2026-09-07",
		"startHour": "09:00",
		"endHour":   "12:00",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListConsultantsServesFromCache(t *testing.T) {
	mr := miniredis.RunT(t)
	old := rdx.Conn
	rdx.Conn = redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdx.Conn = old })

	cached := `{"consultants":[{"consultantId":"c1","name":"Dr. An"}]}`
	require.NoError(t, mr.Set(consultantsCacheKey, cached))

	// A cache hit answers without touching the database at all.
	h := NewHandler(&stubSlotStore{})
	req := httptest.NewRequest(http.MethodGet, "/api/consultants", nil)
	w := httptest.NewRecorder()
	h.ListConsultants(w, req, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, cached, w.Body.String())
}

func TestContainsDay(t *testing.T) {
	assert.True(t, containsDay([]int{1, 3, 5}, 3))
	assert.False(t, containsDay([]int{1, 3, 5}, 0))
	assert.False(t, containsDay(nil, 1))
}
