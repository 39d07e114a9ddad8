package appointments

import (
	"context"
	"errors"
	"testing"
	"time"

	"mindline/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func queuedRelease(id, slotID string, attempts int) *models.Compensation {
	now := time.Now()
	return &models.Compensation{
		ID:            id,
		Kind:          models.CompensationReleaseSlot,
		SlotID:        slotID,
		AppointmentID: "a1",
		Attempts:      attempts,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func TestSweepReleasesQueuedSlot(t *testing.T) {
	sl := availableSlot("s1", "c1", time.Now().Add(48*time.Hour))
	sl.Status = models.SlotBooked
	slotStore := newMemSlotStore(sl)
	comp := newMemCompStore()
	require.NoError(t, comp.Insert(context.Background(), queuedRelease("comp1", "s1", 0)))

	sweep(context.Background(), comp, slotStore)

	got, _ := slotStore.GetByID(context.Background(), "s1")
	assert.Equal(t, models.SlotAvailable, got.Status)

	pending, err := comp.ListPending(context.Background(), models.CompensationReleaseSlot, 0)
	require.NoError(t, err)
	assert.Empty(t, pending, "a released slot retires its record")
}

func TestSweepRetiresAlreadyFreeSlot(t *testing.T) {
	// Slot already available (or gone): nothing left to release.
	slotStore := newMemSlotStore(availableSlot("s1", "c1", time.Now().Add(48*time.Hour)))
	comp := newMemCompStore()
	require.NoError(t, comp.Insert(context.Background(), queuedRelease("comp1", "s1", 0)))
	require.NoError(t, comp.Insert(context.Background(), queuedRelease("comp2", "missing", 0)))

	sweep(context.Background(), comp, slotStore)

	pending, err := comp.ListPending(context.Background(), models.CompensationReleaseSlot, 0)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestSweepRecordsFailedAttempt(t *testing.T) {
	sl := availableSlot("s1", "c1", time.Now().Add(48*time.Hour))
	sl.Status = models.SlotBooked
	slotStore := newMemSlotStore(sl)
	slotStore.failRelease["s1"] = errors.New("connection reset")
	comp := newMemCompStore()
	require.NoError(t, comp.Insert(context.Background(), queuedRelease("comp1", "s1", 0)))

	sweep(context.Background(), comp, slotStore)

	recs := comp.byKind(models.CompensationReleaseSlot)
	require.Len(t, recs, 1)
	assert.False(t, recs[0].Done)
	assert.Equal(t, 1, recs[0].Attempts)
	assert.Contains(t, recs[0].LastError, "connection reset")
}

func TestSweepStopsRetryingAfterCap(t *testing.T) {
	sl := availableSlot("s1", "c1", time.Now().Add(48*time.Hour))
	sl.Status = models.SlotBooked
	slotStore := newMemSlotStore(sl)
	slotStore.failRelease["s1"] = errors.New("connection reset")
	comp := newMemCompStore()
	require.NoError(t, comp.Insert(context.Background(), queuedRelease("comp1", "s1", maxCompensationAttempts)))

	sweep(context.Background(), comp, slotStore)

	recs := comp.byKind(models.CompensationReleaseSlot)
	require.Len(t, recs, 1)
	assert.Equal(t, maxCompensationAttempts, recs[0].Attempts, "exhausted records are left for an operator")
}
