package slots

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"mindline/models"
	"mindline/utils"

	"github.com/julienschmidt/httprouter"
)

type Handler struct {
	store Store
}

func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

// ListSlots returns a consultant's upcoming slots.
func (h *Handler) ListSlots(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	consultantID := r.URL.Query().Get("consultantId")
	if consultantID == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "missing consultantId")
		return
	}

	slots, err := h.store.ListByConsultant(r.Context(), consultantID, time.Now())
	if err != nil {
		log.Printf("ListSlots: db error for consultant %s: %v", consultantID, err)
		utils.RespondWithError(w, http.StatusInternalServerError, "db error")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"slots": slots})
}

// CreateSlot inserts one slot for a consultant.
func (h *Handler) CreateSlot(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var slot models.Slot
	if err := json.NewDecoder(r.Body).Decode(&slot); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if slot.ConsultantID == "" || slot.StartTime.IsZero() || slot.EndTime.IsZero() {
		utils.RespondWithError(w, http.StatusBadRequest, "missing required fields")
		return
	}
	if !slot.EndTime.After(slot.StartTime) {
		utils.RespondWithError(w, http.StatusBadRequest, "end must be after start")
		return
	}

	slot.SlotID = utils.GenerateID(22)
	slot.Status = models.SlotAvailable
	slot.HoldedBy = ""
	slot.CreatedAt = time.Now()

	if err := h.store.Create(r.Context(), &slot); err != nil {
		log.Printf("CreateSlot: insert failed: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "db error")
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, utils.M{"slot": slot})
}

// UpdateSlotStatus is the hold/release endpoint: a customer places a
// provisional hold on a slot while checking out, or releases it again.
//
//	PUT /slotTime/status/:id  body: {"status": "booked"|"available"}
func (h *Handler) UpdateSlotStatus(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	slotID := ps.ByName("id")
	if slotID == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "missing id")
		return
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	customerID := utils.GetUserIDFromRequest(r)
	ctx := r.Context()

	var (
		slot *models.Slot
		err  error
	)
	switch body.Status {
	case models.SlotBooked:
		slot, err = h.store.TryHold(ctx, slotID, customerID)
	case models.SlotAvailable:
		slot, err = h.store.Release(ctx, slotID, customerID)
	default:
		utils.RespondWithError(w, http.StatusBadRequest, "invalid transition")
		return
	}

	switch {
	case err == nil:
		Notify(slot.ConsultantID, slot)
		utils.RespondWithJSON(w, http.StatusOK, utils.M{"slot": slot})
	case errors.Is(err, ErrNotFound):
		utils.RespondWithError(w, http.StatusNotFound, "slot not found")
	case errors.Is(err, ErrNotHolder):
		utils.RespondWithError(w, http.StatusForbidden, "wrong holder")
	default:
		var unavail *UnavailableError
		if errors.As(err, &unavail) {
			utils.RespondWithJSON(w, http.StatusConflict, utils.M{
				"error":    "slot unavailable",
				"status":   unavail.Status,
				"holdedBy": unavail.HoldedBy,
			})
			return
		}
		log.Printf("UpdateSlotStatus: %s -> %s failed: %v", slotID, body.Status, err)
		utils.RespondWithError(w, http.StatusInternalServerError, "db error")
	}
}
