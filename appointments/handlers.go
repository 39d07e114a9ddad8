package appointments

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"mindline/models"
	"mindline/slots"
	"mindline/utils"

	"github.com/julienschmidt/httprouter"
)

type Handler struct {
	booking *BookingService
	resched *RescheduleService
}

func NewHandler(booking *BookingService, resched *RescheduleService) *Handler {
	return &Handler{booking: booking, resched: resched}
}

// CreateAppointment handles POST /appointments.
func (h *Handler) CreateAppointment(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	// The booking is always made on behalf of the authenticated customer;
	// the body's user id is never trusted.
	uid := utils.GetUserIDFromRequest(r)
	if uid == "" {
		utils.RespondWithError(w, http.StatusUnauthorized, "missing authenticated user")
		return
	}
	req.CustomerID = uid

	appt, err := h.booking.CreateAppointment(r.Context(), req)
	if err != nil {
		// A booking against a nonexistent slot is a bad request, not a
		// missing resource.
		if errors.Is(err, slots.ErrNotFound) {
			utils.RespondWithJSON(w, http.StatusBadRequest, utils.M{"reason": "slot_not_found", "message": err.Error()})
			return
		}
		respondBookingError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, utils.M{"appointment": appt})
}

// canAccess reports whether the request's user may act on the appointment.
// Customers only touch their own bookings; consultant and admin staff pass.
func canAccess(r *http.Request, appt *models.Appointment) bool {
	if uid := utils.GetUserIDFromRequest(r); uid != "" && uid == appt.CustomerID {
		return true
	}
	for _, role := range utils.GetRolesFromRequest(r) {
		if role == models.RoleConsultant || role == models.RoleAdmin {
			return true
		}
	}
	return false
}

// Reschedule handles PUT /appointments/reschedule/:id.
func (h *Handler) Reschedule(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	appointmentID := ps.ByName("id")

	var body struct {
		NewSlotTimeID   string `json:"newSlotTimeId"`
		NewConsultantID string `json:"newConsultantId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if body.NewSlotTimeID == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "missing newSlotTimeId")
		return
	}

	appt, err := h.booking.Get(r.Context(), appointmentID)
	if err != nil {
		respondBookingError(w, err)
		return
	}
	if !canAccess(r, appt) {
		utils.RespondWithError(w, http.StatusForbidden, "not your appointment")
		return
	}

	successor, err := h.resched.Reschedule(r.Context(), appointmentID, body.NewSlotTimeID, body.NewConsultantID)
	if err != nil {
		respondBookingError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"message":     "Appointment rescheduled successfully",
		"appointment": successor,
	})
}

// DeleteAppointment handles DELETE /appointments/:id (pending only).
func (h *Handler) DeleteAppointment(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	appt, err := h.booking.Get(r.Context(), ps.ByName("id"))
	if err != nil {
		respondBookingError(w, err)
		return
	}
	if !canAccess(r, appt) {
		utils.RespondWithError(w, http.StatusForbidden, "not your appointment")
		return
	}

	if err := h.booking.DeleteAppointment(r.Context(), appt.AppointmentID); err != nil {
		respondBookingError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"message": "Appointment deleted"})
}

// UpdateStatus handles PUT /appointments/status/:id (administrative).
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	appt, err := h.booking.UpdateStatus(r.Context(), ps.ByName("id"), body.Status)
	if err != nil {
		respondBookingError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"appointment": appt})
}

// GetAppointment handles GET /appointments/:id.
func (h *Handler) GetAppointment(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	appt, err := h.booking.Get(r.Context(), ps.ByName("id"))
	if err != nil {
		respondBookingError(w, err)
		return
	}
	if !canAccess(r, appt) {
		utils.RespondWithError(w, http.StatusForbidden, "not your appointment")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"appointment": appt})
}

// ListMyAppointments handles GET /appointments for the authenticated customer.
func (h *Handler) ListMyAppointments(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	customerID := utils.GetUserIDFromRequest(r)
	appts, err := h.booking.ListByCustomer(r.Context(), customerID)
	if err != nil {
		log.Printf("ListMyAppointments: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "db error")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"appointments": appts})
}

// respondBookingError maps domain errors onto the HTTP surface with a
// machine-readable reason.
func respondBookingError(w http.ResponseWriter, err error) {
	var unavail *slots.UnavailableError
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, slots.ErrNotFound):
		utils.RespondWithJSON(w, http.StatusNotFound, utils.M{"reason": "not_found", "message": err.Error()})
	case errors.As(err, &unavail):
		utils.RespondWithJSON(w, http.StatusBadRequest, utils.M{
			"reason":   "slot_unavailable",
			"message":  err.Error(),
			"status":   unavail.Status,
			"holdedBy": unavail.HoldedBy,
		})
	case errors.Is(err, ErrAlreadyRescheduled):
		utils.RespondWithJSON(w, http.StatusBadRequest, utils.M{"reason": "already_rescheduled", "message": err.Error()})
	case errors.Is(err, ErrTooLate):
		utils.RespondWithJSON(w, http.StatusBadRequest, utils.M{"reason": "too_late", "message": err.Error()})
	case errors.Is(err, ErrConsultantMismatch):
		utils.RespondWithJSON(w, http.StatusBadRequest, utils.M{"reason": "consultant_mismatch", "message": err.Error()})
	case errors.Is(err, ErrInvalidState):
		utils.RespondWithJSON(w, http.StatusBadRequest, utils.M{"reason": "invalid_state", "message": err.Error()})
	case errors.Is(err, ErrBookingFailed):
		utils.RespondWithJSON(w, http.StatusBadRequest, utils.M{"reason": "booking_failed", "message": err.Error()})
	default:
		log.Printf("appointments: internal error: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "internal error")
	}
}
