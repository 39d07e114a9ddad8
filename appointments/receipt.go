package appointments

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"mindline/models"
	"mindline/utils"

	"github.com/julienschmidt/httprouter"
	"github.com/phpdave11/gofpdf"
	"github.com/skip2/go-qrcode"
)

// Receipt handles GET /appointments/:id/receipt: a PDF confirmation for the
// customer, with the meeting link embedded as a QR code.
func (h *Handler) Receipt(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	appt, err := h.booking.Get(r.Context(), ps.ByName("id"))
	if err != nil {
		respondBookingError(w, err)
		return
	}

	if uid := utils.GetUserIDFromRequest(r); uid != appt.CustomerID {
		utils.RespondWithError(w, http.StatusForbidden, "not your appointment")
		return
	}
	if appt.Status != models.ApptConfirmed && appt.Status != models.ApptCompleted {
		utils.RespondWithError(w, http.StatusBadRequest, "appointment is not confirmed")
		return
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(40, 10, "Consultation Receipt")
	pdf.Ln(12)

	pdf.SetFont("Arial", "", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Appointment: %s", appt.AppointmentID))
	pdf.Ln(8)
	pdf.Cell(0, 8, fmt.Sprintf("Consultant: %s", appt.ConsultantID))
	pdf.Ln(8)
	pdf.Cell(0, 8, fmt.Sprintf("Scheduled: %s", appt.DateBooking.Format(time.RFC1123)))
	pdf.Ln(8)
	if appt.Payment != nil {
		pdf.Cell(0, 8, fmt.Sprintf("Paid: %d VND via %s (txn %s)", appt.Payment.Amount, appt.Payment.Method, appt.Payment.TransactionID))
		pdf.Ln(8)
	}

	if appt.MeetLink != "" {
		qrPNG, err := qrcode.Encode(appt.MeetLink, qrcode.Medium, 256)
		if err == nil {
			opts := gofpdf.ImageOptions{ImageType: "PNG"}
			pdf.RegisterImageOptionsReader("meetlink", opts, bytes.NewReader(qrPNG))
			pdf.ImageOptions("meetlink", 10, 80, 50, 50, false, opts, 0, "")
			pdf.SetY(135)
			pdf.Cell(0, 8, "Scan to join your session")
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "pdf generation failed")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=receipt-%s.pdf", appt.AppointmentID))
	w.Write(buf.Bytes())
}
