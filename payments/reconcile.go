package payments

import (
	"context"
	"log"
	"time"

	"mindline/appointments"
	"mindline/models"
	"mindline/utils"
)

// Reconciler applies gateway payment outcomes to appointments exactly once.
// The transition itself is a conditional write on the appointment store, so
// a replayed callback observes "already applied" instead of re-applying.
type Reconciler struct {
	appts  appointments.Store
	ledger LedgerStore
}

func NewReconciler(appts appointments.Store, ledger LedgerStore) *Reconciler {
	return &Reconciler{appts: appts, ledger: ledger}
}

type outcome struct {
	appointmentID string
	gateway       string
	success       bool
	details       *models.PaymentDetails
	failureReason string
}

// apply returns (applied, settled appointment state, error). An appointment
// that has already left pending is reported applied=false with no mutation.
func (rc *Reconciler) apply(ctx context.Context, o outcome) (bool, *models.Appointment, error) {
	appt, err := rc.appts.GetByID(ctx, o.appointmentID)
	if err != nil {
		return false, nil, err
	}
	if appt.Status != models.ApptPending {
		return false, appt, nil
	}

	status := models.ApptConfirmed
	details := o.details
	if !o.success {
		status = models.ApptCancelled
		if details == nil {
			details = &models.PaymentDetails{}
		}
		details.FailureReason = o.failureReason
	}

	applied, err := rc.appts.ApplyPaymentOutcome(ctx, o.appointmentID, status, details)
	if err != nil {
		return false, appt, err
	}
	if !applied {
		// Lost the race against a concurrent callback or admin update;
		// re-read so callers report the status that actually settled.
		if settled, rerr := rc.appts.GetByID(ctx, o.appointmentID); rerr == nil {
			appt = settled
		}
		return false, appt, nil
	}

	rc.audit(ctx, appt, o, details)
	return true, appt, nil
}

// audit writes the durable ledger row. The appointment transition has already
// committed, so a failed audit write is logged, not retried via the gateway.
func (rc *Reconciler) audit(ctx context.Context, appt *models.Appointment, o outcome, details *models.PaymentDetails) {
	status := models.PaymentSuccess
	if !o.success {
		status = models.PaymentFailed
	}
	row := &models.Payment{
		PaymentID:     utils.GetUUID(),
		AppointmentID: appt.AppointmentID,
		AccountID:     appt.CustomerID,
		Gateway:       o.gateway,
		Status:        status,
		FailureReason: o.failureReason,
		CreatedAt:     time.Now(),
	}
	if details != nil {
		row.Amount = details.Amount
		row.TransactionID = details.TransactionID
	}
	if err := rc.ledger.Insert(ctx, row); err != nil {
		log.Printf("payments: ledger write failed for appointment %s: %v", appt.AppointmentID, err)
	}
}
