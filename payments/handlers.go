package payments

import (
	"log"
	"net/http"

	"mindline/utils"

	"github.com/julienschmidt/httprouter"
)

// ListMyPayments handles GET /payment/history for the authenticated account.
func (rc *Reconciler) ListMyPayments(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	accountID := utils.GetUserIDFromRequest(r)
	rows, err := rc.ledger.ListByAccount(r.Context(), accountID)
	if err != nil {
		log.Printf("ListMyPayments: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "db error")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"payments": rows})
}
