package payments

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"mindline/appointments"
	"mindline/models"
	"mindline/utils"

	"github.com/julienschmidt/httprouter"
)

// VNPay IPN response codes
const (
	vnpOK               = "00"
	vnpOrderNotFound    = "01"
	vnpAlreadyConfirmed = "02"
	vnpInvalidSignature = "97"
	vnpUnknownError     = "99"
)

// VNPayConfig holds the terminal credentials shared with VNPay.
type VNPayConfig struct {
	TmnCode    string
	HashSecret string
	PayURL     string
	ReturnURL  string
}

func VNPayConfigFromEnv() VNPayConfig {
	return VNPayConfig{
		TmnCode:    os.Getenv("VNPAY_TMN_CODE"),
		HashSecret: os.Getenv("VNPAY_HASH_SECRET"),
		PayURL:     os.Getenv("VNPAY_PAY_URL"),
		ReturnURL:  os.Getenv("VNPAY_RETURN_URL"),
	}
}

// SignParams computes the HMAC-SHA512 over the sorted, url-encoded vnp_*
// parameters, excluding the signature fields themselves. url.Values.Encode
// sorts by key, which is exactly the ordering VNPay specifies.
func (c VNPayConfig) SignParams(params url.Values) string {
	data := url.Values{}
	for k, vs := range params {
		if k == "vnp_SecureHash" || k == "vnp_SecureHashType" {
			continue
		}
		for _, v := range vs {
			data.Add(k, v)
		}
	}
	h := hmac.New(sha512.New, []byte(c.HashSecret))
	h.Write([]byte(data.Encode()))
	return hex.EncodeToString(h.Sum(nil))
}

// VerifyParams checks the vnp_SecureHash on an inbound IPN query.
func (c VNPayConfig) VerifyParams(params url.Values) bool {
	got := params.Get("vnp_SecureHash")
	if got == "" {
		return false
	}
	return hmac.Equal([]byte(c.SignParams(params)), []byte(got))
}

// VNPayHandler serves the VNPay payment endpoints.
type VNPayHandler struct {
	cfg VNPayConfig
	rc  *Reconciler
}

func NewVNPayHandler(cfg VNPayConfig, rc *Reconciler) *VNPayHandler {
	return &VNPayHandler{cfg: cfg, rc: rc}
}

func respondVNPay(w http.ResponseWriter, code, message string) {
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"RspCode": code, "Message": message})
}

// IPN handles GET /payment/vnpay/ipn.
//
// The gateway protocol requires HTTP 200 regardless of business outcome (to
// prevent retry storms); the business result travels in RspCode. A replayed
// IPN for an already-settled appointment answers 02 without touching state.
func (h *VNPayHandler) IPN(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	params := r.URL.Query()

	if !h.cfg.VerifyParams(params) {
		log.Printf("vnpay ipn: signature mismatch for txnRef %s", params.Get("vnp_TxnRef"))
		respondVNPay(w, vnpInvalidSignature, "Invalid signature")
		return
	}

	appointmentID := params.Get("vnp_TxnRef")
	if appointmentID == "" {
		respondVNPay(w, vnpOrderNotFound, "Order not found")
		return
	}

	amount, _ := strconv.ParseInt(params.Get("vnp_Amount"), 10, 64)
	paidAt, _ := time.ParseInLocation("20060102150405", params.Get("vnp_PayDate"), time.Local)
	responseCode := params.Get("vnp_ResponseCode")

	o := outcome{
		appointmentID: appointmentID,
		gateway:       models.GatewayVNPay,
		success:       responseCode == "00",
		failureReason: "vnpay response code " + responseCode,
		details: &models.PaymentDetails{
			TransactionID: params.Get("vnp_TransactionNo"),
			Amount:        amount / 100, // vnp_Amount is in hundredths of VND
			PaidAt:        paidAt,
			Method:        models.GatewayVNPay,
		},
	}

	applied, appt, err := h.rc.apply(r.Context(), o)
	switch {
	case errors.Is(err, appointments.ErrNotFound):
		respondVNPay(w, vnpOrderNotFound, "Order not found")
	case err != nil:
		log.Printf("vnpay ipn: apply failed for appointment %s: %v", appointmentID, err)
		respondVNPay(w, vnpUnknownError, "Unknown error")
	case !applied:
		respondVNPay(w, vnpAlreadyConfirmed, fmt.Sprintf("Order already %s", appt.Status))
	default:
		respondVNPay(w, vnpOK, "Confirm success")
	}
}

// CreatePayment handles POST /payment/vnpay/create: builds the signed
// redirect URL the customer is sent to.
func (h *VNPayHandler) CreatePayment(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var body struct {
		AppointmentID string `json:"appointmentId"`
		Amount        int64  `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.AppointmentID == "" || body.Amount <= 0 {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid request")
		return
	}

	appt, err := h.rc.appts.GetByID(r.Context(), body.AppointmentID)
	if err != nil {
		if errors.Is(err, appointments.ErrNotFound) {
			utils.RespondWithError(w, http.StatusNotFound, "appointment not found")
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if appt.Status != models.ApptPending {
		utils.RespondWithError(w, http.StatusBadRequest, "appointment is not awaiting payment")
		return
	}

	now := time.Now()
	params := url.Values{}
	params.Set("vnp_Version", "2.1.0")
	params.Set("vnp_Command", "pay")
	params.Set("vnp_TmnCode", h.cfg.TmnCode)
	params.Set("vnp_Amount", strconv.FormatInt(body.Amount*100, 10))
	params.Set("vnp_CreateDate", now.Format("20060102150405"))
	params.Set("vnp_ExpireDate", now.Add(15*time.Minute).Format("20060102150405"))
	params.Set("vnp_CurrCode", "VND")
	params.Set("vnp_IpAddr", r.RemoteAddr)
	params.Set("vnp_Locale", "vn")
	params.Set("vnp_OrderInfo", "mindline consultation "+appt.AppointmentID)
	params.Set("vnp_OrderType", "other")
	params.Set("vnp_ReturnUrl", h.cfg.ReturnURL)
	params.Set("vnp_TxnRef", appt.AppointmentID)

	sig := h.cfg.SignParams(params)
	payURL := h.cfg.PayURL + "?" + params.Encode() + "&vnp_SecureHash=" + sig

	utils.RespondWithJSON(w, http.StatusOK, utils.M{"payUrl": payURL})
}
