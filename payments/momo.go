package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"mindline/appointments"
	"mindline/models"
	"mindline/utils"

	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
)

// MomoConfig holds the credentials shared with the MoMo gateway.
type MomoConfig struct {
	PartnerCode string
	AccessKey   string
	SecretKey   string
	PayEndpoint string
	IPNURL      string
	RedirectURL string
}

func MomoConfigFromEnv() MomoConfig {
	return MomoConfig{
		PartnerCode: os.Getenv("MOMO_PARTNER_CODE"),
		AccessKey:   os.Getenv("MOMO_ACCESS_KEY"),
		SecretKey:   os.Getenv("MOMO_SECRET_KEY"),
		PayEndpoint: os.Getenv("MOMO_PAY_ENDPOINT"),
		IPNURL:      os.Getenv("MOMO_IPN_URL"),
		RedirectURL: os.Getenv("MOMO_REDIRECT_URL"),
	}
}

// MomoIPN is the callback body MoMo posts after a payment attempt.
type MomoIPN struct {
	PartnerCode  string `json:"partnerCode"`
	OrderID      string `json:"orderId"`
	RequestID    string `json:"requestId"`
	Amount       int64  `json:"amount"`
	OrderInfo    string `json:"orderInfo"`
	OrderType    string `json:"orderType"`
	TransID      int64  `json:"transId"`
	ResultCode   int    `json:"resultCode"`
	Message      string `json:"message"`
	PayType      string `json:"payType"`
	ResponseTime int64  `json:"responseTime"`
	ExtraData    string `json:"extraData"`
	Signature    string `json:"signature"`
}

// ipnRawSignature rebuilds the signed string in the field order MoMo
// documents for IPN payloads.
func (c MomoConfig) ipnRawSignature(p MomoIPN) string {
	return fmt.Sprintf("accessKey=%s&amount=%d&extraData=%s&message=%s&orderId=%s&orderInfo=%s&orderType=%s&partnerCode=%s&payType=%s&requestId=%s&responseTime=%d&resultCode=%d&transId=%d",
		c.AccessKey, p.Amount, p.ExtraData, p.Message, p.OrderID, p.OrderInfo,
		p.OrderType, p.PartnerCode, p.PayType, p.RequestID, p.ResponseTime,
		p.ResultCode, p.TransID)
}

func (c MomoConfig) sign(raw string) string {
	h := hmac.New(sha256.New, []byte(c.SecretKey))
	h.Write([]byte(raw))
	return hex.EncodeToString(h.Sum(nil))
}

// VerifyIPN recomputes the HMAC-SHA256 signature and compares it in constant
// time.
func (c MomoConfig) VerifyIPN(p MomoIPN) bool {
	expected := c.sign(c.ipnRawSignature(p))
	return hmac.Equal([]byte(expected), []byte(p.Signature))
}

// appointmentIDFromOrderInfo extracts the appointment id: the last
// whitespace-delimited token of the free-text order info.
func appointmentIDFromOrderInfo(orderInfo string) string {
	fields := strings.Fields(orderInfo)
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}

// MomoHandler serves the MoMo payment endpoints.
type MomoHandler struct {
	cfg MomoConfig
	rc  *Reconciler
}

func NewMomoHandler(cfg MomoConfig, rc *Reconciler) *MomoHandler {
	return &MomoHandler{cfg: cfg, rc: rc}
}

// Callback handles POST /payment/momo/callback.
//
// Business outcomes (payment success, payment failure, already processed)
// are acknowledged so the gateway stops retrying; only infrastructure errors
// return 5xx.
func (h *MomoHandler) Callback(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var ipn MomoIPN
	if err := json.NewDecoder(r.Body).Decode(&ipn); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	if !h.cfg.VerifyIPN(ipn) {
		// Never process an unauthenticated callback; log as a potential
		// integrity issue, do not leak detail to the caller.
		log.Printf("momo callback: signature mismatch for order %s", ipn.OrderID)
		utils.RespondWithError(w, http.StatusBadRequest, "invalid signature")
		return
	}

	appointmentID := appointmentIDFromOrderInfo(ipn.OrderInfo)
	if appointmentID == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid orderInfo")
		return
	}

	o := outcome{
		appointmentID: appointmentID,
		gateway:       models.GatewayMoMo,
		success:       ipn.ResultCode == 0,
		failureReason: ipn.Message,
		details: &models.PaymentDetails{
			TransactionID: fmt.Sprintf("%d", ipn.TransID),
			Amount:        ipn.Amount,
			PaidAt:        time.UnixMilli(ipn.ResponseTime),
			Method:        models.GatewayMoMo,
		},
	}

	applied, _, err := h.rc.apply(r.Context(), o)
	if err != nil {
		if errors.Is(err, appointments.ErrNotFound) {
			// Permanently unknown order: the gateway cannot recover, so do
			// not invite retries beyond the 404 it expects.
			utils.RespondWithError(w, http.StatusNotFound, "appointment not found")
			return
		}
		log.Printf("momo callback: apply failed for appointment %s: %v", appointmentID, err)
		utils.RespondWithError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !applied {
		log.Printf("momo callback: appointment %s already processed, acknowledging replay", appointmentID)
	}

	w.WriteHeader(http.StatusNoContent)
}

// CreatePayment handles POST /payment/momo/create: builds the signed
// create-payment request the client forwards to the gateway.
func (h *MomoHandler) CreatePayment(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
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

	orderID := uuid.New().String()
	requestID := uuid.New().String()
	orderInfo := "mindline consultation " + appt.AppointmentID
	requestType := "captureWallet"

	raw := fmt.Sprintf("accessKey=%s&amount=%d&extraData=&ipnUrl=%s&orderId=%s&orderInfo=%s&partnerCode=%s&redirectUrl=%s&requestId=%s&requestType=%s",
		h.cfg.AccessKey, body.Amount, h.cfg.IPNURL, orderID, orderInfo,
		h.cfg.PartnerCode, h.cfg.RedirectURL, requestID, requestType)

	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"payEndpoint": h.cfg.PayEndpoint,
		"request": utils.M{
			"partnerCode": h.cfg.PartnerCode,
			"accessKey":   h.cfg.AccessKey,
			"requestId":   requestID,
			"amount":      body.Amount,
			"orderId":     orderID,
			"orderInfo":   orderInfo,
			"redirectUrl": h.cfg.RedirectURL,
			"ipnUrl":      h.cfg.IPNURL,
			"extraData":   "",
			"requestType": requestType,
			"signature":   h.cfg.sign(raw),
		},
	})
}
