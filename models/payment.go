package models

import "time"

// Payment gateways
const (
	GatewayMoMo   = "momo"
	GatewayVNPay  = "vnpay"
	GatewayPayPal = "paypal"
)

// Payment statuses
const (
	PaymentSuccess = "success"
	PaymentFailed  = "failed"
)

// Payment is the durable audit row for one gateway outcome, written once the
// linked appointment reaches a terminal payment state. Never mutated except
// for status correction.
type Payment struct {
	PaymentID     string    `json:"paymentId" bson:"paymentId"`
	AppointmentID string    `json:"appointmentId" bson:"appointmentId"`
	AccountID     string    `json:"accountId" bson:"accountId"`
	Gateway       string    `json:"gateway" bson:"gateway"`
	Amount        int64     `json:"amount" bson:"amount"`
	Status        string    `json:"status" bson:"status"`
	TransactionID string    `json:"transactionId,omitempty" bson:"transactionId,omitempty"`
	FailureReason string    `json:"failureReason,omitempty" bson:"failureReason,omitempty"`
	CreatedAt     time.Time `json:"createdAt" bson:"createdAt"`
}

// IdempotencyRecord caches the response of a mutating request keyed by the
// client-supplied Idempotency-Key header.
type IdempotencyRecord struct {
	Key         string                 `bson:"key"`
	Method      string                 `bson:"method"`
	Path        string                 `bson:"path"`
	UserID      string                 `bson:"user_id"`
	RequestHash string                 `bson:"request_hash"`
	Response    map[string]interface{} `bson:"response,omitempty"`
	CreatedAt   time.Time              `bson:"created_at"`
	ExpiresAt   time.Time              `bson:"expires_at"`
}
