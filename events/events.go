package events

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"mindline/db"
	"mindline/models"
	"mindline/utils"

	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

var qrSecret = qrSecretFromEnv()

func qrSecretFromEnv() []byte {
	if s := os.Getenv("QR_SECRET"); s != "" {
		return []byte(s)
	}
	return []byte("dev-only-qr-secret")
}

// SignCheckinPayload builds the QR payload: eventID|registrationID|code|sig.
func SignCheckinPayload(eventID, registrationID, uniqueCode string) string {
	data := fmt.Sprintf("%s|%s|%s", eventID, registrationID, uniqueCode)
	h := hmac.New(sha256.New, qrSecret)
	h.Write([]byte(data))
	sig := base64.StdEncoding.EncodeToString(h.Sum(nil))
	return data + "|" + sig
}

// VerifyCheckinPayload validates the signature and returns the parts.
func VerifyCheckinPayload(payload string) (eventID, registrationID, uniqueCode string, ok bool) {
	parts := strings.Split(payload, "|")
	if len(parts) != 4 {
		return "", "", "", false
	}
	data := strings.Join(parts[:3], "|")
	h := hmac.New(sha256.New, qrSecret)
	h.Write([]byte(data))
	want := base64.StdEncoding.EncodeToString(h.Sum(nil))
	if !hmac.Equal([]byte(want), []byte(parts[3])) {
		return "", "", "", false
	}
	return parts[0], parts[1], parts[2], true
}

func ListEvents(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx := r.Context()
	cursor, err := db.EventsCollection.Find(ctx, bson.M{"startTime": bson.M{"$gte": time.Now().Add(-24 * time.Hour)}})
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "db error")
		return
	}
	defer cursor.Close(ctx)

	var list []models.Event
	if err := cursor.All(ctx, &list); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "db error")
		return
	}
	if list == nil {
		list = []models.Event{}
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"events": list})
}

func CreateEvent(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var ev models.Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if ev.Title == "" || ev.StartTime.IsZero() {
		utils.RespondWithError(w, http.StatusBadRequest, "missing title or startTime")
		return
	}

	ev.EventID = utils.GenerateID(16)
	ev.CreatedAt = time.Now()
	if _, err := db.EventsCollection.InsertOne(r.Context(), ev); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "db error")
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, utils.M{"event": ev})
}

// Register handles POST /events/:id/register for the authenticated user.
func Register(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	eventID := ps.ByName("id")
	userID := utils.GetUserIDFromRequest(r)
	ctx := r.Context()

	var ev models.Event
	err := db.EventsCollection.FindOne(ctx, bson.M{"eventId": eventID}).Decode(&ev)
	if errors.Is(err, mongo.ErrNoDocuments) {
		utils.RespondWithError(w, http.StatusNotFound, "event not found")
		return
	}
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "db error")
		return
	}

	if ev.Capacity > 0 {
		count, err := db.RegistrationsCollection.CountDocuments(ctx, bson.M{"eventId": eventID})
		if err != nil {
			utils.RespondWithError(w, http.StatusInternalServerError, "db error")
			return
		}
		if count >= int64(ev.Capacity) {
			utils.RespondWithError(w, http.StatusConflict, "event is full")
			return
		}
	}

	reg := models.Registration{
		RegistrationID: utils.GenerateID(16),
		EventID:        eventID,
		UserID:         userID,
		UniqueCode:     utils.GetUUID(),
		CreatedAt:      time.Now(),
	}
	if _, err := db.RegistrationsCollection.InsertOne(ctx, reg); err != nil {
		// Unique index on (eventId, userId) rejects double registration.
		utils.RespondWithError(w, http.StatusConflict, "already registered")
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, utils.M{"registration": reg})
}

// CheckinQR handles GET /events/:id/qr: a PNG QR the attendee presents at the
// door.
func CheckinQR(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	eventID := ps.ByName("id")
	userID := utils.GetUserIDFromRequest(r)

	var reg models.Registration
	err := db.RegistrationsCollection.FindOne(r.Context(),
		bson.M{"eventId": eventID, "userId": userID}).Decode(&reg)
	if errors.Is(err, mongo.ErrNoDocuments) {
		utils.RespondWithError(w, http.StatusNotFound, "not registered")
		return
	}
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "db error")
		return
	}

	payload := SignCheckinPayload(reg.EventID, reg.RegistrationID, reg.UniqueCode)
	png, err := qrcode.Encode(payload, qrcode.Medium, 256)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "qr generation failed")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Write(png)
}

// Checkin handles POST /events/:id/checkin from the door scanner: verifies
// the QR payload and marks attendance at most once.
func Checkin(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var body struct {
		Payload string `json:"payload"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	eventID, registrationID, uniqueCode, ok := VerifyCheckinPayload(body.Payload)
	if !ok {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid signature")
		return
	}
	if eventID != ps.ByName("id") {
		utils.RespondWithError(w, http.StatusBadRequest, "payload is for a different event")
		return
	}

	// Conditional write: a second scan of the same QR does not re-apply.
	res, err := db.RegistrationsCollection.UpdateOne(r.Context(),
		bson.M{
			"registrationId": registrationID,
			"eventId":        eventID,
			"uniqueCode":     uniqueCode,
			"checkedIn":      false,
		},
		bson.M{"$set": bson.M{"checkedIn": true, "checkedInAt": time.Now()}},
	)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "db error")
		return
	}
	if res.ModifiedCount == 0 {
		utils.RespondWithJSON(w, http.StatusOK, utils.M{"checkedIn": false, "message": "already checked in or unknown registration"})
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"checkedIn": true})
}
