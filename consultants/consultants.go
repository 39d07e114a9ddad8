package consultants

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"mindline/db"
	"mindline/models"
	"mindline/rdx"
	"mindline/slots"
	"mindline/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Handler struct {
	slots slots.Store
}

func NewHandler(slotStore slots.Store) *Handler {
	return &Handler{slots: slotStore}
}

const (
	consultantsCacheKey = "consultants"
	consultantsCacheTTL = 5 * time.Minute
)

func (h *Handler) ListConsultants(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	spec := r.URL.Query().Get("speciality")

	// The unfiltered directory listing is the hot read; serve it from cache.
	if spec == "" {
		if cached, _ := rdx.RdxGet(consultantsCacheKey); cached != "" {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(cached))
			return
		}
	}

	filter := bson.M{}
	if spec != "" {
		filter["speciality"] = spec
	}

	cur, err := db.ConsultantsCollection.Find(r.Context(), filter)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "db error")
		return
	}
	defer cur.Close(r.Context())

	var consultants []models.Consultant
	if err := cur.All(r.Context(), &consultants); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "db error")
		return
	}

	if spec == "" {
		if data, err := json.Marshal(utils.M{"consultants": consultants}); err == nil {
			rdx.RdxSet(consultantsCacheKey, string(data), consultantsCacheTTL)
		}
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"consultants": consultants})
}

func (h *Handler) GetConsultant(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var c models.Consultant
	err := db.ConsultantsCollection.FindOne(r.Context(), bson.M{"consultantId": ps.ByName("id")}).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		utils.RespondWithError(w, http.StatusNotFound, "consultant not found")
		return
	}
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "db error")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"consultant": c})
}

func (h *Handler) UpsertProfile(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var c models.Consultant
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if c.Name == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "missing name")
		return
	}

	c.UserID = utils.GetUserIDFromRequest(r)
	if c.ConsultantID == "" {
		c.ConsultantID = utils.GenerateID(16)
		c.CreatedAt = time.Now()
	}

	_, err := db.ConsultantsCollection.UpdateOne(r.Context(),
		bson.M{"consultantId": c.ConsultantID},
		bson.M{"$set": c},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		log.Printf("UpsertProfile: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "db error")
		return
	}

	rdx.RdxDel(consultantsCacheKey)
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"consultant": c})
}

// PublishAvailability generates one week's worth of slots from a recurring
// weekly pattern.
//
//	POST /consultants/:id/availability
//	{"startDate":"2026-09-07","endDate":"2026-09-13","daysOfWeek":[1,3,5],
//	 "startHour":"09:00","endHour":"17:00","slotMinutes":60}
func (h *Handler) PublishAvailability(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	consultantID := ps.ByName("id")

	var body struct {
		StartDate   string `json:"startDate"`
		EndDate     string `json:"endDate"`
		DaysOfWeek  []int  `json:"daysOfWeek"` // 0=Sun..6=Sat
		StartHour   string `json:"startHour"`
		EndHour     string `json:"endHour"`
		SlotMinutes int    `json:"slotMinutes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if body.StartDate == "" || body.EndDate == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "missing date range")
		return
	}
	if body.SlotMinutes <= 0 {
		body.SlotMinutes = 60
	}

	startDate, err1 := time.Parse("2006-01-02", body.StartDate)
	endDate, err2 := time.Parse("2006-01-02", body.EndDate)
	startHour, err3 := time.Parse("15:04", body.StartHour)
	endHour, err4 := time.Parse("15:04", body.EndHour)
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil || startDate.After(endDate) {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid date range")
		return
	}

	step := time.Duration(body.SlotMinutes) * time.Minute
	now := time.Now()
	var generated []models.Slot

	for d := startDate; !d.After(endDate); d = d.AddDate(0, 0, 1) {
		if len(body.DaysOfWeek) > 0 && !containsDay(body.DaysOfWeek, int(d.Weekday())) {
			continue
		}

		dayStart := time.Date(d.Year(), d.Month(), d.Day(), startHour.Hour(), startHour.Minute(), 0, 0, time.Local)
		dayEnd := time.Date(d.Year(), d.Month(), d.Day(), endHour.Hour(), endHour.Minute(), 0, 0, time.Local)

		for t := dayStart; !t.Add(step).After(dayEnd); t = t.Add(step) {
			generated = append(generated, models.Slot{
				SlotID:       utils.GenerateID(22),
				ConsultantID: consultantID,
				StartTime:    t,
				EndTime:      t.Add(step),
				Status:       models.SlotAvailable,
				CreatedAt:    now,
			})
		}
	}

	if err := h.slots.CreateMany(r.Context(), generated); err != nil {
		log.Printf("PublishAvailability: insert failed for consultant %s: %v", consultantID, err)
		utils.RespondWithError(w, http.StatusInternalServerError, "db error")
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, utils.M{"count": len(generated), "slots": generated})
}

func containsDay(days []int, day int) bool {
	for _, d := range days {
		if d == day {
			return true
		}
	}
	return false
}

// ---------- Services ----------

func (h *Handler) ListServices(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	filter := bson.M{}
	if cid := r.URL.Query().Get("consultantId"); cid != "" {
		filter["consultantId"] = cid
	}

	cur, err := db.ServicesCollection.Find(r.Context(), filter)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "db error")
		return
	}
	defer cur.Close(r.Context())

	var services []models.Service
	if err := cur.All(r.Context(), &services); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "db error")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"services": services})
}

func (h *Handler) CreateService(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var svc models.Service
	if err := json.NewDecoder(r.Body).Decode(&svc); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if svc.Name == "" || svc.Price <= 0 {
		utils.RespondWithError(w, http.StatusBadRequest, "missing name or price")
		return
	}

	svc.ServiceID = utils.GenerateID(16)
	svc.CreatedAt = time.Now()

	if _, err := db.ServicesCollection.InsertOne(r.Context(), svc); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "db error")
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, utils.M{"service": svc})
}
