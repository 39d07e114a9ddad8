package models

import "time"

// Event is a workshop or group session customers can attend in person.
type Event struct {
	EventID   string    `json:"eventId" bson:"eventId"`
	Title     string    `json:"title" bson:"title"`
	Location  string    `json:"location,omitempty" bson:"location,omitempty"`
	StartTime time.Time `json:"startTime" bson:"startTime"`
	EndTime   time.Time `json:"endTime,omitempty" bson:"endTime,omitempty"`
	Capacity  int       `json:"capacity" bson:"capacity"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

// Registration links one user to one event and carries the unique code
// embedded in the check-in QR.
type Registration struct {
	RegistrationID string    `json:"registrationId" bson:"registrationId"`
	EventID        string    `json:"eventId" bson:"eventId"`
	UserID         string    `json:"userId" bson:"userId"`
	UniqueCode     string    `json:"uniqueCode" bson:"uniqueCode"`
	CheckedIn      bool      `json:"checkedIn" bson:"checkedIn"`
	CheckedInAt    time.Time `json:"checkedInAt,omitempty" bson:"checkedInAt,omitempty"`
	CreatedAt      time.Time `json:"createdAt" bson:"createdAt"`
}
