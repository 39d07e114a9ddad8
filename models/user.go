package models

import "time"

// Roles
const (
	RoleCustomer   = "customer"
	RoleConsultant = "consultant"
	RoleAdmin      = "admin"
)

type User struct {
	UserID    string    `json:"userId" bson:"userId"`
	Username  string    `json:"username" bson:"username"`
	Email     string    `json:"email" bson:"email"`
	Password  string    `json:"-" bson:"password"`
	Role      []string  `json:"role" bson:"role"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

// Consultant is the public profile behind a consultant account.
type Consultant struct {
	ConsultantID string    `json:"consultantId" bson:"consultantId"`
	UserID       string    `json:"userId" bson:"userId"`
	Name         string    `json:"name" bson:"name"`
	Speciality   string    `json:"speciality,omitempty" bson:"speciality,omitempty"`
	Bio          string    `json:"bio,omitempty" bson:"bio,omitempty"`
	Photo        string    `json:"photo,omitempty" bson:"photo,omitempty"`
	Thumb        string    `json:"thumb,omitempty" bson:"thumb,omitempty"`
	RatingAvg    float64   `json:"ratingAvg" bson:"ratingAvg"`
	RatingCount  int       `json:"ratingCount" bson:"ratingCount"`
	CreatedAt    time.Time `json:"createdAt" bson:"createdAt"`
}

// Service is one consultation offering with a fixed price in VND.
type Service struct {
	ServiceID    string    `json:"serviceId" bson:"serviceId"`
	ConsultantID string    `json:"consultantId,omitempty" bson:"consultantId,omitempty"`
	Name         string    `json:"name" bson:"name"`
	Description  string    `json:"description,omitempty" bson:"description,omitempty"`
	Price        int64     `json:"price" bson:"price"`
	DurationMin  int       `json:"durationMin" bson:"durationMin"`
	CreatedAt    time.Time `json:"createdAt" bson:"createdAt"`
}
