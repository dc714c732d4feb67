package models

import "time"

// Employee is the person PPE is handed out to. It may be linked to a login account.
type Employee struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	RegistrationNumber string    `gorm:"size:50;uniqueIndex;not null" json:"registration_number"` // matricule
	FirstName          string    `gorm:"size:100;not null" json:"first_name"`
	LastName           string    `gorm:"size:100;not null" json:"last_name"`
	UserID             *uint     `json:"user_id"`
	User               *User     `gorm:"constraint:OnDelete:SET NULL" json:"-"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func (e Employee) FullName() string {
	return e.LastName + " " + e.FirstName
}
