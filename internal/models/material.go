package models

import "time"

type Material struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	Description      string    `gorm:"size:255;not null;index" json:"description"`
	CategoryID       uint      `gorm:"index;not null" json:"category_id"`
	Category         Category  `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	RenewalFrequency string    `gorm:"size:50;not null" json:"renewal_frequency"` // e.g. "6 months", "yearly"
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}
