package models

import "time"

// Attribution records the hand-out of an assignment's material. At most one per assignment.
type Attribution struct {
	ID           uint              `gorm:"primaryKey"`
	AssignmentID uint              `gorm:"uniqueIndex;not null"`
	Assignment   Assignment        `gorm:"constraint:OnDelete:CASCADE"`
	Date         time.Time         `gorm:"index;not null"`
	Materials    []Material        `gorm:"many2many:attribution_materials;constraint:OnDelete:CASCADE"`
	Sheet        *AttributionSheet `gorm:"constraint:OnDelete:CASCADE"`
	CreatedBy    *uint
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// AttributionSheet (fiche d'attribution) points at the rendered PDF for an attribution.
type AttributionSheet struct {
	ID            uint      `gorm:"primaryKey"`
	AttributionID uint      `gorm:"uniqueIndex;not null"`
	GeneratedAt   time.Time `gorm:"not null"`
	Format        string    `gorm:"size:10;not null;default:PDF"`
	Path          string    `gorm:"size:255;not null"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
