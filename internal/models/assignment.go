package models

import "time"

// Assignment (affectation) is a dispatcher's request that an employee receive a material.
// It is never updated once created.
type Assignment struct {
	ID          uint      `gorm:"primaryKey"`
	EmployeeID  uint      `gorm:"index;not null"`
	Employee    Employee  `gorm:"constraint:OnDelete:CASCADE"`
	MaterialID  uint      `gorm:"index;not null"`
	Material    Material  `gorm:"constraint:OnDelete:CASCADE"`
	Date        time.Time `gorm:"index;not null"`
	CreatedBy   *uint
	Attribution *Attribution `gorm:"constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
