package models

import (
	"time"

	"gorm.io/gorm"
)

// User roles
const (
	RoleClinician   = "CLINICIAN"
	RoleAgencyAdmin = "AGENCY_ADMIN"
	RoleAdmin       = "ADMIN"
)

type User struct {
	gorm.Model
	FirstName string `gorm:"default:''" json:"first_name"`
	LastName  string `gorm:"default:''" json:"last_name"`
	Email     string `gorm:"unique;not null" json:"email"`
	Role      string `gorm:"default:'CLINICIAN'" json:"role"` // CLINICIAN, AGENCY_ADMIN, ADMIN
	Password  string `gorm:"not null" json:"-"`

	AgencyID     uint  `gorm:"index;not null" json:"agency_id"`
	SupervisorID *uint `gorm:"index" json:"supervisor_id"`
	DepartmentID *uint `gorm:"index" json:"department_id"`
	LocationID   *uint `gorm:"index" json:"location_id"`
	SpecialtyID  *uint `gorm:"index" json:"specialty_id"`

	LastLogin *time.Time `json:"last_login"`
	IsDeleted bool       `gorm:"default:false" json:"-"`
}

// Department is an agency-scoped org unit used for assignment targeting
type Department struct {
	gorm.Model
	AgencyID  uint   `gorm:"index;not null" json:"agency_id"`
	Name      string `json:"name"`
	IsDeleted bool   `gorm:"default:false" json:"-"`
}

// Location is an agency-scoped facility used for assignment targeting
type Location struct {
	gorm.Model
	AgencyID  uint   `gorm:"index;not null" json:"agency_id"`
	Name      string `json:"name"`
	IsDeleted bool   `gorm:"default:false" json:"-"`
}

// Specialty is a clinical specialty used for assignment targeting
type Specialty struct {
	gorm.Model
	AgencyID  uint   `gorm:"index;not null" json:"agency_id"`
	Name      string `json:"name"`
	IsDeleted bool   `gorm:"default:false" json:"-"`
}
