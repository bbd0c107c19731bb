package competency

import "gorm.io/gorm"

// Bundle is a named group of competency items used as an assignment-targeting
// shortcut. Expanding a bundle only tags the resulting assignments with the
// bundle id, it creates no other persistent link.
type Bundle struct {
	gorm.Model
	Name      string `gorm:"not null" json:"name"`
	AgencyID  *uint  `gorm:"index" json:"agency_id"`
	Status    string `gorm:"default:'DRAFT'" json:"status"`
	IsDeleted bool   `gorm:"default:false" json:"-"`
}

// BundleItem links a bundle to one competency item
type BundleItem struct {
	gorm.Model
	BundleID       uint   `gorm:"index;not null" json:"bundle_id"`
	CompetencyType string `gorm:"not null" json:"competency_type"`
	CompetencyID   uint   `gorm:"not null" json:"competency_id"`
	IsDeleted      bool   `gorm:"default:false" json:"-"`
}
