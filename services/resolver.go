package services

import (
	"fmt"

	"comply/models"
	"comply/models/competency"

	"gorm.io/gorm"
)

// TargetSpec is the "assign to whom" criteria of an assignment request.
// Criteria combine with OR; an empty spec matches nobody, never everybody.
type TargetSpec struct {
	Users       []uint `json:"users"`
	Supervisors []uint `json:"supervisors"`
	Departments []uint `json:"departments"`
	Locations   []uint `json:"locations"`
	Specialties []uint `json:"specialties"`
}

// IsEmpty reports whether no criterion is populated
func (t TargetSpec) IsEmpty() bool {
	return len(t.Users) == 0 && len(t.Supervisors) == 0 && len(t.Departments) == 0 &&
		len(t.Locations) == 0 && len(t.Specialties) == 0
}

// ResolvedUser is a targeted clinician plus the competency items they already
// hold an active assignment for, so the assignment engine can skip duplicates
// without a per-item round-trip.
type ResolvedUser struct {
	User   models.User
	Linked map[string]bool // keyed "<type>:<item id>"
}

// HasActive reports whether the user already holds an active assignment for the item
func (r ResolvedUser) HasActive(competencyType string, competencyID uint) bool {
	return r.Linked[linkKey(competencyType, competencyID)]
}

func linkKey(competencyType string, competencyID uint) string {
	return fmt.Sprintf("%s:%d", competencyType, competencyID)
}

// ResolveTargets expands a targeting spec into the deduplicated set of
// clinician users in the given agency matching any populated criterion.
// Non-clinician roles are excluded.
func ResolveTargets(db *gorm.DB, spec TargetSpec, agencyID uint) ([]ResolvedUser, error) {
	if spec.IsEmpty() {
		return nil, nil
	}

	criteria := db.Where("1 = 0")
	if len(spec.Users) > 0 {
		criteria = criteria.Or("id IN ?", spec.Users)
	}
	if len(spec.Supervisors) > 0 {
		criteria = criteria.Or("supervisor_id IN ?", spec.Supervisors)
	}
	if len(spec.Departments) > 0 {
		criteria = criteria.Or("department_id IN ?", spec.Departments)
	}
	if len(spec.Locations) > 0 {
		criteria = criteria.Or("location_id IN ?", spec.Locations)
	}
	if len(spec.Specialties) > 0 {
		criteria = criteria.Or("specialty_id IN ?", spec.Specialties)
	}

	var users []models.User
	err := db.
		Where("agency_id = ? AND role = ? AND is_deleted = ?", agencyID, models.RoleClinician, false).
		Where(criteria).
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, nil
	}

	userIDs := make([]uint, len(users))
	for i, u := range users {
		userIDs[i] = u.ID
	}

	// One query for every active link across all competency types
	var links []competency.Assignment
	err = db.
		Select("user_id", "competency_type", "competency_id").
		Where("user_id IN ? AND active_key IS NOT NULL AND is_deleted = ?", userIDs, false).
		Find(&links).Error
	if err != nil {
		return nil, err
	}

	linkedByUser := make(map[uint]map[string]bool, len(users))
	for _, l := range links {
		if linkedByUser[l.UserID] == nil {
			linkedByUser[l.UserID] = make(map[string]bool)
		}
		linkedByUser[l.UserID][linkKey(l.CompetencyType, l.CompetencyID)] = true
	}

	resolved := make([]ResolvedUser, len(users))
	for i, u := range users {
		linked := linkedByUser[u.ID]
		if linked == nil {
			linked = make(map[string]bool)
		}
		resolved[i] = ResolvedUser{User: u, Linked: linked}
	}
	return resolved, nil
}
