package services

import (
	"time"

	"comply/models/competency"
)

// ExpiryDate maps an expiration policy and a completion date to the date the
// completed assignment lapses. ONE_TIME competencies never expire.
func ExpiryDate(expirationType string, completedOn time.Time) *time.Time {
	switch expirationType {
	case competency.ExpirationYearly:
		t := completedOn.AddDate(1, 0, 0)
		return &t
	case competency.ExpirationBiannual:
		t := completedOn.AddDate(2, 0, 0)
		return &t
	default: // ONE_TIME or unset
		return nil
	}
}
