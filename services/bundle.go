package services

import (
	"comply/models/competency"

	"gorm.io/gorm"
)

// Selection names one competency item in an assignment request
type Selection struct {
	CompetencyType string `json:"competency_type" validate:"required,oneof=EXAM MODULE SKILL_CHECKLIST POLICY DOCUMENT"`
	CompetencyID   uint   `json:"competency_id" validate:"required"`
}

// ResolvedItem is one competency item to assign, tagged with the bundle it
// came from. Items selected directly carry no bundle id.
type ResolvedItem struct {
	CompetencyType string
	CompetencyID   uint
	BundleID       *uint
}

// ExpandBundles merges explicit selections with the contents of the given
// bundles, deduplicated by (type, id). An item selected both directly and via
// a bundle keeps its direct form, so it is not tagged with bundle provenance.
func ExpandBundles(db *gorm.DB, selections []Selection, bundleIDs []uint, agencyID uint) ([]ResolvedItem, error) {
	seen := make(map[string]bool)
	var items []ResolvedItem

	for _, sel := range selections {
		key := linkKey(sel.CompetencyType, sel.CompetencyID)
		if seen[key] {
			continue
		}
		seen[key] = true
		items = append(items, ResolvedItem{
			CompetencyType: sel.CompetencyType,
			CompetencyID:   sel.CompetencyID,
		})
	}

	if len(bundleIDs) == 0 {
		return items, nil
	}

	var bundles []competency.Bundle
	err := db.
		Where("id IN ? AND (agency_id = ? OR agency_id IS NULL) AND is_deleted = ?", bundleIDs, agencyID, false).
		Find(&bundles).Error
	if err != nil {
		return nil, err
	}

	for _, b := range bundles {
		var bundleItems []competency.BundleItem
		if err := db.Where("bundle_id = ? AND is_deleted = ?", b.ID, false).Find(&bundleItems).Error; err != nil {
			return nil, err
		}
		bundleID := b.ID
		for _, bi := range bundleItems {
			key := linkKey(bi.CompetencyType, bi.CompetencyID)
			if seen[key] {
				continue
			}
			seen[key] = true
			items = append(items, ResolvedItem{
				CompetencyType: bi.CompetencyType,
				CompetencyID:   bi.CompetencyID,
				BundleID:       &bundleID,
			})
		}
	}

	return items, nil
}
