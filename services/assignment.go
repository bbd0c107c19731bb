package services

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"comply/models"
	"comply/models/competency"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// DetailOverrides are the optional per-request assignment details. Unset
// fields fall back to agency defaults, then item-version defaults.
type DetailOverrides struct {
	DueDate         *time.Time `json:"due_date"`
	AllowedAttempts *int       `json:"allowed_attempts" validate:"omitempty,gte=1"`
	ExpirationType  *string    `json:"expiration_type" validate:"omitempty,oneof=ONE_TIME YEARLY BIANNUAL"`
}

// AssignRequest is one bulk assignment request
type AssignRequest struct {
	AgencyID    uint
	InitiatorID uint
	Targets     TargetSpec
	Selections  []Selection
	BundleIDs   []uint
	Overrides   DetailOverrides
}

// AssignedItem describes one created assignment in a batch result
type AssignedItem struct {
	AssignmentID   uint   `json:"assignment_id"`
	UserID         uint   `json:"user_id"`
	CompetencyType string `json:"competency_type"`
	CompetencyID   uint   `json:"competency_id"`
	Title          string `json:"title"`
}

// FailedItem describes one (user, item) pair that was not assigned
type FailedItem struct {
	UserID         uint   `json:"user_id"`
	CompetencyType string `json:"competency_type"`
	CompetencyID   uint   `json:"competency_id"`
	Code           string `json:"code"`
	Message        string `json:"message"`
}

// NewAssignmentNotice aggregates every item newly assigned to one user for a
// single batched notification email
type NewAssignmentNotice struct {
	Email      string
	Name       string
	ItemTitles []string
}

// BatchResult is the explicit per-item outcome of a bulk assignment request.
// Partial failure is expected; failed pairs never abort their siblings.
type BatchResult struct {
	Succeeded []AssignedItem        `json:"succeeded"`
	Failed    []FailedItem          `json:"failed"`
	Notices   []NewAssignmentNotice `json:"-"`
}

// itemInfo carries the defaults an assignment inherits from its item version
type itemInfo struct {
	Title           string
	VersionID       uint
	AllowedAttempts int
	ExpirationType  string
}

// AssignCompetencies expands bundles, resolves targeted users and creates one
// assignment per (user, item) pair that does not already hold an active one.
// Pairs are processed concurrently; each failure is recorded in the result
// and logged, never propagated to siblings.
func AssignCompetencies(db *gorm.DB, req AssignRequest) (*BatchResult, error) {
	var agency models.Agency
	if err := db.Where("id = ? AND is_deleted = ?", req.AgencyID, false).First(&agency).Error; err != nil {
		return nil, ErrAgencyNotFound
	}

	items, err := ExpandBundles(db, req.Selections, req.BundleIDs, req.AgencyID)
	if err != nil {
		return nil, err
	}

	users, err := ResolveTargets(db, req.Targets, req.AgencyID)
	if err != nil {
		return nil, err
	}

	result := &BatchResult{}
	if len(items) == 0 || len(users) == 0 {
		return result, nil
	}

	infos := make(map[string]*itemInfo, len(items))
	for _, item := range items {
		info, err := lookupItem(db, item.CompetencyType, item.CompetencyID)
		if err != nil {
			continue // recorded per pair below
		}
		infos[linkKey(item.CompetencyType, item.CompetencyID)] = info
	}

	var mu sync.Mutex
	g := errgroup.Group{}
	g.SetLimit(10)

	for _, user := range users {
		for _, item := range items {
			user, item := user, item
			g.Go(func() error {
				info := infos[linkKey(item.CompetencyType, item.CompetencyID)]
				created, failed := createAssignment(db, agency, user, item, info, req.Overrides, req.InitiatorID)

				mu.Lock()
				defer mu.Unlock()
				if failed != nil {
					result.Failed = append(result.Failed, *failed)
				} else {
					result.Succeeded = append(result.Succeeded, *created)
				}
				return nil
			})
		}
	}
	g.Wait()

	if agency.NotifyNewAssignment {
		result.Notices = buildNotices(users, result.Succeeded)
	}
	return result, nil
}

// AssignCompetenciesATS is the ATS-facing variant: explicit user ids only,
// every selection is existence-validated up front, and every skipped pair is
// reported with a machine-readable code.
func AssignCompetenciesATS(db *gorm.DB, agencyID, initiatorID uint, userIDs []uint, selections []Selection) (*BatchResult, error) {
	var agency models.Agency
	if err := db.Where("id = ? AND is_deleted = ?", agencyID, false).First(&agency).Error; err != nil {
		return nil, ErrAgencyNotFound
	}

	users, err := ResolveTargets(db, TargetSpec{Users: userIDs}, agencyID)
	if err != nil {
		return nil, err
	}

	result := &BatchResult{}

	var validItems []ResolvedItem
	infos := make(map[string]*itemInfo, len(selections))
	for _, sel := range selections {
		info, err := lookupItem(db, sel.CompetencyType, sel.CompetencyID)
		if err != nil {
			for _, user := range users {
				result.Failed = append(result.Failed, FailedItem{
					UserID:         user.User.ID,
					CompetencyType: sel.CompetencyType,
					CompetencyID:   sel.CompetencyID,
					Code:           ErrCodeDoesNotExist,
					Message:        fmt.Sprintf("%s %d does not exist", sel.CompetencyType, sel.CompetencyID),
				})
			}
			continue
		}
		infos[linkKey(sel.CompetencyType, sel.CompetencyID)] = info
		validItems = append(validItems, ResolvedItem{CompetencyType: sel.CompetencyType, CompetencyID: sel.CompetencyID})
	}

	for _, user := range users {
		for _, item := range validItems {
			info := infos[linkKey(item.CompetencyType, item.CompetencyID)]
			created, failed := createAssignment(db, agency, user, item, info, DetailOverrides{}, initiatorID)
			if failed != nil {
				result.Failed = append(result.Failed, *failed)
			} else {
				result.Succeeded = append(result.Succeeded, *created)
			}
		}
	}

	if agency.NotifyNewAssignment {
		result.Notices = buildNotices(users, result.Succeeded)
	}
	return result, nil
}

// createAssignment creates one assignment for a (user, item) pair. The unique
// index on active_key is the dedup authority; the resolver's prefetched link
// set only saves the doomed insert.
func createAssignment(db *gorm.DB, agency models.Agency, user ResolvedUser, item ResolvedItem, info *itemInfo, ov DetailOverrides, initiatorID uint) (*AssignedItem, *FailedItem) {
	fail := func(code, message string) *FailedItem {
		return &FailedItem{
			UserID:         user.User.ID,
			CompetencyType: item.CompetencyType,
			CompetencyID:   item.CompetencyID,
			Code:           code,
			Message:        message,
		}
	}

	if info == nil {
		return nil, fail(ErrCodeDoesNotExist, fmt.Sprintf("%s %d does not exist", item.CompetencyType, item.CompetencyID))
	}
	if user.HasActive(item.CompetencyType, item.CompetencyID) {
		return nil, fail(ErrCodeAlreadyAssigned, "user already holds an active assignment for this item")
	}

	now := time.Now()
	activeKey := competency.BuildActiveKey(user.User.ID, item.CompetencyType, item.CompetencyID, agency.ID)

	assignment := competency.Assignment{
		UserID:          user.User.ID,
		AgencyID:        agency.ID,
		CompetencyType:  item.CompetencyType,
		CompetencyID:    item.CompetencyID,
		VersionID:       info.VersionID,
		BundleID:        item.BundleID,
		Status:          competency.InitialStatus(item.CompetencyType),
		DueDate:         resolveDueDate(ov.DueDate, agency, now),
		ExpirationType:  resolveExpiration(ov.ExpirationType, info.ExpirationType, agency.DefaultExpiration),
		AllowedAttempts: resolveAttempts(ov.AllowedAttempts, agency.DefaultAllowedAttempts, info.AllowedAttempts),
		AssignedOn:      now,
		ActiveKey:       &activeKey,
	}

	if err := db.Create(&assignment).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, fail(ErrCodeAlreadyAssigned, "user already holds an active assignment for this item")
		}
		log.Printf("[ASSIGN] Failed to create %s %d for user %d: %v", item.CompetencyType, item.CompetencyID, user.User.ID, err)
		return nil, fail(ErrCodeCreateFailed, err.Error())
	}

	LogEvent(db, models.UserLog{
		EventType:      models.LogEventAssigned,
		Description:    fmt.Sprintf("Assigned %s \"%s\"", strings.ToLower(item.CompetencyType), info.Title),
		CompetencyType: item.CompetencyType,
		CompetencyID:   item.CompetencyID,
		UserID:         user.User.ID,
		InitiatorID:    initiatorID,
		AssignmentID:   assignment.ID,
	})

	return &AssignedItem{
		AssignmentID:   assignment.ID,
		UserID:         user.User.ID,
		CompetencyType: item.CompetencyType,
		CompetencyID:   item.CompetencyID,
		Title:          info.Title,
	}, nil
}

// ItemTitle returns the display title of a competency item
func ItemTitle(db *gorm.DB, competencyType string, competencyID uint) (string, error) {
	info, err := lookupItem(db, competencyType, competencyID)
	if err != nil {
		return "", err
	}
	return info.Title, nil
}

// lookupItem resolves the title and version defaults of a competency item
func lookupItem(db *gorm.DB, competencyType string, competencyID uint) (*itemInfo, error) {
	switch competencyType {
	case competency.TypeExam:
		var exam competency.Exam
		if err := db.Where("id = ? AND is_deleted = ?", competencyID, false).First(&exam).Error; err != nil {
			return nil, err
		}
		var version competency.ExamVersion
		err := db.Where("exam_id = ? AND is_deleted = ?", exam.ID, false).
			Order("version_number desc").First(&version).Error
		if err != nil {
			return nil, err
		}
		return &itemInfo{
			Title:           exam.Title,
			VersionID:       version.ID,
			AllowedAttempts: version.AllowedAttempts,
			ExpirationType:  version.ExpirationType,
		}, nil

	case competency.TypeModule:
		var mod competency.ModuleDefinition
		if err := db.Where("id = ? AND is_deleted = ?", competencyID, false).First(&mod).Error; err != nil {
			return nil, err
		}
		return &itemInfo{Title: mod.Title, AllowedAttempts: mod.AllowedAttempts, ExpirationType: mod.ExpirationType}, nil

	case competency.TypeSkillChecklist:
		var sc competency.SkillChecklist
		if err := db.Where("id = ? AND is_deleted = ?", competencyID, false).First(&sc).Error; err != nil {
			return nil, err
		}
		return &itemInfo{Title: sc.Title, ExpirationType: sc.ExpirationType}, nil

	case competency.TypePolicy:
		var pol competency.Policy
		if err := db.Where("id = ? AND is_deleted = ?", competencyID, false).First(&pol).Error; err != nil {
			return nil, err
		}
		return &itemInfo{Title: pol.Title, ExpirationType: pol.ExpirationType}, nil

	case competency.TypeDocument:
		var doc competency.DocumentItem
		if err := db.Where("id = ? AND is_deleted = ?", competencyID, false).First(&doc).Error; err != nil {
			return nil, err
		}
		return &itemInfo{Title: doc.Title, ExpirationType: doc.ExpirationType}, nil
	}
	return nil, gorm.ErrRecordNotFound
}

// resolveDueDate: override, else agency default window, else now + 2 years
func resolveDueDate(override *time.Time, agency models.Agency, now time.Time) *time.Time {
	if override != nil {
		return override
	}
	if agency.DefaultDueDateDays > 0 {
		due := now.AddDate(0, 0, agency.DefaultDueDateDays)
		return &due
	}
	due := now.AddDate(2, 0, 0)
	return &due
}

// resolveAttempts: override, else agency default, else item-version default
func resolveAttempts(override *int, agencyDefault, versionDefault int) int {
	if override != nil && *override > 0 {
		return *override
	}
	if agencyDefault > 0 {
		return agencyDefault
	}
	if versionDefault > 0 {
		return versionDefault
	}
	return 1
}

// resolveExpiration: override, else item-version default, else agency default, else YEARLY
func resolveExpiration(override *string, versionDefault, agencyDefault string) string {
	if override != nil && *override != "" {
		return *override
	}
	if versionDefault != "" {
		return versionDefault
	}
	if agencyDefault != "" {
		return agencyDefault
	}
	return competency.ExpirationYearly
}

func buildNotices(users []ResolvedUser, succeeded []AssignedItem) []NewAssignmentNotice {
	titlesByUser := make(map[uint][]string)
	for _, item := range succeeded {
		titlesByUser[item.UserID] = append(titlesByUser[item.UserID], item.Title)
	}

	var notices []NewAssignmentNotice
	for _, user := range users {
		titles := titlesByUser[user.User.ID]
		if len(titles) == 0 {
			continue
		}
		notices = append(notices, NewAssignmentNotice{
			Email:      user.User.Email,
			Name:       user.User.FirstName,
			ItemTitles: titles,
		})
	}
	return notices
}

// isUniqueViolation reports whether the insert hit the active_key unique
// index (postgres 23505 or sqlite UNIQUE constraint text)
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint")
}
