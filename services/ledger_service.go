package services

import (
	"strings"
	"time"

	"gorm.io/gorm"

	"account-dispenser/models"
)

const defaultLeaderboardSize = 10

// RequesterCount is one leaderboard row.
type RequesterCount struct {
	RequesterID string `json:"requester_id"`
	Grants      int64  `json:"grants"`
}

// LedgerService is the append-only grant history. Quota usage is read from here
// and nowhere else.
type LedgerService struct {
	DB       *gorm.DB
	location *time.Location
}

func NewLedgerService(db *gorm.DB, loc *time.Location) *LedgerService {
	if loc == nil {
		loc = time.UTC
	}
	return &LedgerService{DB: db, location: loc}
}

// Day returns the calendar-day key for t in the ledger's timezone.
func (s *LedgerService) Day(t time.Time) string {
	return t.In(s.location).Format(time.DateOnly)
}

// RecordGrant appends a grant outside of an allocation.
func (s *LedgerService) RecordGrant(requesterID, recordID, day string) error {
	if strings.TrimSpace(requesterID) == "" {
		return invalid("requester_id", "must not be empty")
	}
	if _, err := time.Parse(time.DateOnly, day); err != nil {
		return invalid("day", "must be YYYY-MM-DD")
	}
	return storageErr("record grant", recordGrant(s.DB, requesterID, recordID, day))
}

func recordGrant(tx *gorm.DB, requesterID, recordID, day string) error {
	return tx.Create(&models.Grant{
		RequesterID: requesterID,
		RecordID:    recordID,
		Day:         day,
	}).Error
}

func (s *LedgerService) CountGrantsToday(requesterID, day string) (int64, error) {
	n, err := countGrantsOn(s.DB, requesterID, day)
	if err != nil {
		return 0, storageErr("count grants", err)
	}
	return n, nil
}

func countGrantsOn(tx *gorm.DB, requesterID, day string) (int64, error) {
	var n int64
	err := tx.Model(&models.Grant{}).
		Where("requester_id = ? AND day = ?", requesterID, day).
		Count(&n).Error
	return n, err
}

func (s *LedgerService) CountGrantsTotal(requesterID string) (int64, error) {
	var n int64
	if err := s.DB.Model(&models.Grant{}).Where("requester_id = ?", requesterID).Count(&n).Error; err != nil {
		return 0, storageErr("count grants", err)
	}
	return n, nil
}

// TopRequesters ranks requesters by grants on day. Ties go to the lower requester id.
func (s *LedgerService) TopRequesters(day string, limit int) ([]RequesterCount, error) {
	if limit <= 0 {
		limit = defaultLeaderboardSize
	}
	rows := []RequesterCount{}
	err := s.DB.Model(&models.Grant{}).
		Select("requester_id, COUNT(*) AS grants").
		Where("day = ?", day).
		Group("requester_id").
		Order("grants DESC, requester_id ASC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, storageErr("top requesters", err)
	}
	return rows, nil
}

// GrantsForDay returns the day's grants in insertion order.
func (s *LedgerService) GrantsForDay(day string) ([]models.Grant, error) {
	var grants []models.Grant
	if err := s.DB.Where("day = ?", day).Order("id").Find(&grants).Error; err != nil {
		return nil, storageErr("grants for day", err)
	}
	return grants, nil
}

func (s *LedgerService) TotalGrants() (int64, error) {
	var n int64
	if err := s.DB.Model(&models.Grant{}).Count(&n).Error; err != nil {
		return 0, storageErr("count grants", err)
	}
	return n, nil
}
