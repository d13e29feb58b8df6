package services

import (
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"account-dispenser/models"
)

const maxReportReason = 500

// RecordReportCount is the number of open reports against one record.
type RecordReportCount struct {
	RecordID string `json:"record_id"`
	Reports  int64  `json:"reports"`
}

// ReportService keeps moderation flags. It never touches the pool.
type ReportService struct {
	DB *gorm.DB
}

func NewReportService(db *gorm.DB) *ReportService {
	return &ReportService{DB: db}
}

func (s *ReportService) File(recordID, reporterID, reason string) (*models.Report, error) {
	recordID = strings.TrimSpace(recordID)
	reporterID = strings.TrimSpace(reporterID)
	if recordID == "" {
		return nil, invalid("record_id", "must not be empty")
	}
	if reporterID == "" {
		return nil, invalid("reporter_id", "must not be empty")
	}

	reason = strings.TrimSpace(reason)
	if utf8.RuneCountInString(reason) > maxReportReason {
		reason = string([]rune(reason)[:maxReportReason])
	}

	report := &models.Report{RecordID: recordID, ReporterID: reporterID, Reason: reason}
	if err := s.DB.Create(report).Error; err != nil {
		return nil, storageErr("file report", err)
	}
	return report, nil
}

// ListGroupedByRecord returns report counts per record, most reported first.
func (s *ReportService) ListGroupedByRecord() ([]RecordReportCount, error) {
	rows := []RecordReportCount{}
	err := s.DB.Model(&models.Report{}).
		Select("record_id, COUNT(*) AS reports").
		Group("record_id").
		Order("reports DESC, record_id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, storageErr("list reports", err)
	}
	return rows, nil
}

// ForRecord lists the individual reports against one record.
func (s *ReportService) ForRecord(recordID string) ([]models.Report, error) {
	var reports []models.Report
	if err := s.DB.Where("record_id = ?", recordID).Order("id").Find(&reports).Error; err != nil {
		return nil, storageErr("list reports", err)
	}
	return reports, nil
}

func (s *ReportService) Clear(recordID string) (int64, error) {
	res := s.DB.Where("record_id = ?", recordID).Delete(&models.Report{})
	if res.Error != nil {
		return 0, storageErr("clear reports", res.Error)
	}
	return res.RowsAffected, nil
}

func (s *ReportService) ClearAll() (int64, error) {
	res := s.DB.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.Report{})
	if res.Error != nil {
		return 0, storageErr("clear reports", res.Error)
	}
	return res.RowsAffected, nil
}

func (s *ReportService) Total() (int64, error) {
	var n int64
	if err := s.DB.Model(&models.Report{}).Count(&n).Error; err != nil {
		return 0, storageErr("count reports", err)
	}
	return n, nil
}
