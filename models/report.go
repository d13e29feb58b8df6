package models

import "time"

// Report is a moderation flag against a record. Many per record.
type Report struct {
	ID         uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	RecordID   string    `json:"record_id" gorm:"type:varchar(36);not null;index"`
	ReporterID string    `json:"reporter_id" gorm:"not null"`
	Reason     string    `json:"reason" gorm:"type:text"`
	CreatedAt  time.Time `json:"created_at" gorm:"autoCreateTime"`
}
