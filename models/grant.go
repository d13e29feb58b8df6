package models

import "time"

// Grant is one successful allocation in the usage ledger. Rows are only ever appended.
type Grant struct {
	ID          uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	RequesterID string    `json:"requester_id" gorm:"not null;index:idx_grant_requester_day,priority:1"`
	RecordID    string    `json:"record_id" gorm:"type:varchar(36);not null;index"`
	Day         string    `json:"day" gorm:"type:varchar(10);not null;index:idx_grant_requester_day,priority:2;index"` // YYYY-MM-DD
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime"`
}
