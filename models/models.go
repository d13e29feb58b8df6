package models

import (
	"time"

	"gorm.io/gorm"
)

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// AutoMigrate creates or updates every table the dispenser owns.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&CredentialRecord{},
		&RecordCategory{},
		&Grant{},
		&ReferralLink{},
		&ReferralRedemption{},
		&Report{},
	)
}
