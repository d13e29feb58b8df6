package models

import "time"

// ReferralLink is the one code an owner hands out.
type ReferralLink struct {
	ID        uint      `json:"-" gorm:"primaryKey;autoIncrement"`
	OwnerID   string    `json:"owner_id" gorm:"uniqueIndex;not null"`
	Code      string    `json:"code" gorm:"uniqueIndex;not null;type:varchar(32)"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// ReferralRedemption marks that a redeemer used someone else's code.
// At most one row per redeemer; its presence grants the +1 daily bonus.
type ReferralRedemption struct {
	ID         uint      `json:"-" gorm:"primaryKey;autoIncrement"`
	RedeemerID string    `json:"redeemer_id" gorm:"uniqueIndex;not null"`
	Code       string    `json:"code" gorm:"index;not null;type:varchar(32)"`
	OwnerID    string    `json:"owner_id" gorm:"index;not null"` // code owner at redemption time
	CreatedAt  time.Time `json:"created_at" gorm:"autoCreateTime"`
}
