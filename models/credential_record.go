package models

import "time"

// RecordStatus is the claim state of a credential record.
type RecordStatus string

const (
	RecordStatusAvailable RecordStatus = "available"
	RecordStatusClaimed   RecordStatus = "claimed"
)

// CredentialRecord is one single-use secret in the pool.
// Available → Claimed happens only through the allocator; Claimed → Available only through a restock.
type CredentialRecord struct {
	ID     string       `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Secret string       `json:"secret" gorm:"type:text;not null"`
	Status RecordStatus `json:"status" gorm:"type:varchar(16);not null;default:'available';index"`

	// 🏷️ Tags
	Categories []RecordCategory `json:"categories" gorm:"foreignKey:RecordID;constraint:OnDelete:CASCADE"`

	// Claim info (nil while available)
	ClaimedBy *string    `json:"claimed_by,omitempty" gorm:"index"`
	ClaimedAt *time.Time `json:"claimed_at,omitempty"`

	Timestamps
}

// CategoryNames returns the display names of the record's tags.
func (r *CredentialRecord) CategoryNames() []string {
	names := make([]string, 0, len(r.Categories))
	for _, c := range r.Categories {
		names = append(names, c.Name)
	}
	return names
}

// RecordCategory is a single category tag of a record. MatchKey is the
// case-folded form searches run against; Name keeps the tag as it was
// ingested and Slug is its URL label.
type RecordCategory struct {
	ID       uint   `json:"-" gorm:"primaryKey;autoIncrement"`
	RecordID string `json:"-" gorm:"type:varchar(36);not null;uniqueIndex:idx_record_category"`
	Name     string `json:"name" gorm:"not null"`
	MatchKey string `json:"-" gorm:"not null;index;uniqueIndex:idx_record_category"`
	Slug     string `json:"slug" gorm:"not null;index"`
}
