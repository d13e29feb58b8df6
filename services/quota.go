package services

// UnlimitedQuota is the daily limit reported for staff.
const UnlimitedQuota = -1

// TierSignal is the externally resolved standing of a requester.
type TierSignal struct {
	BoostCount int  `json:"boost_count"`
	IsStaff    bool `json:"is_staff"`
}

// ComputeDailyLimit maps a requester's tier and referral state to the number
// of records they may claim per day. It has no inputs besides its arguments.
//
//	no boost → 2, one boost → 4, two or more → 6, referral bonus → +1, staff → unlimited
func ComputeDailyLimit(boostCount int, hasReferralBonus bool, isStaff bool) int {
	if isStaff {
		return UnlimitedQuota
	}

	var limit int
	switch {
	case boostCount >= 2:
		limit = 6
	case boostCount == 1:
		limit = 4
	default:
		limit = 2
	}

	if hasReferralBonus {
		limit++
	}
	return limit
}

// QuotaStatus is a requester's usage for the current day.
type QuotaStatus struct {
	Used  int64 `json:"used"`
	Limit int   `json:"limit"`
}

func (q QuotaStatus) Unlimited() bool { return q.Limit == UnlimitedQuota }

// Remaining returns -1 when unlimited.
func (q QuotaStatus) Remaining() int64 {
	if q.Unlimited() {
		return -1
	}
	if r := int64(q.Limit) - q.Used; r > 0 {
		return r
	}
	return 0
}

// Exhausted reports whether another claim today would exceed the limit.
func (q QuotaStatus) Exhausted() bool {
	return !q.Unlimited() && q.Used >= int64(q.Limit)
}

// TierPerk is one row of the published perk table.
type TierPerk struct {
	Tier  string `json:"tier"`
	Limit int    `json:"limit"`
}

// QuotaTable lists the daily limits per tier as shown to requesters.
func QuotaTable() []TierPerk {
	return []TierPerk{
		{Tier: "No boost", Limit: ComputeDailyLimit(0, false, false)},
		{Tier: "1 boost", Limit: ComputeDailyLimit(1, false, false)},
		{Tier: "2+ boosts", Limit: ComputeDailyLimit(2, false, false)},
		{Tier: "Referral bonus", Limit: ComputeDailyLimit(0, true, false) - ComputeDailyLimit(0, false, false)},
	}
}
