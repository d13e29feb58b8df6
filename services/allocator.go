package services

import (
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"account-dispenser/metrics"
	"account-dispenser/models"
)

// Outcome is the terminal result of an allocation request.
type Outcome string

const (
	OutcomeSuccess       Outcome = "success"
	OutcomeQuotaExceeded Outcome = "quota_exceeded"
	OutcomeOutOfStock    Outcome = "out_of_stock"
)

// Allocation describes what a request got. Record is set only on success.
// Used counts today's grants including this one.
type Allocation struct {
	Outcome Outcome                  `json:"outcome"`
	Record  *models.CredentialRecord `json:"record,omitempty"`
	Limit   int                      `json:"limit"`
	Used    int64                    `json:"used"`
}

// Allocator hands out records. Quota read, candidate search, claim and ledger
// append happen in one exclusive unit per request.
type Allocator struct {
	pool      *PoolService
	ledger    *LedgerService
	referrals *ReferralService

	now     func() time.Time
	log     *zap.Logger
	metrics *metrics.DispenserMetrics
}

func NewAllocator(pool *PoolService, ledger *LedgerService, referrals *ReferralService, logger *zap.Logger, m *metrics.DispenserMetrics) *Allocator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Allocator{
		pool:      pool,
		ledger:    ledger,
		referrals: referrals,
		now:       time.Now,
		log:       logger.Named("allocator"),
		metrics:   m,
	}
}

// WithClock replaces the time source used for claim stamps and day keys.
func (a *Allocator) WithClock(now func() time.Time) *Allocator {
	a.now = now
	return a
}

// Allocate claims one available record tagged with category for requesterID,
// unless the requester's daily quota is spent or nothing matches. A lost claim
// race is retried here; callers only see the three outcomes or a storage error.
func (a *Allocator) Allocate(requesterID, category string, tier TierSignal) (Allocation, error) {
	if strings.TrimSpace(requesterID) == "" {
		return Allocation{}, invalid("requester_id", "must not be empty")
	}
	catKey := categoryKey(category)
	if catKey == "" {
		return Allocation{}, invalid("category", "must not be empty")
	}

	for attempt := 1; ; attempt++ {
		alloc, err := a.tryAllocate(requesterID, catKey, tier)
		if errors.Is(err, ErrAlreadyClaimed) {
			a.metrics.RecordConflict()
			a.log.Debug("claim conflict, retrying",
				zap.String("requester_id", requesterID),
				zap.String("category", catKey),
				zap.Int("attempt", attempt))
			continue
		}
		if err != nil {
			a.metrics.RecordAllocation("error")
			a.log.Error("allocation failed", zap.String("requester_id", requesterID), zap.Error(err))
			return Allocation{}, err
		}

		a.metrics.RecordAllocation(string(alloc.Outcome))
		fields := []zap.Field{
			zap.String("requester_id", requesterID),
			zap.String("category", catKey),
			zap.String("outcome", string(alloc.Outcome)),
			zap.Int64("used", alloc.Used),
			zap.Int("limit", alloc.Limit),
		}
		if alloc.Record != nil {
			fields = append(fields, zap.String("record_id", alloc.Record.ID))
		}
		a.log.Info("allocation", fields...)
		return alloc, nil
	}
}

func (a *Allocator) tryAllocate(requesterID, catKey string, tier TierSignal) (Allocation, error) {
	var alloc Allocation
	now := a.now()
	day := a.ledger.Day(now)

	err := a.pool.withExclusive(func(tx *gorm.DB) error {
		alloc = Allocation{}

		if err := lockRequester(tx, requesterID); err != nil {
			return err
		}

		bonus, err := hasBonus(tx, requesterID)
		if err != nil {
			return err
		}
		alloc.Limit = ComputeDailyLimit(tier.BoostCount, bonus, tier.IsStaff)

		alloc.Used, err = countGrantsOn(tx, requesterID, day)
		if err != nil {
			return err
		}
		if (QuotaStatus{Used: alloc.Used, Limit: alloc.Limit}).Exhausted() {
			alloc.Outcome = OutcomeQuotaExceeded
			return nil
		}

		rec, err := a.pool.findCandidate(tx, catKey)
		if err != nil {
			return err
		}
		if rec == nil {
			alloc.Outcome = OutcomeOutOfStock
			return nil
		}

		if err := claimRecord(tx, rec.ID, requesterID, now); err != nil {
			return err
		}
		if err := recordGrant(tx, requesterID, rec.ID, day); err != nil {
			return err
		}

		claimant := requesterID
		claimedAt := now
		rec.Status = models.RecordStatusClaimed
		rec.ClaimedBy = &claimant
		rec.ClaimedAt = &claimedAt

		alloc.Outcome = OutcomeSuccess
		alloc.Record = rec
		alloc.Used++
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrAlreadyClaimed) {
			return Allocation{}, err
		}
		return Allocation{}, storageErr("allocate", err)
	}
	return alloc, nil
}

// requesterLockSQL returns the statement that serializes one requester's
// allocations across service instances, or "" when the dialect has none.
// SQLite already allows a single writer.
func requesterLockSQL(dialect string) string {
	if dialect == "postgres" {
		return "SELECT pg_advisory_xact_lock(hashtext(?))"
	}
	return ""
}

// lockRequester takes the per-requester lock for the rest of tx.
func lockRequester(tx *gorm.DB, requesterID string) error {
	q := requesterLockSQL(tx.Dialector.Name())
	if q == "" {
		return nil
	}
	return tx.Exec(q, requesterID).Error
}

// QueryQuota reports today's usage and limit for requesterID.
func (a *Allocator) QueryQuota(requesterID string, tier TierSignal) (QuotaStatus, error) {
	if strings.TrimSpace(requesterID) == "" {
		return QuotaStatus{}, invalid("requester_id", "must not be empty")
	}
	bonus, err := a.referrals.HasBonus(requesterID)
	if err != nil {
		return QuotaStatus{}, err
	}
	used, err := a.ledger.CountGrantsToday(requesterID, a.ledger.Day(a.now()))
	if err != nil {
		return QuotaStatus{}, err
	}
	return QuotaStatus{Used: used, Limit: ComputeDailyLimit(tier.BoostCount, bonus, tier.IsStaff)}, nil
}

// Today is the ledger day key for the allocator's clock.
func (a *Allocator) Today() string {
	return a.ledger.Day(a.now())
}
