package services

import (
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"account-dispenser/metrics"
	"account-dispenser/models"
)

// Dispenser wires the stores together and exposes the call contract used by
// the HTTP handlers, the CLI and the scheduler.
type Dispenser struct {
	Pool      *PoolService
	Ledger    *LedgerService
	Referrals *ReferralService
	Reports   *ReportService
	Allocator *Allocator

	log *zap.Logger
}

func NewDispenser(db *gorm.DB, loc *time.Location, logger *zap.Logger, m *metrics.DispenserMetrics) *Dispenser {
	if logger == nil {
		logger = zap.NewNop()
	}
	pool := NewPoolService(db, logger, m)
	ledger := NewLedgerService(db, loc)
	referrals := NewReferralService(db, logger, m)
	return &Dispenser{
		Pool:      pool,
		Ledger:    ledger,
		Referrals: referrals,
		Reports:   NewReportService(db),
		Allocator: NewAllocator(pool, ledger, referrals, logger, m),
		log:       logger,
	}
}

func (d *Dispenser) Allocate(requesterID, category string, tier TierSignal) (Allocation, error) {
	return d.Allocator.Allocate(requesterID, category, tier)
}

func (d *Dispenser) Ingest(entries []IngestEntry) (IngestResult, error) {
	return d.Pool.Ingest(entries)
}

func (d *Dispenser) CreateReferralCode(ownerID string) (string, error) {
	return d.Referrals.CreateCode(ownerID)
}

func (d *Dispenser) RedeemReferralCode(redeemerID, code string) error {
	return d.Referrals.RedeemCode(redeemerID, code)
}

func (d *Dispenser) QueryQuota(requesterID string, tier TierSignal) (QuotaStatus, error) {
	return d.Allocator.QueryQuota(requesterID, tier)
}

func (d *Dispenser) QueryStock(filter string) (StockReport, error) {
	return d.Pool.QueryStock(filter)
}

func (d *Dispenser) Restock() (int64, error) {
	return d.Pool.Restock()
}

func (d *Dispenser) FileReport(recordID, reporterID, reason string) (*models.Report, error) {
	return d.Reports.File(recordID, reporterID, reason)
}

// Leaderboard is today's top requesters.
func (d *Dispenser) Leaderboard(limit int) ([]RequesterCount, error) {
	return d.Ledger.TopRequesters(d.Allocator.Today(), limit)
}

// RequesterStats is the per-requester summary.
type RequesterStats struct {
	RequesterID   string `json:"requester_id"`
	GrantsToday   int64  `json:"grants_today"`
	GrantsTotal   int64  `json:"grants_total"`
	ReferralsMade int64  `json:"referrals_made"`
	ReferralCode  string `json:"referral_code,omitempty"`
	HasBonus      bool   `json:"has_referral_bonus"`
}

func (d *Dispenser) Stats(requesterID string) (RequesterStats, error) {
	stats := RequesterStats{RequesterID: requesterID}
	var err error
	if stats.GrantsToday, err = d.Ledger.CountGrantsToday(requesterID, d.Allocator.Today()); err != nil {
		return RequesterStats{}, err
	}
	if stats.GrantsTotal, err = d.Ledger.CountGrantsTotal(requesterID); err != nil {
		return RequesterStats{}, err
	}
	if stats.ReferralsMade, err = d.Referrals.CountReferrals(requesterID); err != nil {
		return RequesterStats{}, err
	}
	if stats.ReferralCode, _, err = d.Referrals.CodeFor(requesterID); err != nil {
		return RequesterStats{}, err
	}
	if stats.HasBonus, err = d.Referrals.HasBonus(requesterID); err != nil {
		return RequesterStats{}, err
	}
	return stats, nil
}

// GlobalStats is the staff overview.
type GlobalStats struct {
	Records   int64 `json:"records"`
	Available int64 `json:"available"`
	Claimed   int64 `json:"claimed"`
	Grants    int64 `json:"grants"`
	Reports   int64 `json:"reports"`
}

func (d *Dispenser) GlobalStats() (GlobalStats, error) {
	stock, err := d.Pool.QueryStock("")
	if err != nil {
		return GlobalStats{}, err
	}
	grants, err := d.Ledger.TotalGrants()
	if err != nil {
		return GlobalStats{}, err
	}
	reports, err := d.Reports.Total()
	if err != nil {
		return GlobalStats{}, err
	}
	return GlobalStats{
		Records:   stock.Total,
		Available: stock.Available,
		Claimed:   stock.Claimed,
		Grants:    grants,
		Reports:   reports,
	}, nil
}
