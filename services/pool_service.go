package services

import (
	"errors"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"account-dispenser/metrics"
	"account-dispenser/models"
)

// IngestEntry is one already-split (secret, categories) pair.
type IngestEntry struct {
	Secret     string   `json:"secret" yaml:"secret"`
	Categories []string `json:"categories" yaml:"categories"`
}

type IngestResult struct {
	Added   int `json:"added"`
	Skipped int `json:"skipped"`
}

// CategoryStock is the available count for one tag.
type CategoryStock struct {
	Name      string `json:"name"`
	Slug      string `json:"slug"`
	Available int64  `json:"available"`
}

type StockReport struct {
	Filter     string          `json:"filter,omitempty"`
	Available  int64           `json:"available"`
	Claimed    int64           `json:"claimed"`
	Total      int64           `json:"total"`
	ByCategory []CategoryStock `json:"by_category"`
}

// PoolService owns the credential records. Every mutation of the pool runs
// under withExclusive, which is also what the allocator uses for claims.
type PoolService struct {
	DB *gorm.DB

	mu       sync.Mutex
	log      *zap.Logger
	metrics  *metrics.DispenserMetrics
	randIntN func(n int) int
}

func NewPoolService(db *gorm.DB, logger *zap.Logger, m *metrics.DispenserMetrics) *PoolService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PoolService{
		DB:       db,
		log:      logger.Named("pool"),
		metrics:  m,
		randIntN: rand.Intn,
	}
}

// withExclusive runs fn in one transaction while holding the pool lock.
// Claims, restocks, ingests and removals never interleave.
func (s *PoolService) withExclusive(fn func(tx *gorm.DB) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.DB.Transaction(fn)
}

// Ingest stores every valid entry as an available record. Malformed entries are
// skipped and counted; they never reject the rest of the batch.
func (s *PoolService) Ingest(entries []IngestEntry) (IngestResult, error) {
	var result IngestResult
	records := make([]models.CredentialRecord, 0, len(entries))
	for i, e := range entries {
		rec, err := newRecord(e)
		if err != nil {
			result.Skipped++
			s.log.Warn("skipping ingest entry", zap.Int("index", i), zap.Error(err))
			continue
		}
		records = append(records, rec)
	}

	if len(records) > 0 {
		err := s.withExclusive(func(tx *gorm.DB) error {
			return tx.CreateInBatches(&records, 100).Error
		})
		if err != nil {
			return IngestResult{}, storageErr("ingest", err)
		}
	}
	result.Added = len(records)

	s.metrics.RecordIngest(result.Added, result.Skipped)
	s.log.Info("📥 ingest complete", zap.Int("added", result.Added), zap.Int("skipped", result.Skipped))
	return result, nil
}

func newRecord(e IngestEntry) (models.CredentialRecord, error) {
	secret := strings.TrimSpace(e.Secret)
	if secret == "" {
		return models.CredentialRecord{}, invalid("secret", "must not be empty")
	}
	cats := normalizeCategories(e.Categories)
	if len(cats) == 0 {
		return models.CredentialRecord{}, invalid("categories", "at least one category is required")
	}

	id := uuid.NewString()
	for i := range cats {
		cats[i].RecordID = id
	}
	return models.CredentialRecord{
		ID:         id,
		Secret:     secret,
		Status:     models.RecordStatusAvailable,
		Categories: cats,
	}, nil
}

// FindCandidate previews which record a claim for category could receive.
// It does not reserve anything; only Allocate claims.
func (s *PoolService) FindCandidate(category string) (*models.CredentialRecord, error) {
	q := categoryKey(category)
	if q == "" {
		return nil, invalid("category", "must not be empty")
	}
	rec, err := s.findCandidate(s.DB, q)
	if err != nil {
		return nil, storageErr("find candidate", err)
	}
	return rec, nil
}

// findCandidate picks an available record with a tag whose key contains catKey,
// uniformly at random among the matches. Returns nil when nothing matches.
func (s *PoolService) findCandidate(tx *gorm.DB, catKey string) (*models.CredentialRecord, error) {
	matches := func() *gorm.DB {
		return tx.Model(&models.CredentialRecord{}).
			Where("status = ?", models.RecordStatusAvailable).
			Where(categoryMatchSQL, containsPattern(catKey))
	}

	var n int64
	if err := matches().Count(&n).Error; err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}

	var rec models.CredentialRecord
	err := matches().
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Order("id").
		Offset(s.randIntN(int(n))).
		Limit(1).
		Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// The match set shrank between count and fetch (another writer claimed it).
		return nil, ErrAlreadyClaimed
	}
	if err != nil {
		return nil, err
	}

	if err := tx.Where("record_id = ?", rec.ID).Order("id").Find(&rec.Categories).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

// claimRecord is the compare-and-swap Available → Claimed. Zero rows means the
// record was taken (or reset and retaken) by someone else.
func claimRecord(tx *gorm.DB, recordID, requesterID string, at time.Time) error {
	res := tx.Model(&models.CredentialRecord{}).
		Where("id = ? AND status = ?", recordID, models.RecordStatusAvailable).
		Updates(map[string]interface{}{
			"status":     models.RecordStatusClaimed,
			"claimed_by": requesterID,
			"claimed_at": at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrAlreadyClaimed
	}
	return nil
}

// Claim marks one specific record as claimed by requesterID. Allocation goes
// through the allocator; this is the administrative path for a known id.
func (s *PoolService) Claim(recordID, requesterID string) error {
	if strings.TrimSpace(recordID) == "" {
		return invalid("record_id", "must not be empty")
	}
	err := s.withExclusive(func(tx *gorm.DB) error {
		return claimRecord(tx, recordID, requesterID, time.Now())
	})
	if errors.Is(err, ErrAlreadyClaimed) {
		return err
	}
	return storageErr("claim", err)
}

// Restock returns every claimed record to the pool. The ledger is left alone.
func (s *PoolService) Restock() (int64, error) {
	var restored int64
	err := s.withExclusive(func(tx *gorm.DB) error {
		res := tx.Model(&models.CredentialRecord{}).
			Where("status = ?", models.RecordStatusClaimed).
			Updates(map[string]interface{}{
				"status":     models.RecordStatusAvailable,
				"claimed_by": nil,
				"claimed_at": nil,
			})
		restored = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return 0, storageErr("restock", err)
	}

	s.metrics.RecordRestock(restored)
	s.log.Info("♻️ restock complete", zap.Int64("restored", restored))
	return restored, nil
}

// RemoveRecord deletes a record and its tags. Removing an unknown id is not an error.
func (s *PoolService) RemoveRecord(recordID string) (int64, error) {
	var removed int64
	err := s.withExclusive(func(tx *gorm.DB) error {
		if err := tx.Where("record_id = ?", recordID).Delete(&models.RecordCategory{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", recordID).Delete(&models.CredentialRecord{})
		removed = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return 0, storageErr("remove record", err)
	}
	if removed > 0 {
		s.log.Info("🗑️ record removed", zap.String("record_id", recordID))
	}
	return removed, nil
}

// GetRecord loads a record with its tags.
func (s *PoolService) GetRecord(recordID string) (*models.CredentialRecord, error) {
	var rec models.CredentialRecord
	err := s.DB.Preload("Categories", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Where("id = ?", recordID).
		Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("get record", err)
	}
	return &rec, nil
}

// QueryStock counts records by status. A non-empty filter restricts the counts
// to records with a tag containing it.
func (s *PoolService) QueryStock(filter string) (StockReport, error) {
	report := StockReport{Filter: strings.TrimSpace(filter)}
	filterKey := categoryKey(filter)

	var rows []struct {
		Status models.RecordStatus
		N      int64
	}
	q := s.DB.Model(&models.CredentialRecord{}).Select("status, COUNT(*) AS n").Group("status")
	if filterKey != "" {
		q = q.Where(categoryMatchSQL, containsPattern(filterKey))
	}
	if err := q.Scan(&rows).Error; err != nil {
		return StockReport{}, storageErr("query stock", err)
	}
	for _, r := range rows {
		switch r.Status {
		case models.RecordStatusAvailable:
			report.Available = r.N
		case models.RecordStatusClaimed:
			report.Claimed = r.N
		}
		report.Total += r.N
	}

	byCategory, err := s.categoryStock(filterKey)
	if err != nil {
		return StockReport{}, err
	}
	report.ByCategory = byCategory
	return report, nil
}

// ListCategories returns every tag that still has available records.
func (s *PoolService) ListCategories() ([]CategoryStock, error) {
	return s.categoryStock("")
}

func (s *PoolService) categoryStock(filterKey string) ([]CategoryStock, error) {
	q := s.DB.Table("record_categories AS rc").
		Select("MIN(rc.slug) AS slug, MIN(rc.name) AS name, COUNT(*) AS available").
		Joins("JOIN credential_records cr ON cr.id = rc.record_id").
		Where("cr.status = ?", models.RecordStatusAvailable).
		Group("rc.match_key").
		Order("rc.match_key")
	if filterKey != "" {
		q = q.Where("rc.match_key LIKE ? ESCAPE '\\'", containsPattern(filterKey))
	}

	out := []CategoryStock{}
	if err := q.Scan(&out).Error; err != nil {
		return nil, storageErr("category stock", err)
	}
	return out, nil
}

// RefreshStockGauge publishes current pool counts to the metrics registry.
func (s *PoolService) RefreshStockGauge() error {
	report, err := s.QueryStock("")
	if err != nil {
		return err
	}
	s.metrics.SetStock(report.Available, report.Claimed)
	return nil
}
