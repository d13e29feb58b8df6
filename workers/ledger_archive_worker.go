// workers/ledger_archive_worker.go
package workers

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"path"
	"strconv"
	"time"

	"go.uber.org/zap"

	"account-dispenser/services"
)

// ObjectUploader stores an archive object.
type ObjectUploader interface {
	PutObject(ctx context.Context, key string, body []byte, contentType string) error
}

// LedgerArchiveWorker copies each finished day of the grant ledger to object storage as CSV.
type LedgerArchiveWorker struct {
	ledger   *services.LedgerService
	uploader ObjectUploader
	prefix   string
	now      func() time.Time
	log      *zap.Logger
}

func NewLedgerArchiveWorker(ledger *services.LedgerService, uploader ObjectUploader, prefix string, logger *zap.Logger) *LedgerArchiveWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LedgerArchiveWorker{
		ledger:   ledger,
		uploader: uploader,
		prefix:   prefix,
		now:      time.Now,
		log:      logger.Named("archive"),
	}
}

// ArchivePreviousDay uploads yesterday's grants. Meant for the nightly scheduler slot.
func (w *LedgerArchiveWorker) ArchivePreviousDay(ctx context.Context) error {
	day := w.ledger.Day(w.now().AddDate(0, 0, -1))
	n, err := w.ArchiveDay(ctx, day)
	if err != nil {
		w.log.Error("❌ ledger archive failed", zap.String("day", day), zap.Error(err))
		return err
	}
	w.log.Info("📦 ledger archived", zap.String("day", day), zap.Int("grants", n))
	return nil
}

// ArchiveDay writes the grants of day to <prefix>/<day>.csv and returns how many were written.
func (w *LedgerArchiveWorker) ArchiveDay(ctx context.Context, day string) (int, error) {
	grants, err := w.ledger.GrantsForDay(day)
	if err != nil {
		return 0, err
	}

	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	if err := cw.Write([]string{"id", "requester_id", "record_id", "day", "created_at"}); err != nil {
		return 0, err
	}
	for _, g := range grants {
		if err := cw.Write([]string{
			strconv.FormatUint(uint64(g.ID), 10),
			g.RequesterID,
			g.RecordID,
			g.Day,
			g.CreatedAt.UTC().Format(time.RFC3339),
		}); err != nil {
			return 0, err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return 0, fmt.Errorf("encode ledger csv: %w", err)
	}

	key := path.Join(w.prefix, day+".csv")
	if err := w.uploader.PutObject(ctx, key, buf.Bytes(), "text/csv"); err != nil {
		return 0, err
	}
	return len(grants), nil
}
