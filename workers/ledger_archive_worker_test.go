package workers

import (
	"context"
	"encoding/csv"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"account-dispenser/database"
	"account-dispenser/models"
	"account-dispenser/services"
)

type memoryUploader struct {
	objects map[string][]byte
	err     error
}

func (m *memoryUploader) PutObject(_ context.Context, key string, body []byte, _ string) error {
	if m.err != nil {
		return m.err
	}
	if m.objects == nil {
		m.objects = map[string][]byte{}
	}
	m.objects[key] = body
	return nil
}

func setupLedger(t *testing.T) *services.LedgerService {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "archive.db"), nil)
	require.NoError(t, err)
	require.NoError(t, models.AutoMigrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return services.NewLedgerService(db, time.UTC)
}

func TestArchivePreviousDay(t *testing.T) {
	ledger := setupLedger(t)
	require.NoError(t, ledger.RecordGrant("u1", "rec-1", "2024-05-31"))
	require.NoError(t, ledger.RecordGrant("u2", "rec-2", "2024-05-31"))
	require.NoError(t, ledger.RecordGrant("u1", "rec-3", "2024-06-01"))

	up := &memoryUploader{}
	w := NewLedgerArchiveWorker(ledger, up, "ledger", nil)
	w.now = func() time.Time { return time.Date(2024, 6, 1, 0, 5, 0, 0, time.UTC) }

	require.NoError(t, w.ArchivePreviousDay(context.Background()))
	body, ok := up.objects["ledger/2024-05-31.csv"]
	require.True(t, ok)

	rows, err := csv.NewReader(strings.NewReader(string(body))).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"id", "requester_id", "record_id", "day", "created_at"}, rows[0])
	assert.Equal(t, "u1", rows[1][1])
	assert.Equal(t, "rec-2", rows[2][2])
}

func TestArchiveDayEmptyStillUploadsHeader(t *testing.T) {
	up := &memoryUploader{}
	w := NewLedgerArchiveWorker(setupLedger(t), up, "ledger", nil)

	n, err := w.ArchiveDay(context.Background(), "2024-01-01")
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, "id,requester_id,record_id,day,created_at\n", string(up.objects["ledger/2024-01-01.csv"]))
}

func TestArchiveUploadFailure(t *testing.T) {
	up := &memoryUploader{err: errors.New("r2 down")}
	w := NewLedgerArchiveWorker(setupLedger(t), up, "ledger", nil)
	require.Error(t, w.ArchivePreviousDay(context.Background()))
}
