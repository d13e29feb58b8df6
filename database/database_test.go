package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"account-dispenser/models"
)

func TestOpenSQLiteMigratesSchema(t *testing.T) {
	db, err := Open("sqlite://"+filepath.Join(t.TempDir(), "dispenser.db"), nil)
	require.NoError(t, err)

	for _, table := range []any{
		&models.CredentialRecord{},
		&models.RecordCategory{},
		&models.Grant{},
		&models.ReferralLink{},
		&models.ReferralRedemption{},
		&models.Report{},
	} {
		assert.True(t, db.Migrator().HasTable(table))
	}
}
