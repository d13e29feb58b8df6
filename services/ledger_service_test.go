package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerDayUsesLocation(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)
	ledger := NewLedgerService(nil, tokyo)

	late := time.Date(2024, 6, 1, 20, 0, 0, 0, time.UTC)
	assert.Equal(t, "2024-06-02", ledger.Day(late))
	assert.Equal(t, "2024-06-01", NewLedgerService(nil, nil).Day(late))
}

func TestTopRequestersOrdering(t *testing.T) {
	d, _ := newTestDispenser(t)
	ledger := d.Ledger
	day := "2024-06-01"

	for _, g := range []struct{ requester, record string }{
		{"carol", "r1"}, {"carol", "r2"},
		{"alice", "r3"}, {"alice", "r4"},
		{"bob", "r5"}, {"bob", "r6"}, {"bob", "r7"},
		{"dave", "r8"},
	} {
		require.NoError(t, ledger.RecordGrant(g.requester, g.record, day))
	}
	require.NoError(t, ledger.RecordGrant("erin", "r9", "2024-05-31"))

	top, err := ledger.TopRequesters(day, 3)
	require.NoError(t, err)
	assert.Equal(t, []RequesterCount{
		{RequesterID: "bob", Grants: 3},
		{RequesterID: "alice", Grants: 2},
		{RequesterID: "carol", Grants: 2},
	}, top)

	all, err := ledger.TopRequesters(day, 0)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	empty, err := ledger.TopRequesters("2023-01-01", 10)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestLedgerCounts(t *testing.T) {
	d, _ := newTestDispenser(t)
	ledger := d.Ledger
	require.NoError(t, ledger.RecordGrant("u1", "r1", "2024-06-01"))
	require.NoError(t, ledger.RecordGrant("u1", "r2", "2024-06-01"))
	require.NoError(t, ledger.RecordGrant("u1", "r3", "2024-06-02"))

	today, err := ledger.CountGrantsToday("u1", "2024-06-01")
	require.NoError(t, err)
	assert.Equal(t, int64(2), today)

	total, err := ledger.CountGrantsTotal("u1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)

	grants, err := ledger.GrantsForDay("2024-06-02")
	require.NoError(t, err)
	require.Len(t, grants, 1)
	assert.Equal(t, "r3", grants[0].RecordID)
}

func TestRecordGrantValidates(t *testing.T) {
	d, _ := newTestDispenser(t)
	var verr *ValidationError
	require.ErrorAs(t, d.Ledger.RecordGrant("", "r1", "2024-06-01"), &verr)
	require.ErrorAs(t, d.Ledger.RecordGrant("u1", "r1", "June 1st"), &verr)
}
