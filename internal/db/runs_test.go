package db

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thesavant42/sqlihunter/internal/models"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	database, err := New(filepath.Join(t.TempDir(), "ledger", "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return database
}

func intPtr(i int) *int       { return &i }
func strPtr(s string) *string { return &s }
func ts(sec int64) time.Time  { return time.Unix(sec, 0).UTC() }

func TestRecordRun_RoundTrip(t *testing.T) {
	database := openTestDB(t)

	records := []models.CDXRecord{
		{URL: "http://x.com/a?id=1", Domain: "x.com", Timestamp: "20200101000000", StatusCode: intPtr(200), MimeType: strPtr("text/html"), FetchedAt: ts(100)},
		{URL: "http://x.com/a?id=1#frag", Domain: "x.com", Timestamp: "20200102000000", FetchedAt: ts(100)},
		{URL: "http://x.com/b", Domain: "x.com", FetchedAt: ts(100)},
	}
	run := &models.ScanRun{
		Domain:      "x.com",
		StartedAt:   ts(1000),
		OutputDir:   "out/output_x.com_1000000",
		RawFile:     "out/output_x.com_1000000/raw_urls.txt",
		CleanedFile: "out/output_x.com_1000000/cleaned_urls.txt",
		RawCount:    3,
		CleanCount:  1,
		Command:     "sqlmap -m out/output_x.com_1000000/cleaned_urls.txt --batch --level 5 --risk 3 --dbs",
		Status:      models.RunCompleted,
	}

	require.NoError(t, database.RecordRun(run, records, []string{"http://x.com/a?id=1"}))
	require.NotZero(t, run.ID)

	runs, err := database.GetScanRuns(models.RunFilter{})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	got := runs[0]
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, "x.com", got.Domain)
	assert.True(t, got.StartedAt.Equal(run.StartedAt))
	assert.Equal(t, run.Command, got.Command)
	assert.Equal(t, models.RunCompleted, got.Status)
	assert.False(t, got.Executed)

	all, err := database.GetRunRecords(run.ID, false)
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.NotNil(t, all[0].StatusCode)
	assert.Equal(t, 200, *all[0].StatusCode)
	assert.Nil(t, all[2].MimeType)

	clean, err := database.GetRunRecords(run.ID, true)
	require.NoError(t, err)
	assert.Len(t, clean, 2, "fragment variants of a cleaned URL are flagged clean")
}

func TestGetScanRuns_Filters(t *testing.T) {
	database := openTestDB(t)

	for i, r := range []models.ScanRun{
		{Domain: "a.com", StartedAt: ts(1), Status: models.RunCompleted, CleanCount: 4},
		{Domain: "b.com", StartedAt: ts(2), Status: models.RunFetchFailed, Error: "503"},
		{Domain: "a.com", StartedAt: ts(3), Status: models.RunEmpty},
	} {
		run := r
		require.NoError(t, database.RecordRun(&run, nil, nil), i)
	}

	byDomain, err := database.GetScanRuns(models.RunFilter{Domain: "a.com"})
	require.NoError(t, err)
	require.Len(t, byDomain, 2)
	assert.Equal(t, models.RunEmpty, byDomain[0].Status, "newest first")

	failed, err := database.GetScanRuns(models.RunFilter{Status: models.RunFetchFailed})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "503", failed[0].Error)

	limited, err := database.GetScanRuns(models.RunFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	stats, err := database.GetDomainRunStats("")
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, "a.com", stats[0].Domain)
	assert.Equal(t, 2, stats[0].RunCount)
	assert.Equal(t, 4, stats[0].TotalClean)

	onlyB, err := database.GetDomainRunStats("b.com")
	require.NoError(t, err)
	require.Len(t, onlyB, 1)
	assert.Equal(t, "b.com", onlyB[0].Domain)
	assert.Equal(t, 1, onlyB[0].RunCount)
}

func TestDeleteScanRun_CascadesRecords(t *testing.T) {
	database := openTestDB(t)

	run := &models.ScanRun{Domain: "x.com", StartedAt: ts(1), Status: models.RunCompleted}
	require.NoError(t, database.RecordRun(run, []models.CDXRecord{{URL: "http://x.com/?a=1", Domain: "x.com", FetchedAt: ts(1)}}, nil))

	require.NoError(t, database.DeleteScanRun(run.ID))

	runs, err := database.GetScanRuns(models.RunFilter{})
	require.NoError(t, err)
	assert.Empty(t, runs)

	records, err := database.GetRunRecords(run.ID, false)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestParseTimestamp(t *testing.T) {
	got, err := parseTimestamp("2024-05-06T07:08:09Z")
	require.NoError(t, err)
	assert.Equal(t, 2024, got.Year())

	_, err = parseTimestamp("yesterday")
	assert.Error(t, err)
}
