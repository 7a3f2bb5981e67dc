package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sahilchouksey/catalog-api/database"
	"github.com/sahilchouksey/catalog-api/model"
	"github.com/sahilchouksey/catalog-api/utils/testdb"
)

type stubAudit struct {
	counts []database.OrphanCount
	err    error
}

func (s stubAudit) CountOrphans(context.Context) ([]database.OrphanCount, error) {
	return s.counts, s.err
}

func newTestManager(t *testing.T, audit OrphanCounter) *CronManager {
	t.Helper()
	return NewCronManager(testdb.Open(t), audit, prometheus.NewRegistry(), zerolog.Nop())
}

func TestRunOrphanAuditPublishesGauges(t *testing.T) {
	m := newTestManager(t, stubAudit{counts: []database.OrphanCount{
		{Relation: "courses.faculty_id", Count: 2},
		{Relation: "faculties.curriculum_id", Count: 0},
	}})

	counts, err := m.RunOrphanAudit(context.Background())
	require.NoError(t, err)
	assert.Len(t, counts, 2)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.orphans.WithLabelValues("courses.faculty_id")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.orphans.WithLabelValues("faculties.curriculum_id")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues(jobOrphanAudit, "completed")))

	var entry model.CronJobLog
	require.NoError(t, m.db.Where("job_name = ?", jobOrphanAudit).First(&entry).Error)
	assert.Equal(t, "completed", entry.Status)
	assert.NotNil(t, entry.CompletedAt)
	assert.JSONEq(t, `{"courses.faculty_id":2}`, string(entry.Metadata))
}

func TestRunOrphanAuditRecordsFailure(t *testing.T) {
	m := newTestManager(t, stubAudit{err: errors.New("connection refused")})

	_, err := m.RunOrphanAudit(context.Background())
	require.Error(t, err)

	var entry model.CronJobLog
	require.NoError(t, m.db.Where("job_name = ?", jobOrphanAudit).First(&entry).Error)
	assert.Equal(t, "failed", entry.Status)
	assert.Contains(t, entry.ErrorMsg, "connection refused")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues(jobOrphanAudit, "failed")))
}

func TestPruneJobLogs(t *testing.T) {
	m := newTestManager(t, stubAudit{})
	now := time.Now().UTC()

	old := model.CronJobLog{JobName: jobOrphanAudit, Status: "completed", StartedAt: now.AddDate(0, 0, -40)}
	recent := model.CronJobLog{JobName: jobOrphanAudit, Status: "completed", StartedAt: now.AddDate(0, 0, -1)}
	require.NoError(t, m.db.Create(&old).Error)
	require.NoError(t, m.db.Create(&recent).Error)

	n, err := m.PruneJobLogs(context.Background(), now.Add(-jobLogRetention))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	var left []model.CronJobLog
	require.NoError(t, m.db.Order("id").Find(&left).Error)
	// the recent log plus the prune run itself
	require.Len(t, left, 2)
	assert.Equal(t, recent.ID, left[0].ID)
	assert.Equal(t, jobPruneJobLogs, left[1].JobName)
}

func TestStartRejectsBadSchedule(t *testing.T) {
	m := newTestManager(t, stubAudit{})
	require.Error(t, m.Start("not a schedule"))
}

func TestStartAndStop(t *testing.T) {
	m := newTestManager(t, stubAudit{})
	require.NoError(t, m.Start("0 */30 * * * *"))
	assert.Len(t, m.cron.Entries(), 2)
	m.Stop()
}
