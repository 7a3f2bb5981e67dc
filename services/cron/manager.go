package cron

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/sahilchouksey/catalog-api/database"
	"github.com/sahilchouksey/catalog-api/model"
	"gorm.io/gorm"
)

const (
	jobOrphanAudit   = "orphan_audit"
	jobPruneJobLogs  = "prune_job_logs"
	pruneSchedule    = "0 0 3 * * *"
	jobLogRetention  = 30 * 24 * time.Hour
	orphanAuditLimit = 5 * time.Minute
)

// OrphanCounter reports rows whose required parent is missing
type OrphanCounter interface {
	CountOrphans(ctx context.Context) ([]database.OrphanCount, error)
}

// CronManager manages all scheduled cron jobs
type CronManager struct {
	cron    *cron.Cron
	db      *gorm.DB
	audit   OrphanCounter
	log     zerolog.Logger
	orphans *prometheus.GaugeVec
	runs    *prometheus.CounterVec
}

// NewCronManager creates a new cron manager. Metrics are registered on reg.
func NewCronManager(db *gorm.DB, audit OrphanCounter, reg prometheus.Registerer, logger zerolog.Logger) *CronManager {
	f := promauto.With(reg)
	return &CronManager{
		// Create cron with seconds precision
		cron:  cron.New(cron.WithSeconds()),
		db:    db,
		audit: audit,
		log:   logger.With().Str("component", "cron").Logger(),
		orphans: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "catalog_orphan_rows",
			Help: "Rows whose required parent row is missing, per relation, as of the last audit",
		}, []string{"relation"}),
		runs: f.NewCounterVec(prometheus.CounterOpts{
			Name: "catalog_cron_runs_total",
			Help: "Scheduled job runs by job and status",
		}, []string{"job", "status"}),
	}
}

// Start registers all jobs and starts the scheduler. auditSchedule uses the
// six-field (seconds first) cron syntax.
func (m *CronManager) Start(auditSchedule string) error {
	m.log.Info().Msg("Starting cron jobs...")

	if err := m.registerJobs(auditSchedule); err != nil {
		return err
	}

	m.cron.Start()

	m.log.Info().Int("jobs", len(m.cron.Entries())).Msg("Cron jobs started successfully")
	return nil
}

// Stop stops the scheduler and waits for running jobs
func (m *CronManager) Stop() {
	m.log.Info().Msg("Stopping cron jobs...")
	ctx := m.cron.Stop()
	<-ctx.Done()
	m.log.Info().Msg("Cron jobs stopped")
}

// registerJobs registers all cron jobs with their schedules
func (m *CronManager) registerJobs(auditSchedule string) error {
	_, err := m.cron.AddFunc(auditSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), orphanAuditLimit)
		defer cancel()
		_, _ = m.RunOrphanAudit(ctx)
	})
	if err != nil {
		return fmt.Errorf("invalid audit schedule %q: %w", auditSchedule, err)
	}

	// Daily at 3 AM: drop old job logs
	_, err = m.cron.AddFunc(pruneSchedule, func() {
		_, _ = m.PruneJobLogs(context.Background(), time.Now().Add(-jobLogRetention))
	})
	return err
}

// logJobStart records the start of a job run and returns its log row
func (m *CronManager) logJobStart(jobName string) *model.CronJobLog {
	m.log.Debug().Str("job", jobName).Msg("starting job")

	entry := &model.CronJobLog{
		JobName:   jobName,
		Status:    "running",
		StartedAt: time.Now().UTC(),
	}
	if err := m.db.Create(entry).Error; err != nil {
		m.log.Warn().Err(err).Str("job", jobName).Msg("failed to record job start")
	}
	return entry
}

// logJobComplete marks a job run as completed
func (m *CronManager) logJobComplete(entry *model.CronJobLog, message string, metadata any) {
	m.finish(entry, "completed", message, "", metadata)
	m.log.Info().Str("job", entry.JobName).Int64("duration_ms", entry.Duration).Msg(message)
}

// logJobError marks a job run as failed
func (m *CronManager) logJobError(entry *model.CronJobLog, err error) {
	m.finish(entry, "failed", "", err.Error(), nil)
	m.log.Error().Err(err).Str("job", entry.JobName).Msg("job failed")
}

func (m *CronManager) finish(entry *model.CronJobLog, status, message, errMsg string, metadata any) {
	now := time.Now().UTC()
	entry.Status = status
	entry.CompletedAt = &now
	entry.Duration = now.Sub(entry.StartedAt).Milliseconds()
	entry.Message = message
	entry.ErrorMsg = errMsg
	if metadata != nil {
		if raw, err := json.Marshal(metadata); err == nil {
			entry.Metadata = raw
		}
	}
	m.runs.WithLabelValues(entry.JobName, status).Inc()

	if entry.ID == 0 {
		return
	}
	if err := m.db.Save(entry).Error; err != nil {
		m.log.Warn().Err(err).Str("job", entry.JobName).Msg("failed to record job result")
	}
}
