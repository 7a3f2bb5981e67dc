package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/sahilchouksey/catalog-api/database"
	"github.com/sahilchouksey/catalog-api/model"
)

// RunOrphanAudit counts rows that lost their required parent and publishes
// the counts as gauges. A non-zero count means rows got in while foreign keys
// were not enforced, e.g. through a restore or a manual fix.
func (m *CronManager) RunOrphanAudit(ctx context.Context) ([]database.OrphanCount, error) {
	entry := m.logJobStart(jobOrphanAudit)

	counts, err := m.audit.CountOrphans(ctx)
	if err != nil {
		m.logJobError(entry, fmt.Errorf("failed to count orphans: %w", err))
		return nil, err
	}

	var total int64
	found := make(map[string]int64)
	for _, c := range counts {
		m.orphans.WithLabelValues(c.Relation).Set(float64(c.Count))
		if c.Count > 0 {
			total += c.Count
			found[c.Relation] = c.Count
			m.log.Warn().Str("relation", c.Relation).Int64("rows", c.Count).Msg("orphaned rows found")
		}
	}

	m.logJobComplete(entry, fmt.Sprintf("Checked %d relations, %d orphaned rows", len(counts), total), found)
	return counts, nil
}

// PruneJobLogs removes job logs that started before cutoff
func (m *CronManager) PruneJobLogs(ctx context.Context, cutoff time.Time) (int64, error) {
	entry := m.logJobStart(jobPruneJobLogs)

	res := m.db.WithContext(ctx).
		Where("started_at < ?", cutoff).
		Delete(&model.CronJobLog{})
	if res.Error != nil {
		m.logJobError(entry, fmt.Errorf("failed to prune job logs: %w", res.Error))
		return 0, res.Error
	}

	m.logJobComplete(entry, fmt.Sprintf("Removed %d job logs", res.RowsAffected), nil)
	return res.RowsAffected, nil
}
