package admin

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/catalog-api/database"
	"github.com/sahilchouksey/catalog-api/model"
	"github.com/sahilchouksey/catalog-api/utils/response"
)

// OrphanAuditor runs the integrity audit on demand; cron.CronManager implements it
type OrphanAuditor interface {
	RunOrphanAudit(ctx context.Context) ([]database.OrphanCount, error)
}

// ListJobLogs retrieves scheduled job runs with pagination
// GET /admin/job-logs
func ListJobLogs(c *fiber.Ctx, store database.Storage) error {
	db := store.GetDB().WithContext(c.UserContext())

	pagination := response.Page(c, 20)

	query := db.Model(&model.CronJobLog{})
	if job := c.Query("job"); job != "" {
		query = query.Where("job_name = ?", job)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return response.InternalServerError(c, "Failed to count job logs")
	}

	var logs []model.CronJobLog
	if err := query.Offset(pagination.Offset()).Limit(pagination.PerPage).Order("started_at DESC").Find(&logs).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch job logs")
	}

	return response.Paginated(c, logs, response.CalculatePagination(pagination.CurrentPage, pagination.PerPage, total))
}

// RunOrphanAudit returns a handler for POST /admin/audit/orphans
func RunOrphanAudit(auditor OrphanAuditor) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if auditor == nil {
			return response.ServiceUnavailable(c, "Integrity audit is not configured")
		}

		counts, err := auditor.RunOrphanAudit(c.UserContext())
		if err != nil {
			return response.ServiceUnavailable(c, "Integrity audit failed")
		}

		var total int64
		for _, oc := range counts {
			total += oc.Count
		}
		return response.Success(c, fiber.Map{
			"relations": counts,
			"orphans":   total,
		})
	}
}
