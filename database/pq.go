package database

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/sahilchouksey/catalog-api/config"
	"github.com/sahilchouksey/catalog-api/services/consistency"
)

// OrphanCount is the number of rows in one relation whose required parent
// row is missing
type OrphanCount struct {
	Relation string
	Count    int64
}

// AuditStore runs read-only integrity queries over plain database/sql.
// Foreign keys already reject dangling rows; the audit catches rows that got
// in while constraints were disabled (restores, manual fixes).
type AuditStore struct {
	db        *sql.DB
	relations []consistency.Relation
	log       zerolog.Logger
}

// StartAudit opens a lib/pq connection for the integrity audit
func StartAudit(logger zerolog.Logger) (*AuditStore, error) {
	getEnv, err := config.Get()
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("postgres", getEnv.DSN())
	if err != nil {
		logger.Error().Err(err).Msg("Unable to start PostgreSQL audit connection")
		return nil, err
	}
	db.SetMaxOpenConns(2)

	store, err := NewAuditStore(db, consistency.DefaultGraph(), logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	logger.Info().Int("relations", len(store.relations)).Msg("Connected to PostgreSQL for integrity audit")
	return store, nil
}

// NewAuditStore audits every relation of g over db
func NewAuditStore(db *sql.DB, g consistency.Graph, logger zerolog.Logger) (*AuditStore, error) {
	relations, err := g.Relations()
	if err != nil {
		return nil, err
	}
	return &AuditStore{db: db, relations: relations, log: logger}, nil
}

// CountOrphans returns one entry per relation, zero counts included
func (s *AuditStore) CountOrphans(ctx context.Context) ([]OrphanCount, error) {
	out := make([]OrphanCount, 0, len(s.relations))
	for _, r := range s.relations {
		// Identifiers come from the static graph, never from input
		query := fmt.Sprintf(
			`SELECT COUNT(*) FROM %s c LEFT JOIN %s p ON p.id = c.%s WHERE p.id IS NULL`,
			r.ChildTable, r.ParentTable, r.ForeignKey,
		)

		var n int64
		if err := s.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
			return nil, fmt.Errorf("count orphans in %s: %w", r.Name(), err)
		}
		if n > 0 {
			s.log.Warn().Str("relation", r.Name()).Int64("count", n).Msg("orphaned rows")
		}
		out = append(out, OrphanCount{Relation: r.Name(), Count: n})
	}
	return out, nil
}

func (s *AuditStore) Close() error {
	s.log.Info().Msg("Closing PostgreSQL audit connection")
	return s.db.Close()
}

// HealthCheck verifies the database connection is alive
func (s *AuditStore) HealthCheck() error {
	return s.db.Ping()
}
