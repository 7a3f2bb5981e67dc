// Command auditorphans runs the integrity audit once and exits non-zero when
// any relation has rows whose required parent is missing.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/sahilchouksey/catalog-api/config"
	"github.com/sahilchouksey/catalog-api/database"
)

func main() {
	// orphan warnings go to stderr, the report table to stdout
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.DateTime}).With().Timestamp().Logger()

	if err := config.LoadENV(); err != nil {
		logger.Warn().Msg(".env file not found, using system environment variables")
	}

	audit, err := database.StartAudit(logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer audit.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	counts, err := audit.CountOrphans(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("Audit failed")
	}

	var total int64
	for _, c := range counts {
		status := "ok"
		if c.Count > 0 {
			status = "ORPHANS"
		}
		fmt.Printf("%-40s %8d  %s\n", c.Relation, c.Count, status)
		total += c.Count
	}

	if total > 0 {
		fmt.Printf("\n%d orphaned rows found\n", total)
		audit.Close()
		os.Exit(1)
	}
	fmt.Println("\nNo orphaned rows")
}
