// Package cmd provides common initialization functions for the automation
// binaries.
package cmd

import (
	"context"
	"log/slog"
	"strings"

	"github.com/richcrm/automation/pkg/persistence"
	"github.com/richcrm/automation/pkg/persistence/file"
	"github.com/richcrm/automation/pkg/persistence/postgresql"
)

// NewPersistence creates the persistence layer selected by the database
// URL scheme: postgres://... uses PostgreSQL, anything else is treated as
// a file path.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) persistence.Persistence {
	switch parseProvider(databaseURL) {
	case "postgres", "postgresql":
		store, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			panic(err)
		}

		return store
	default:
		return file.NewPersistence(databaseURL)
	}
}

func parseProvider(databaseURL string) string {
	parts := strings.SplitN(databaseURL, "://", 2)
	if len(parts) < 2 {
		return "file"
	}

	return parts[0]
}
