package database

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// AddIndexes adds the composite indexes behind the ordered list queries.
func AddIndexes(db *gorm.DB, log zerolog.Logger) error {
	indexes := []struct {
		table   string
		name    string
		columns []string
	}{
		// Lists filter by owner and order by creation time
		{"requirements", "idx_requirements_user_created", []string{"user_id", "created_at"}},
		{"tasks", "idx_tasks_requirement_created", []string{"requirement_id", "created_at"}},
	}

	for _, idx := range indexes {
		if db.Migrator().HasIndex(idx.table, idx.name) {
			log.Debug().Str("index", idx.name).Msg("index already exists, skipping")
			continue
		}

		stmt := fmt.Sprintf("CREATE INDEX %s ON %s (%s)", idx.name, idx.table, strings.Join(idx.columns, ", "))
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}
		log.Debug().Str("index", idx.name).Msg("created index")
	}

	return nil
}
