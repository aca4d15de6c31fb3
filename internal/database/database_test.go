package database

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/consultant-worklog/internal/config"
	"github.com/yukikurage/consultant-worklog/internal/models"
)

func TestDialector(t *testing.T) {
	for driver, name := range map[string]string{
		config.DriverMySQL:    "mysql",
		config.DriverPostgres: "postgres",
		config.DriverSQLite:   "sqlite",
	} {
		d, err := Dialector(config.DBConfig{Driver: driver, Host: "db", Port: "1", Name: "worklog", Path: ":memory:"})
		require.NoError(t, err)
		assert.Equal(t, name, d.Name())
	}

	_, err := Dialector(config.DBConfig{Driver: "oracle"})
	assert.Error(t, err)
}

func TestConnectAndMigrateSQLite(t *testing.T) {
	cfg := config.DBConfig{Driver: config.DriverSQLite, Path: filepath.Join(t.TempDir(), "worklog.db")}

	db, err := Connect(cfg, false, zerolog.Nop())
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, Migrate(db, zerolog.Nop()))
	// Running again must skip the existing indexes.
	require.NoError(t, Migrate(db, zerolog.Nop()))

	assert.True(t, db.Migrator().HasTable(&models.Requirement{}))
	assert.True(t, db.Migrator().HasTable(&models.Task{}))
	assert.True(t, db.Migrator().HasIndex("tasks", "idx_tasks_requirement_created"))
	assert.True(t, db.Migrator().HasIndex("requirements", "idx_requirements_user_created"))
}
