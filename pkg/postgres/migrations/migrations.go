package migrations

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/alchemix-finance/alchemist-indexer/internal/config"
	_202607101200_bootstrapCoreTables "github.com/alchemix-finance/alchemist-indexer/pkg/postgres/migrations/202607101200_bootstrapCoreTables"
	_202607101315_yieldTokens "github.com/alchemix-finance/alchemist-indexer/pkg/postgres/migrations/202607101315_yieldTokens"
	_202607101330_depositors "github.com/alchemix-finance/alchemist-indexer/pkg/postgres/migrations/202607101330_depositors"
	_202607141100_harvestEvents "github.com/alchemix-finance/alchemist-indexer/pkg/postgres/migrations/202607141100_harvestEvents"
	_202607141130_donateEvents "github.com/alchemix-finance/alchemist-indexer/pkg/postgres/migrations/202607141130_donateEvents"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ISqlMigration is one schema migration. Migrations run in registration
// order and are recorded in the migrations table so they apply exactly once.
type ISqlMigration interface {
	Up(db *sql.DB, grm *gorm.DB, cfg *config.Config) error
	GetName() string
}

type Migrator struct {
	Db           *sql.DB
	GDb          *gorm.DB
	Logger       *zap.Logger
	globalConfig *config.Config
}

func NewMigrator(db *sql.DB, gDb *gorm.DB, l *zap.Logger, cfg *config.Config) *Migrator {
	migrator := &Migrator{
		Db:           db,
		GDb:          gDb,
		Logger:       l,
		globalConfig: cfg,
	}
	migrator.initializeMigrationTable()
	return migrator
}

func (m *Migrator) initializeMigrationTable() {
	query := `
		create table if not exists migrations (
			name varchar(255) unique not null,
			created_at timestamp with time zone default current_timestamp,
			updated_at timestamp with time zone default null
		)`
	res := m.GDb.Exec(query)
	if res.Error != nil {
		m.Logger.Sugar().Fatalw("Failed to create migrations table", zap.Error(res.Error))
	}
}

func (m *Migrator) MigrateAll() error {
	migrations := []ISqlMigration{
		&_202607101200_bootstrapCoreTables.Migration{},
		&_202607101315_yieldTokens.Migration{},
		&_202607101330_depositors.Migration{},
		&_202607141100_harvestEvents.Migration{},
		&_202607141130_donateEvents.Migration{},
	}

	for _, migration := range migrations {
		if err := m.Migrate(migration); err != nil {
			return err
		}
	}
	return nil
}

func (m *Migrator) Migrate(migration ISqlMigration) error {
	name := migration.GetName()

	migrated, err := m.hasRunMigration(name)
	if err != nil {
		return err
	}
	if migrated {
		return nil
	}

	m.Logger.Sugar().Debugw("Running migration", zap.String("name", name))
	if err := migration.Up(m.Db, m.GDb, m.globalConfig); err != nil {
		m.Logger.Sugar().Errorw("Failed to run migration",
			zap.String("name", name),
			zap.Error(err),
		)
		return err
	}

	res := m.GDb.Exec(
		`insert into migrations (name, updated_at) values (?, ?)`,
		name, time.Now(),
	)
	if res.Error != nil {
		return fmt.Errorf("failed to record migration '%s': %w", name, res.Error)
	}
	return nil
}

func (m *Migrator) hasRunMigration(name string) (bool, error) {
	var count int64
	res := m.GDb.Raw(`select count(*) from migrations where name = ?`, name).Scan(&count)
	if res.Error != nil {
		return false, res.Error
	}
	return count > 0, nil
}
