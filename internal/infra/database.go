package infra

import (
	"fmt"
	"time"

	"cashpos/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase opens a GORM connection for driver ("postgres" or "sqlite"),
// runs AutoMigrate for the register, session and ledger tables, then applies
// the idempotent SQL patches GORM cannot express (partial indexes, CHECKs).
func NewDatabase(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres", "":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if driver == "sqlite" {
		// One writer at a time; also keeps a :memory: database alive on a single connection.
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(5)
	}

	if err := RunMigrations(db); err != nil {
		return nil, err
	}
	return db, nil
}

// RunMigrations creates or updates the schema. Safe to run on every start.
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.Register{},
		&model.Session{},
		&model.LedgerEvent{},
	); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	if err := applySchemaPatches(db); err != nil {
		return fmt.Errorf("schema patches: %w", err)
	}
	return nil
}

// applySchemaPatches runs idempotent DDL statements that GORM AutoMigrate cannot
// handle on its own. Each statement uses IF NOT EXISTS semantics so re-running
// on an already-patched DB is safe.
func applySchemaPatches(db *gorm.DB) error {
	patches := []struct {
		descr        string
		sql          string
		postgresOnly bool
	}{
		// storage-level backstop for the one-open-session rule
		{"one open session per register", `
CREATE UNIQUE INDEX IF NOT EXISTS ux_sessions_one_open
    ON cash_sessions (register_id)
    WHERE state = 'OPEN'`, false},
		{"ledger event ordering", `
CREATE INDEX IF NOT EXISTS idx_ledger_order
    ON ledger_events (register_id, occurred_at, id)`, false},
		{"ledger amount is a magnitude", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_ledger_amount_non_negative') THEN
    ALTER TABLE ledger_events
      ADD CONSTRAINT chk_ledger_amount_non_negative CHECK (amount_cents >= 0);
  END IF;
END $$`, true},
		{"session state domain", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_sessions_state') THEN
    ALTER TABLE cash_sessions
      ADD CONSTRAINT chk_sessions_state CHECK (state IN ('OPEN', 'CLOSED'));
  END IF;
END $$`, true},
	}

	isPostgres := db.Dialector.Name() == "postgres"
	for _, p := range patches {
		if p.postgresOnly && !isPostgres {
			continue
		}
		if err := db.Exec(p.sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", p.descr, err)
		}
	}
	return nil
}
