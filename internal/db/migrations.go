package db

import (
	"cmp"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	embeddedmigrations "github.com/terraincognita07/actiontracker/migrations"
	"gorm.io/gorm"
)

var migrationFilePattern = regexp.MustCompile(`^(\d+)_.*\.sql$`)

var ErrMigrationChecksumMismatch = errors.New("applied migration was modified")

type embeddedMigration struct {
	Version  string
	Order    int
	Name     string
	SQL      string
	Checksum string
}

// schemaMigration is one bookkeeping row; an empty checksum predates checksum tracking.
type schemaMigration struct {
	Version   string    `gorm:"column:version;primaryKey"`
	Name      string    `gorm:"column:name"`
	Checksum  string    `gorm:"column:checksum"`
	AppliedAt time.Time `gorm:"column:applied_at"`
}

func (schemaMigration) TableName() string {
	return "schema_migrations"
}

type migrator struct {
	database *gorm.DB
	files    fs.FS
	logger   logrus.FieldLogger
	now      func() time.Time
}

func applyEmbeddedMigrations(database *gorm.DB, logger logrus.FieldLogger) error {
	runner := migrator{database: database, files: embeddedmigrations.Files, logger: logger, now: time.Now}
	applied, err := runner.run()
	if err != nil {
		return err
	}
	if applied > 0 {
		logger.WithField("applied", applied).Info("schema is up to date")
	}
	return nil
}

// run applies every pending migration in version order and returns how many ran.
func (runner migrator) run() (int, error) {
	if err := runner.ensureBookkeeping(); err != nil {
		return 0, err
	}

	pending, err := loadEmbeddedMigrations(runner.files)
	if err != nil {
		return 0, err
	}

	recorded := make([]schemaMigration, 0)
	if err := runner.database.Find(&recorded).Error; err != nil {
		return 0, fmt.Errorf("load applied migrations: %w", err)
	}
	checksums := make(map[string]string, len(recorded))
	for _, row := range recorded {
		checksums[row.Version] = row.Checksum
	}

	applied := 0
	for _, migration := range pending {
		if checksum, done := checksums[migration.Version]; done {
			if checksum != "" && checksum != migration.Checksum {
				return applied, fmt.Errorf("%w: %s", ErrMigrationChecksumMismatch, migration.Name)
			}
			continue
		}

		if err := runner.apply(migration); err != nil {
			return applied, err
		}
		runner.logger.WithField("migration", migration.Name).Info("applied schema migration")
		applied++
	}
	return applied, nil
}

func (runner migrator) ensureBookkeeping() error {
	const createTableSQL = `
CREATE TABLE IF NOT EXISTS schema_migrations (
  version TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  checksum TEXT NOT NULL DEFAULT '',
  applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);`
	if err := runner.database.Exec(createTableSQL).Error; err != nil {
		return fmt.Errorf("create schema_migrations table: %w", err)
	}
	return nil
}

func (runner migrator) apply(migration embeddedMigration) error {
	statements := splitSQLStatements(migration.SQL)
	if len(statements) == 0 {
		return fmt.Errorf("migration %s has no SQL statements", migration.Name)
	}

	return runner.database.Transaction(func(tx *gorm.DB) error {
		for index, statement := range statements {
			if err := tx.Exec(statement).Error; err != nil {
				return fmt.Errorf("migration %s statement %d: %w", migration.Name, index+1, err)
			}
		}

		row := schemaMigration{
			Version:   migration.Version,
			Name:      migration.Name,
			Checksum:  migration.Checksum,
			AppliedAt: runner.now().UTC(),
		}
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("record migration %s: %w", migration.Name, err)
		}
		return nil
	})
}

// loadEmbeddedMigrations reads NNNN_name.sql files, ignoring anything else, and orders
// them by numeric version.
func loadEmbeddedMigrations(files fs.FS) ([]embeddedMigration, error) {
	entries, err := fs.ReadDir(files, ".")
	if err != nil {
		return nil, fmt.Errorf("read embedded migrations: %w", err)
	}

	migrations := make([]embeddedMigration, 0, len(entries))
	owners := make(map[string]string, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		fileName := entry.Name()
		matches := migrationFilePattern.FindStringSubmatch(fileName)
		if matches == nil {
			continue
		}

		version := matches[1]
		if owner, taken := owners[version]; taken {
			return nil, fmt.Errorf("duplicate migration version %s in %s and %s", version, owner, fileName)
		}
		owners[version] = fileName

		order, err := strconv.Atoi(version)
		if err != nil {
			return nil, fmt.Errorf("migration version in %s: %w", fileName, err)
		}
		rawSQL, err := fs.ReadFile(files, fileName)
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", fileName, err)
		}
		digest := sha256.Sum256(rawSQL)

		migrations = append(migrations, embeddedMigration{
			Version:  version,
			Order:    order,
			Name:     fileName,
			SQL:      string(rawSQL),
			Checksum: hex.EncodeToString(digest[:]),
		})
	}

	slices.SortFunc(migrations, func(left, right embeddedMigration) int {
		return cmp.Or(cmp.Compare(left.Order, right.Order), strings.Compare(left.Name, right.Name))
	})
	return migrations, nil
}

// splitSQLStatements drops "--" comment lines before splitting on semicolons, so
// migrations must not put semicolons inside string literals.
func splitSQLStatements(sqlText string) []string {
	var body strings.Builder
	for line := range strings.Lines(sqlText) {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		body.WriteString(line)
	}

	statements := make([]string, 0)
	for part := range strings.SplitSeq(body.String(), ";") {
		if statement := strings.TrimSpace(part); statement != "" {
			statements = append(statements, statement)
		}
	}
	return statements
}
