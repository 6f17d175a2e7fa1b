package schema

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/riskibarqy/sportsdata-producer/internal/platform/logging"
)

// Runner applies the migration set to a live database through golang-migrate.
type Runner struct {
	m      *migrate.Migrate
	logger *logging.Logger
}

// NewRunner opens a migrator for dbURL reading scripts from dir inside fsys.
// Pass migrations.FS with "." for the embedded set.
func NewRunner(fsys fs.FS, dir, dbURL string, logger *logging.Logger) (*Runner, error) {
	if strings.TrimSpace(dbURL) == "" {
		return nil, fmt.Errorf("database url is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	src, err := iofs.New(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("open migration source: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, dbURL)
	if err != nil {
		_ = src.Close()
		return nil, fmt.Errorf("create migrator: %w", err)
	}
	m.Log = migrateLogger{logger: logger}

	return &Runner{m: m, logger: logger}, nil
}

// Up applies every pending migration. It reports false when nothing changed.
func (r *Runner) Up() (bool, error) {
	return r.changed(r.m.Up())
}

// Down rolls back n applied migrations.
func (r *Runner) Down(n int) (bool, error) {
	if n <= 0 {
		return false, fmt.Errorf("down steps must be > 0")
	}
	return r.Steps(-n)
}

// DownAll rolls back every applied migration.
func (r *Runner) DownAll() (bool, error) {
	return r.changed(r.m.Down())
}

func (r *Runner) Steps(n int) (bool, error) {
	return r.changed(r.m.Steps(n))
}

func (r *Runner) Goto(version uint) (bool, error) {
	return r.changed(r.m.Migrate(version))
}

// Force records version as applied and clears the dirty flag without running
// any script. -1 means no version.
func (r *Runner) Force(version int) error {
	if err := r.m.Force(version); err != nil {
		return fmt.Errorf("force version %d: %w", version, err)
	}
	return nil
}

// Version returns the applied version. ok is false on a fresh database.
func (r *Runner) Version() (version uint, dirty bool, ok bool, err error) {
	version, dirty, err = r.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, false, nil
	}
	if err != nil {
		return 0, false, false, fmt.Errorf("read version: %w", err)
	}
	return version, dirty, true, nil
}

func (r *Runner) Close() error {
	srcErr, dbErr := r.m.Close()
	if srcErr != nil {
		return fmt.Errorf("close migration source: %w", srcErr)
	}
	if dbErr != nil {
		return fmt.Errorf("close migration db: %w", dbErr)
	}
	return nil
}

func (r *Runner) changed(err error) (bool, error) {
	if err == nil {
		return true, nil
	}
	if errors.Is(err, migrate.ErrNoChange) {
		r.logger.Info("no migration changes")
		return false, nil
	}
	return false, err
}

type migrateLogger struct {
	logger *logging.Logger
}

func (l migrateLogger) Printf(format string, v ...any) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l migrateLogger) Verbose() bool {
	return false
}
