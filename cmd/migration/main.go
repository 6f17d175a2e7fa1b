package main

import (
	"context"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/riskibarqy/sportsdata-producer/db/migrations"
	"github.com/riskibarqy/sportsdata-producer/internal/platform/logging"
	"github.com/riskibarqy/sportsdata-producer/internal/schema"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(2)
	}

	logger := logging.NewJSON(logging.ParseLevel(os.Getenv("LOG_LEVEL")))
	logging.SetDefault(logger)
	defer func() { _ = logger.Sync() }()

	if err := run(logger, strings.ToLower(strings.TrimSpace(os.Args[1])), os.Args[2:]); err != nil {
		logger.Error("migration command failed", "command", os.Args[1], "error", err)
		_ = logger.Sync()
		os.Exit(1)
	}
}

var commands = map[string]bool{
	"up":          true,
	"down":        true,
	"version":     true,
	"force":       true,
	"goto":        true,
	"migrate":     true,
	"verify":      true,
	"verify-live": true,
}

func run(logger *logging.Logger, cmd string, args []string) error {
	if !commands[cmd] {
		printUsage()
		return fmt.Errorf("unknown command %q", cmd)
	}

	source, sourceName, err := resolveMigrationsSource()
	if err != nil {
		return fmt.Errorf("resolve migrations dir: %w", err)
	}

	if cmd == "verify" {
		return verifyStatic(logger, source, sourceName)
	}

	dbURL := strings.TrimSpace(os.Getenv("DB_URL"))
	if dbURL == "" {
		dbURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	}
	if dbURL == "" {
		return fmt.Errorf("DB_URL is required")
	}
	dbURL = normalizeDBURL(dbURL)

	runner, err := schema.NewRunner(source, ".", dbURL, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := runner.Close(); err != nil {
			logger.Warn("close migrator", "error", err)
		}
	}()

	switch cmd {
	case "up":
		changed, err := runner.Up()
		if err != nil {
			return err
		}
		logger.Info("migrations applied", "source", sourceName, "changed", changed)
	case "down":
		if len(args) > 0 && strings.EqualFold(strings.TrimSpace(args[0]), "all") {
			if !envBool("MIGRATION_ALLOW_DOWN_ALL") {
				return fmt.Errorf("down all requires MIGRATION_ALLOW_DOWN_ALL=true")
			}
			if _, err := runner.DownAll(); err != nil {
				return err
			}
			logger.Info("rolled back all migrations")
			return nil
		}
		steps, err := parseSteps(args)
		if err != nil {
			return err
		}
		if _, err := runner.Down(steps); err != nil {
			return err
		}
		logger.Info("rolled back migrations", "steps", steps)
	case "version":
		version, dirty, ok, err := runner.Version()
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("version: none")
			fmt.Println("dirty: false")
			return nil
		}
		fmt.Printf("version: %d\n", version)
		fmt.Printf("dirty: %t\n", dirty)
	case "force":
		if len(args) < 1 {
			return fmt.Errorf("force requires a version argument")
		}
		version, err := parseVersion(args[0])
		if err != nil {
			return err
		}
		if err := runner.Force(version); err != nil {
			return err
		}
		logger.Info("forced version", "version", version)
	case "goto", "migrate":
		if len(args) < 1 {
			return fmt.Errorf("goto requires a target version argument")
		}
		target, err := parseTarget(args[0])
		if err != nil {
			return err
		}
		if _, err := runner.Goto(target); err != nil {
			return err
		}
		logger.Info("migrated to version", "version", target)
	case "verify-live":
		if _, err := runner.Up(); err != nil {
			return err
		}
		return verifyLive(logger, source, dbURL)
	default:
		printUsage()
		return fmt.Errorf("unknown command %q", cmd)
	}
	return nil
}

func verifyStatic(logger *logging.Logger, source fs.FS, sourceName string) error {
	set, err := schema.Load(source, ".")
	if err != nil {
		return err
	}
	report := schema.Verify(set, schema.DefaultRules())
	if err := report.Err(); err != nil {
		return err
	}
	logger.Info("schema verified",
		"source", sourceName,
		"migrations", report.Migrations,
		"latest_version", set.Latest(),
		"tables", len(report.Catalog.Tables()),
		"indexes", len(report.Catalog.Indexes()),
	)
	return nil
}

func verifyLive(logger *logging.Logger, source fs.FS, dbURL string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	set, err := schema.Load(source, ".")
	if err != nil {
		return err
	}
	want, err := set.Catalog()
	if err != nil {
		return err
	}

	db, err := sqlx.ConnectContext(ctx, "postgres", dbURL)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer db.Close()

	got, err := schema.NewInspector(db, envOr("DB_SCHEMA", "public")).Snapshot(ctx)
	if err != nil {
		return err
	}
	if diff := schema.Diff(want, got); len(diff) > 0 {
		return fmt.Errorf("live schema differs from migrations:\n%s", strings.Join(diff, "\n"))
	}
	if findings := schema.CheckCatalog(got, schema.DefaultRules()); len(findings) > 0 {
		return schema.Report{Findings: findings}.Err()
	}
	logger.Info("live schema matches migrations", "tables", len(got.Tables()), "indexes", len(got.Indexes()))
	return nil
}

func parseSteps(args []string) (int, error) {
	if len(args) == 0 {
		return 1, nil
	}

	steps, err := strconv.Atoi(strings.TrimSpace(args[0]))
	if err != nil {
		return 0, fmt.Errorf("invalid down steps %q: %w", args[0], err)
	}
	if steps <= 0 {
		return 0, fmt.Errorf("down steps must be > 0")
	}

	return steps, nil
}

func parseVersion(raw string) (int, error) {
	value, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid version %q: %w", raw, err)
	}
	if value < -1 {
		return 0, fmt.Errorf("version must be >= -1")
	}
	if value > int64(^uint(0)>>1) {
		return 0, fmt.Errorf("version is too large for this platform")
	}

	return int(value), nil
}

func parseTarget(raw string) (uint, error) {
	value, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid target version %q: %w", raw, err)
	}
	return uint(value), nil
}

// resolveMigrationsSource prefers an on-disk override so scripts can be
// hot-fixed without a rebuild, and falls back to the embedded set.
func resolveMigrationsSource() (fs.FS, string, error) {
	for _, key := range []string{"MIGRATIONS_DIR", "MIGRATIONS_PATH"} {
		candidate := strings.TrimSpace(os.Getenv(key))
		if candidate == "" {
			continue
		}
		abs, err := filepath.Abs(candidate)
		if err != nil {
			return nil, "", fmt.Errorf("%s: %w", key, err)
		}
		info, err := os.Stat(abs)
		if err != nil || !info.IsDir() {
			return nil, "", fmt.Errorf("%s=%q is not a directory", key, candidate)
		}
		return os.DirFS(abs), "file://" + filepath.ToSlash(abs), nil
	}
	return migrations.FS, "embedded", nil
}

func normalizeDBURL(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil || parsed == nil || parsed.Scheme == "" {
		return raw
	}

	query := parsed.Query()
	if query.Get("application_name") == "" {
		query.Set("application_name", envOr("MIGRATION_APPLICATION_NAME", "sportsdata-migration"))
		parsed.RawQuery = query.Encode()
	}

	return parsed.String()
}

func envBool(key string) bool {
	value := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	switch value {
	case "1", "true", "t", "yes", "y", "on":
		return true
	default:
		return false
	}
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func printUsage() {
	name := filepath.Base(os.Args[0])
	fmt.Fprintf(os.Stderr, "usage: %s <up|down|version|force|goto|verify|verify-live> [args]\n", name)
	fmt.Fprintln(os.Stderr, "examples:")
	fmt.Fprintf(os.Stderr, "  %s up\n", name)
	fmt.Fprintf(os.Stderr, "  %s down 1\n", name)
	fmt.Fprintf(os.Stderr, "  %s down all\n", name)
	fmt.Fprintf(os.Stderr, "  %s version\n", name)
	fmt.Fprintf(os.Stderr, "  %s force 12\n", name)
	fmt.Fprintf(os.Stderr, "  %s goto 8\n", name)
	fmt.Fprintf(os.Stderr, "  %s verify\n", name)
	fmt.Fprintf(os.Stderr, "  %s verify-live\n", name)
}
