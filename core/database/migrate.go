package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/m3rciful/nfcrelay/core/logger"
)

const (
	readyTimeout = 30 * time.Second
	previewLimit = 6
)

// migrationFile is one *.up.sql file and the version encoded in its name.
type migrationFile struct {
	name    string
	version uint64
}

// RunMigrations applies all up migrations from cfg.MigrationsDir. Relative
// directories are resolved against the working directory.
func RunMigrations(ctx context.Context, cfg Config) error {
	if err := WaitForPostgres(ctx, DSN(cfg), readyTimeout); err != nil {
		migFail(ctx, "db.migrate", err)
		return fmt.Errorf("database not ready: %w", err)
	}

	dir, err := filepath.Abs(cfg.MigrationsDir)
	if err != nil {
		migFail(ctx, "db.migrate", err)
		return fmt.Errorf("resolve migrations dir: %w", err)
	}
	files := scanMigrations(dir)
	logger.LogEvent(ctx, logger.MIG, slog.LevelDebug, "mig.resolve",
		append([]slog.Attr{slog.String("path", dir)}, previewAttrs(files)...)...)

	m, err := migrate.New("file://"+dir, URL(cfg))
	if err != nil {
		migFail(ctx, "mig.init", err)
		return fmt.Errorf("init migrations: %w", err)
	}
	defer func() { _, _ = m.Close() }()

	from := currentVersion(m)
	start := time.Now()
	upErr := m.Up()
	took := logger.RoundMS(time.Since(start))

	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		logger.LogEvent(ctx, logger.MIG, slog.LevelError, "mig.apply",
			slog.String("status", "fail"),
			slog.String("err", upErr.Error()),
			slog.Uint64("from_ver", from),
			slog.Duration("duration", took),
		)
		return fmt.Errorf("apply migrations: %w", upErr)
	}

	to := currentVersion(m)
	applied := between(files, from, to)
	if len(applied) > 0 {
		logger.LogEvent(ctx, logger.MIG, slog.LevelDebug, "mig.applied", previewAttrs(applied)...)
	}
	logger.LogEvent(ctx, logger.MIG, slog.LevelInfo, "mig.summary",
		slog.String("status", "ok"),
		slog.Uint64("from_ver", from),
		slog.Uint64("to_ver", to),
		slog.Int("files", len(applied)),
		slog.Duration("duration", took),
	)
	return nil
}

func migFail(ctx context.Context, event string, err error) {
	logger.LogEvent(ctx, logger.MIG, slog.LevelError, event,
		slog.String("status", "fail"),
		slog.String("err", err.Error()),
	)
}

// currentVersion reports 0 for a database that has never been migrated.
func currentVersion(m *migrate.Migrate) uint64 {
	v, _, err := m.Version()
	if err != nil {
		return 0
	}
	return uint64(v)
}

// scanMigrations lists up files in dir ordered by version. Unreadable
// directories yield nothing; migrate.New reports the real error.
func scanMigrations(dir string) []migrationFile {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var files []migrationFile
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".up.sql") {
			continue
		}
		files = append(files, migrationFile{name: e.Name(), version: versionOf(e.Name())})
	}
	sort.Slice(files, func(i, j int) bool {
		if files[i].version != files[j].version {
			return files[i].version < files[j].version
		}
		return files[i].name < files[j].name
	})
	return files
}

func versionOf(name string) uint64 {
	prefix, _, _ := strings.Cut(name, "_")
	v, _ := strconv.ParseUint(prefix, 10, 64)
	return v
}

// between returns files with from < version <= to.
func between(files []migrationFile, from, to uint64) []migrationFile {
	var out []migrationFile
	for _, f := range files {
		if f.version > from && f.version <= to {
			out = append(out, f)
		}
	}
	return out
}

func previewAttrs(files []migrationFile) []slog.Attr {
	attrs := []slog.Attr{slog.Int("files_total", len(files))}
	if len(files) == 0 {
		return attrs
	}
	shown := files
	if len(shown) > previewLimit {
		shown = shown[:previewLimit]
		attrs = append(attrs, slog.Bool("files_truncated", true))
	}
	names := make([]string, len(shown))
	for i, f := range shown {
		names[i] = f.name
	}
	return append(attrs, slog.String("files_preview", strings.Join(names, ",")))
}
