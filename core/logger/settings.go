package logger

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	coreconfig "github.com/m3rciful/nfcrelay/core/config"
)

const defaultMaxSizeMB = 50

// settings is the logging section of the config with defaults applied.
type settings struct {
	level     slog.Level
	format    logFormat
	order     []string
	profile   string
	sampleNum int
	sampleDen int

	file       string
	maxSizeMB  int
	maxBackups int
	maxAgeDays int
	compress   bool
}

func settingsFrom(cfg *coreconfig.Config) settings {
	s := settings{
		level:     slog.LevelInfo,
		format:    formatJSON,
		order:     keyOrder,
		profile:   "prod",
		sampleNum: 1,
		sampleDen: 50,
	}
	if cfg == nil {
		return s
	}
	lc := cfg.Logging

	if p := strings.ToLower(strings.TrimSpace(lc.Profile)); p != "" {
		s.profile = p
	}

	switch strings.ToLower(strings.TrimSpace(lc.Level)) {
	case "debug":
		s.level = slog.LevelDebug
	case "warn", "warning":
		s.level = slog.LevelWarn
	case "error":
		s.level = slog.LevelError
	}

	switch strings.ToLower(strings.TrimSpace(lc.Format)) {
	case "kv", "text", "pretty":
		s.format = formatKV
	case "json":
	default:
		if s.profile == "debug" || s.profile == "dev" {
			s.format = formatKV
		}
	}

	if raw := strings.TrimSpace(lc.KeysOrder); raw != "" && raw != "default" {
		var order []string
		for _, k := range strings.Split(raw, ",") {
			if k = strings.TrimSpace(k); k != "" {
				order = append(order, k)
			}
		}
		if len(order) > 0 {
			s.order = order
		}
	}

	if lc.DebugSample != "" {
		if num, den, ok := parseRatio(lc.DebugSample); ok {
			s.sampleNum, s.sampleDen = num, den
		}
	}

	if dir, name := strings.TrimSpace(lc.Dir), strings.TrimSpace(lc.BotFile); dir != "" && name != "" {
		s.file = filepath.Join(dir, name)
	}
	s.maxSizeMB = lc.MaxSizeMB
	if s.maxSizeMB <= 0 {
		s.maxSizeMB = defaultMaxSizeMB
	}
	s.maxBackups = lc.MaxBackups
	s.maxAgeDays = lc.MaxAgeDays
	s.compress = lc.Compress
	return s
}

// outputs always includes stdout and adds a rotating file when one is configured.
func (s settings) outputs() ([]io.Writer, []io.Closer) {
	if s.file == "" {
		return []io.Writer{os.Stdout}, nil
	}
	sink := &lumberjack.Logger{
		Filename:   s.file,
		MaxSize:    s.maxSizeMB,
		MaxBackups: s.maxBackups,
		MaxAge:     s.maxAgeDays,
		Compress:   s.compress,
		LocalTime:  true,
	}
	return []io.Writer{os.Stdout, sink}, []io.Closer{sink}
}
