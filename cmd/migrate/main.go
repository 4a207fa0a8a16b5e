package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"go.uber.org/zap"

	"github.com/davidleathers/advice-risk-scorer/internal/infrastructure/config"
	"github.com/davidleathers/advice-risk-scorer/internal/infrastructure/database"
	"github.com/davidleathers/advice-risk-scorer/internal/infrastructure/telemetry"
)

// schemaMigrator is the part of database.Migrator the command drives
type schemaMigrator interface {
	Up() error
	Down(n int) error
	Version() (uint, bool, error)
}

func main() {
	var (
		action     = flag.String("action", "up", "Migration action: up, down, version")
		steps      = flag.Int("steps", 0, "Number of migrations to roll back (0 = all)")
		configPath = flag.String("config", "", "Path to configuration file")
	)
	flag.Parse()

	var (
		cfg *config.Config
		err error
	)
	if *configPath != "" {
		cfg, err = config.LoadFrom(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := telemetry.NewLogger(cfg.LogLevel, cfg.Environment)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	migrator, err := database.NewMigrator(cfg.Database.URL, logger)
	if err != nil {
		logger.Fatal("failed to create migrator", zap.Error(err))
	}

	err = runAction(migrator, *action, *steps, os.Stdout)
	if closeErr := migrator.Close(); closeErr != nil {
		logger.Warn("failed to close migrator", zap.Error(closeErr))
	}
	if err != nil {
		logger.Fatal("migration failed", zap.String("action", *action), zap.Error(err))
	}
}

func runAction(m schemaMigrator, action string, steps int, out io.Writer) error {
	switch action {
	case "up":
		if err := m.Up(); err != nil {
			return err
		}
	case "down":
		if err := m.Down(steps); err != nil {
			return err
		}
	case "version":
	default:
		return fmt.Errorf("unknown action %q", action)
	}

	v, dirty, err := m.Version()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "version=%d dirty=%t\n", v, dirty)
	return err
}
