package app

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/felicity-fest/api/internal/api"
	"github.com/felicity-fest/api/internal/config"
	"github.com/felicity-fest/api/internal/db"
	"github.com/felicity-fest/api/internal/logger"
	"github.com/felicity-fest/api/internal/mailer"
)

func Start() error {
	conf, err := config.Load("./cmd/app/config.yml")
	if err != nil {
		return fmt.Errorf("failed to initialize config -> %w", err)
	}

	if err = logger.Init(conf.API.Environment); err != nil {
		return fmt.Errorf("failed to initialize logger -> %w", err)
	}

	config.Watch(func(_ *config.AppConfig) {
		zap.L().Info("config file reloaded; restart to apply server-level changes")
	})

	dbURL := os.Getenv("DATABASE_URL")
	var postgresDB *gorm.DB
	if dbURL != "" {
		postgresDB, err = db.OpenPostgresWithURL(dbURL)
	} else {
		postgresDB, err = db.OpenPostgres(conf.Postgres)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize database -> %w", err)
	}

	notifier, err := mailer.New(conf.SMTP)
	if err != nil {
		return fmt.Errorf("failed to initialize mailer -> %w", err)
	}

	s, err := api.NewServer(conf, postgresDB, notifier)
	if err != nil {
		return fmt.Errorf("failed to initialize server -> %w", err)
	}

	if err = s.Sweeper.Start(); err != nil {
		return fmt.Errorf("failed to start the status sweeper -> %w", err)
	}
	defer func() {
		_ = s.Sweeper.Stop()
	}()

	addr := ":" + s.Config.API.Port
	zap.L().Info(fmt.Sprintf("starting server at %v", addr))
	if err = s.Router.Run(addr); err != nil {
		return fmt.Errorf("failed to start the server -> %w", err)
	}

	return nil
}
