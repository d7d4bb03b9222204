package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/goliatone/go-sharelinks/pkg/config"
	"github.com/goliatone/go-sharelinks/pkg/domain"
	"github.com/goliatone/go-sharelinks/pkg/interfaces/logger"
	"github.com/goliatone/go-sharelinks/pkg/interfaces/resources"
	"github.com/goliatone/go-sharelinks/pkg/mailer"
	awsses "github.com/goliatone/go-sharelinks/pkg/mailer/aws_ses"
	"github.com/goliatone/go-sharelinks/pkg/mailer/console"
	"github.com/goliatone/go-sharelinks/pkg/mailer/smtp"
	resourcestore "github.com/goliatone/go-sharelinks/pkg/resources"
	"github.com/goliatone/go-sharelinks/pkg/sharing"
	"github.com/goliatone/go-sharelinks/pkg/storage"
)

// App holds the wired dependencies for the server process.
type App struct {
	Config config.Config
	Module *sharing.Module
	DB     *bun.DB
	Logger logger.Logger
}

// NewApp opens storage, selects the mail transport and resource store
// from configuration, and assembles the sharing module.
func NewApp(ctx context.Context, cfg config.Config, lgr logger.Logger) (*App, error) {
	var providers storage.Providers
	var db *bun.DB

	switch cfg.Database.Driver {
	case "memory":
		providers = storage.NewMemoryProviders()
	default:
		opened, err := openDatabase(ctx, cfg.Database, lgr)
		if err != nil {
			return nil, err
		}
		db = opened
		providers = storage.NewBunProviders(db)
	}

	sender, err := buildSender(cfg.Mailer, lgr)
	if err != nil {
		return nil, err
	}

	store, err := buildResourceStore(cfg.Resources, lgr)
	if err != nil {
		return nil, err
	}

	module, err := sharing.NewModule(sharing.ModuleOptions{
		Config:    cfg,
		Storage:   providers,
		Logger:    lgr,
		Resources: store,
		Sender:    sender,
	})
	if err != nil {
		return nil, err
	}

	return &App{
		Config: cfg,
		Module: module,
		DB:     db,
		Logger: lgr,
	}, nil
}

// Close releases the database handle.
func (a *App) Close() {
	if a.DB != nil {
		a.DB.Close()
	}
}

func buildSender(cfg config.MailerConfig, lgr logger.Logger) (mailer.Sender, error) {
	switch cfg.Provider {
	case "", "console":
		return console.New(lgr), nil
	case "smtp":
		return smtp.New(lgr, smtp.WithConfig(smtp.Config{
			Host:        cfg.SMTP.Host,
			Port:        cfg.SMTP.Port,
			Username:    cfg.SMTP.Username,
			Password:    cfg.SMTP.Password,
			From:        cfg.From,
			UseTLS:      cfg.SMTP.UseTLS,
			UseStartTLS: cfg.SMTP.UseStartTLS,
		})), nil
	case "aws_ses":
		return awsses.New(lgr, awsses.WithConfig(awsses.Config{
			From:             cfg.From,
			Region:           cfg.SES.Region,
			Profile:          cfg.SES.Profile,
			ConfigurationSet: cfg.SES.ConfigurationSet,
			DryRun:           cfg.SES.DryRun,
		})), nil
	default:
		return nil, fmt.Errorf("mailer: unsupported provider %s", cfg.Provider)
	}
}

func buildResourceStore(cfg config.ResourcesConfig, lgr logger.Logger) (resources.Store, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		lgr.Warn("no resource store configured, using in-memory store")
		return resourcestore.NewMemoryStore(), nil
	}
	store, err := resourcestore.NewHTTPStore(resourcestore.Config{
		BaseURL: cfg.BaseURL,
		Token:   cfg.Token,
		Timeout: cfg.Timeout,
	}, lgr)
	if err != nil {
		return nil, err
	}
	return store, nil
}

func openDatabase(ctx context.Context, cfg config.DatabaseConfig, lgr logger.Logger) (*bun.DB, error) {
	if cfg.Driver != "" && cfg.Driver != "sqlite" {
		return nil, fmt.Errorf("database: unsupported driver %s", cfg.Driver)
	}
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		dsn = config.Defaults().Database.DSN
	}
	if err := ensureSQLiteDir(dsn); err != nil {
		return nil, err
	}

	sqldb, err := sql.Open(sqliteshim.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("database: open sqlite: %w", err)
	}
	db := bun.NewDB(sqldb, sqlitedialect.New())

	if _, err := sqldb.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		lgr.Warn("database: enable sqlite foreign keys", logger.F("error", err.Error()))
	}

	if err := ensureSchema(ctx, db); err != nil {
		return nil, err
	}
	return db, nil
}

func ensureSQLiteDir(dsn string) error {
	if !strings.HasPrefix(dsn, "file:") {
		return nil
	}
	path := strings.TrimPrefix(dsn, "file:")
	if idx := strings.Index(path, "?"); idx >= 0 {
		path = path[:idx]
	}
	if path == "" || path == ":memory:" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func ensureSchema(ctx context.Context, db *bun.DB) error {
	models := []any{
		(*domain.SharedLink)(nil),
		(*domain.SharePolicy)(nil),
		(*domain.EmailTemplate)(nil),
	}
	for _, model := range models {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("database: create table for %T: %w", model, err)
		}
	}
	return nil
}
