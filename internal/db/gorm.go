package db

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/jcooky/go-din"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/nadavsuissa/AiChatManager1/config"
	"github.com/nadavsuissa/AiChatManager1/errors"
	"github.com/nadavsuissa/AiChatManager1/internal/mylog"
)

// OpenDB opens the sqlite database at path, creating its directory when
// needed. An empty path opens a private in-memory database.
func OpenDB(path string) (*gorm.DB, error) {
	var dsn string
	if path == "" || path == ":memory:" {
		dsn = fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", uuid.NewString())
	} else {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, errors.Wrapf(err, "failed to create database directory for %s", path)
		}
		dsn = fmt.Sprintf("file:%s?cache=shared&mode=rwc&_journal_mode=WAL&_foreign_keys=on", path)
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open sqlite database at %s", path)
	}

	return db, nil
}

func CloseDB(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return errors.Wrapf(err, "failed to get db")
	}
	if err := sqlDB.Close(); err != nil {
		return errors.Wrapf(err, "failed to close db")
	}

	return nil
}

func init() {
	din.RegisterT(func(c *din.Container) (*gorm.DB, error) {
		logger, err := din.GetT[*slog.Logger](c)
		if err != nil {
			return nil, err
		}
		conf, err := din.GetT[*config.Config](c)
		if err != nil {
			return nil, err
		}

		path := conf.Server.DatabasePath
		if c.Env == din.EnvTest {
			path = ""
		}

		logger.Info("initialize database", "path", path)
		db, err := OpenDB(path)
		if err != nil {
			return nil, err
		}
		if err := AutoMigrate(c, db); err != nil {
			return nil, errors.Wrapf(err, "failed to migrate database")
		}

		c.RegisterOnShutdown(func(_ context.Context) {
			if err := CloseDB(db); err != nil {
				logger.Warn("failed to close database", mylog.Err(err))
			}
			logger.Info("database closed")
		})

		return db, nil
	})
}
