package db

import (
	"context"

	"gorm.io/gorm"

	"github.com/nadavsuissa/AiChatManager1/entity"
	"github.com/nadavsuissa/AiChatManager1/errors"
)

func AutoMigrate(ctx context.Context, db *gorm.DB) error {
	_, tx := OpenSession(ctx, db)

	return errors.WithStack(tx.AutoMigrate(
		&entity.Project{},
		&entity.File{},
	))
}

func DropAll(ctx context.Context, db *gorm.DB) error {
	_, tx := OpenSession(ctx, db)
	return errors.WithStack(tx.Migrator().DropTable(
		&entity.File{},
		&entity.Project{},
	))
}
