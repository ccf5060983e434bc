package project

import (
	"context"

	"github.com/google/uuid"
	"github.com/jcooky/go-din"
	"gorm.io/gorm"

	"github.com/nadavsuissa/AiChatManager1/entity"
	"github.com/nadavsuissa/AiChatManager1/errors"
	"github.com/nadavsuissa/AiChatManager1/internal/db"
)

type (
	Store interface {
		CreateProject(ctx context.Context, project *entity.Project) error
		GetProject(ctx context.Context, id string) (*entity.Project, error)
		// UpdateThread makes threadID the active thread and keeps the
		// previous one in PreviousThreadIDs.
		UpdateThread(ctx context.Context, id string, threadID string) (*entity.Project, error)
		AddFile(ctx context.Context, file *entity.File) error
		ListFiles(ctx context.Context, projectID string) ([]entity.File, error)
		// MarkFilesAttached maps file record ids to the vector store they
		// were attached to.
		MarkFilesAttached(ctx context.Context, projectID string, stores map[string]string) error
	}

	store struct {
		db *gorm.DB
	}
)

func NewStore(gormDB *gorm.DB) Store {
	return &store{db: gormDB}
}

func (s *store) CreateProject(ctx context.Context, project *entity.Project) error {
	_, tx := db.OpenSession(ctx, s.db)

	if project.ID == "" {
		project.ID = uuid.NewString()
	}
	if project.PreviousThreadIDs == nil {
		project.PreviousThreadIDs = []string{}
	}

	if err := tx.Create(project).Error; err != nil {
		return errors.Wrapf(err, "failed to create project")
	}
	return nil
}

func (s *store) GetProject(ctx context.Context, id string) (*entity.Project, error) {
	_, tx := db.OpenSession(ctx, s.db)

	var project entity.Project
	if r := tx.Limit(1).Find(&project, "id = ?", id); r.Error != nil {
		return nil, errors.Wrapf(r.Error, "failed to find project")
	} else if r.RowsAffected == 0 {
		return nil, errors.Wrapf(errors.ErrNotFound, "project %s not found", id)
	}

	return &project, nil
}

func (s *store) UpdateThread(ctx context.Context, id string, threadID string) (*entity.Project, error) {
	if threadID == "" {
		return nil, errors.Wrapf(errors.ErrInvalidParams, "thread id is required")
	}

	var project *entity.Project
	if err := db.Transaction(ctx, s.db, func(ctx context.Context, tx *gorm.DB) error {
		p, err := s.GetProject(ctx, id)
		if err != nil {
			return err
		}
		if p.ThreadID == threadID {
			project = p
			return nil
		}

		if p.ThreadID != "" {
			p.PreviousThreadIDs = append(p.PreviousThreadIDs, p.ThreadID)
		}
		p.ThreadID = threadID
		if err := tx.Save(p).Error; err != nil {
			return errors.Wrapf(err, "failed to save project")
		}

		project = p
		return nil
	}); err != nil {
		return nil, err
	}

	return project, nil
}

func (s *store) AddFile(ctx context.Context, file *entity.File) error {
	_, tx := db.OpenSession(ctx, s.db)

	if file.ID == "" {
		file.ID = uuid.NewString()
	}
	if err := tx.Create(file).Error; err != nil {
		return errors.Wrapf(err, "failed to add file")
	}
	return nil
}

func (s *store) ListFiles(ctx context.Context, projectID string) ([]entity.File, error) {
	_, tx := db.OpenSession(ctx, s.db)

	files := []entity.File{}
	if err := tx.Where("project_id = ?", projectID).Order("uploaded_at ASC").Find(&files).Error; err != nil {
		return nil, errors.Wrapf(err, "failed to find files")
	}
	return files, nil
}

func (s *store) MarkFilesAttached(ctx context.Context, projectID string, stores map[string]string) error {
	if len(stores) == 0 {
		return nil
	}

	return db.Transaction(ctx, s.db, func(_ context.Context, tx *gorm.DB) error {
		for fileID, storeID := range stores {
			if err := tx.Model(&entity.File{}).
				Where("id = ? AND project_id = ?", fileID, projectID).
				Updates(map[string]any{
					"attached_to_assistant": true,
					"vector_store_id":       storeID,
				}).Error; err != nil {
				return errors.Wrapf(err, "failed to mark file %s attached", fileID)
			}
		}
		return nil
	})
}

func init() {
	din.RegisterT(func(c *din.Container) (Store, error) {
		gormDB, err := din.GetT[*gorm.DB](c)
		if err != nil {
			return nil, err
		}

		return NewStore(gormDB), nil
	})
}
