package repository

import (
	"context"

	"github.com/personnel-actions-api/internal/domain"
	"gorm.io/gorm"
)

// DocumentRepository определяет интерфейс для метаданных документов
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.ActionDocument) error
	GetByActionID(ctx context.Context, actionID int64) ([]domain.ActionDocument, error)
}

type documentRepository struct {
	db *gorm.DB
}

// NewDocumentRepository создаёт новый экземпляр репозитория
func NewDocumentRepository(db *gorm.DB) DocumentRepository {
	return &documentRepository{db: db}
}

func (r *documentRepository) Create(ctx context.Context, doc *domain.ActionDocument) error {
	return r.db.WithContext(ctx).Create(doc).Error
}

func (r *documentRepository) GetByActionID(ctx context.Context, actionID int64) ([]domain.ActionDocument, error) {
	var docs []domain.ActionDocument
	err := r.db.WithContext(ctx).
		Where("action_id = ?", actionID).
		Order("upload_date ASC").
		Find(&docs).Error
	return docs, err
}
