package service

import (
	"context"
	"io"

	"github.com/personnel-actions-api/internal/auth"
	"github.com/personnel-actions-api/internal/domain"
	"github.com/personnel-actions-api/internal/repository"
	"github.com/personnel-actions-api/internal/storage"
)

// DocumentService определяет интерфейс работы с документами действий
type DocumentService interface {
	Attach(ctx context.Context, actor domain.Actor, actionID int64, file io.Reader, fileName, documentType string) (*domain.ActionDocument, error)
	List(ctx context.Context, actor domain.Actor, actionID int64) ([]domain.ActionDocument, error)
}

type documentService struct {
	docRepo    repository.DocumentRepository
	actionRepo repository.ActionRepository
	guard      *auth.Guard
	store      storage.Store
}

// NewDocumentService создаёт новый экземпляр сервиса
func NewDocumentService(
	docRepo repository.DocumentRepository,
	actionRepo repository.ActionRepository,
	guard *auth.Guard,
	store storage.Store,
) DocumentService {
	return &documentService{
		docRepo:    docRepo,
		actionRepo: actionRepo,
		guard:      guard,
		store:      store,
	}
}

// Attach сохраняет файл и привязывает метаданные к действию. Если
// действие не найдено или недоступно участнику, уже сохранённый файл
// удаляется, чтобы не оставлять осиротевший артефакт. Ограничения на
// размер и расширение - ответственность граничного слоя загрузки
func (s *documentService) Attach(ctx context.Context, actor domain.Actor, actionID int64, file io.Reader, fileName, documentType string) (*domain.ActionDocument, error) {
	storagePath, err := s.store.Save(file, fileName)
	if err != nil {
		return nil, err
	}

	action, err := s.actionRepo.GetByID(ctx, actionID)
	if err != nil {
		_ = s.store.Remove(storagePath)
		return nil, err
	}
	if !s.guard.CanView(actor, action) {
		_ = s.store.Remove(storagePath)
		return nil, domain.ErrNotAuthorized
	}

	doc := &domain.ActionDocument{
		ActionID:     actionID,
		DocumentType: documentType,
		FileName:     fileName,
		StoragePath:  storagePath,
		UploadedBy:   actor.ID,
	}

	if err := s.docRepo.Create(ctx, doc); err != nil {
		_ = s.store.Remove(storagePath)
		return nil, err
	}

	return doc, nil
}

func (s *documentService) List(ctx context.Context, actor domain.Actor, actionID int64) ([]domain.ActionDocument, error) {
	action, err := s.actionRepo.GetByID(ctx, actionID)
	if err != nil {
		return nil, err
	}
	if !s.guard.CanView(actor, action) {
		return nil, domain.ErrNotAuthorized
	}

	return s.docRepo.GetByActionID(ctx, actionID)
}
