package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/personnel-actions-api/internal/auth"
	"github.com/personnel-actions-api/internal/catalog"
	"github.com/personnel-actions-api/internal/domain"
	"github.com/personnel-actions-api/internal/dto"
	"github.com/personnel-actions-api/internal/repository"
	"github.com/personnel-actions-api/internal/storage"
	"gorm.io/gorm"
)

// ActionService определяет интерфейс бизнес-логики кадровых действий:
// машину состояний запрос → согласование → исполнение
type ActionService interface {
	Create(ctx context.Context, actor domain.Actor, req *dto.CreateActionRequest) (*domain.PersonnelAction, error)
	GetByID(ctx context.Context, actor domain.Actor, id int64) (*domain.PersonnelAction, error)
	List(ctx context.Context, actor domain.Actor, query *dto.ActionListQuery) ([]domain.PersonnelAction, error)
	ListPending(ctx context.Context, actor domain.Actor) ([]domain.PersonnelAction, error)
	HistoryForEmployee(ctx context.Context, actor domain.Actor, employeeID int64) ([]domain.PersonnelAction, error)
	Update(ctx context.Context, actor domain.Actor, id int64, req *dto.UpdateActionRequest) (*domain.PersonnelAction, error)
	Approve(ctx context.Context, actor domain.Actor, id int64, comments string) (*domain.PersonnelAction, error)
	Reject(ctx context.Context, actor domain.Actor, id int64, motive string) (*domain.PersonnelAction, error)
	Execute(ctx context.Context, actor domain.Actor, id int64) (*domain.PersonnelAction, error)
	Delete(ctx context.Context, actor domain.Actor, id int64) error
	DisplayNames(ctx context.Context, action *domain.PersonnelAction) map[int64]string
}

type actionService struct {
	actionRepo repository.ActionRepository
	empRepo    repository.EmployeeRepository
	userRepo   repository.UserRepository
	guard      *auth.Guard
	dispatcher *Dispatcher
	store      storage.Store
}

// NewActionService создаёт новый экземпляр сервиса
func NewActionService(
	actionRepo repository.ActionRepository,
	empRepo repository.EmployeeRepository,
	userRepo repository.UserRepository,
	guard *auth.Guard,
	dispatcher *Dispatcher,
	store storage.Store,
) ActionService {
	return &actionService{
		actionRepo: actionRepo,
		empRepo:    empRepo,
		userRepo:   userRepo,
		guard:      guard,
		dispatcher: dispatcher,
		store:      store,
	}
}

func (s *actionService) Create(ctx context.Context, actor domain.Actor, req *dto.CreateActionRequest) (*domain.PersonnelAction, error) {
	if !s.guard.CanRequest(actor) {
		return nil, domain.ErrNotAuthorized
	}

	if _, ok := catalog.Lookup(req.TypeCode); !ok {
		return nil, domain.ErrUnknownActionType
	}

	justification := strings.TrimSpace(req.Justification)
	if justification == "" {
		return nil, domain.ErrJustificationEmpty
	}

	if err := s.dispatcher.ValidateSnapshot(req.TypeCode, req.NewState); err != nil {
		return nil, err
	}

	// Сотрудник обязателен для всех типов, кроме приёма: там запись
	// сотрудника появляется атомарно при исполнении
	var employeeID *int64
	if req.TypeCode == catalog.TypeHire {
		employeeID = nil
	} else {
		if req.EmployeeID == nil {
			return nil, domain.ErrEmployeeIDRequired
		}
		if _, err := s.empRepo.GetByID(ctx, *req.EmployeeID); err != nil {
			return nil, err
		}
		employeeID = req.EmployeeID
	}

	action := &domain.PersonnelAction{
		TypeCode:      req.TypeCode,
		EmployeeID:    employeeID,
		RequesterID:   actor.ID,
		Status:        domain.StatusPending,
		Justification: justification,
		PriorState:    req.PriorState,
		NewState:      req.NewState,
	}

	if req.EffectiveDate != nil {
		effectiveDate, err := time.Parse("2006-01-02", *req.EffectiveDate)
		if err != nil {
			return nil, err
		}
		action.EffectiveDate = &effectiveDate
	}

	if err := s.actionRepo.Create(ctx, action); err != nil {
		return nil, err
	}

	return action, nil
}

func (s *actionService) GetByID(ctx context.Context, actor domain.Actor, id int64) (*domain.PersonnelAction, error) {
	action, err := s.actionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.guard.CanView(actor, action) {
		return nil, domain.ErrNotAuthorized
	}
	return action, nil
}

func (s *actionService) List(ctx context.Context, actor domain.Actor, query *dto.ActionListQuery) ([]domain.PersonnelAction, error) {
	filter := repository.ActionFilter{
		TypeCode:   query.TypeCode,
		EmployeeID: query.EmployeeID,
	}

	// Не-HR участники видят только собственные запросы
	if !s.guard.CanViewAll(actor) {
		requesterID := actor.ID
		filter.RequesterID = &requesterID
	}

	if query.Status != nil {
		status := domain.ActionStatus(*query.Status)
		filter.Status = &status
	}
	if query.DateFrom != nil {
		from, err := time.Parse("2006-01-02", *query.DateFrom)
		if err != nil {
			return nil, err
		}
		filter.DateFrom = &from
	}
	if query.DateTo != nil {
		to, err := time.Parse("2006-01-02", *query.DateTo)
		if err != nil {
			return nil, err
		}
		// Верхняя граница включает весь день
		to = to.Add(24*time.Hour - time.Nanosecond)
		filter.DateTo = &to
	}

	return s.actionRepo.List(ctx, filter)
}

func (s *actionService) ListPending(ctx context.Context, actor domain.Actor) ([]domain.PersonnelAction, error) {
	if !s.guard.CanViewAll(actor) {
		return nil, domain.ErrNotAuthorized
	}
	return s.actionRepo.ListPending(ctx)
}

func (s *actionService) HistoryForEmployee(ctx context.Context, actor domain.Actor, employeeID int64) ([]domain.PersonnelAction, error) {
	if !s.guard.CanViewAll(actor) {
		return nil, domain.ErrNotAuthorized
	}
	if _, err := s.empRepo.GetByID(ctx, employeeID); err != nil {
		return nil, err
	}
	return s.actionRepo.HistoryForEmployee(ctx, employeeID)
}

func (s *actionService) Update(ctx context.Context, actor domain.Actor, id int64, req *dto.UpdateActionRequest) (*domain.PersonnelAction, error) {
	action, err := s.actionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !s.guard.CanUpdate(actor, action) {
		if action.RequesterID != actor.ID {
			return nil, domain.ErrNotAuthorized
		}
		return nil, domain.ErrStatusConflict
	}

	fields := map[string]any{}

	if req.EffectiveDate != nil {
		effectiveDate, err := time.Parse("2006-01-02", *req.EffectiveDate)
		if err != nil {
			return nil, err
		}
		fields["effective_date"] = effectiveDate
	}

	if req.Justification != nil {
		justification := strings.TrimSpace(*req.Justification)
		if justification == "" {
			return nil, domain.ErrJustificationEmpty
		}
		fields["justification"] = justification
	}

	if len(req.NewState) > 0 {
		if err := s.dispatcher.ValidateSnapshot(action.TypeCode, req.NewState); err != nil {
			return nil, err
		}
		fields["new_state"] = []byte(req.NewState)
	}

	if len(fields) > 0 {
		if err := s.actionRepo.UpdatePending(ctx, id, fields); err != nil {
			return nil, err
		}
	}

	return s.actionRepo.GetByID(ctx, id)
}

func (s *actionService) Approve(ctx context.Context, actor domain.Actor, id int64, comments string) (*domain.PersonnelAction, error) {
	if !s.guard.CanApprove(actor) {
		return nil, domain.ErrNotAuthorized
	}

	if _, err := s.actionRepo.GetByID(ctx, id); err != nil {
		return nil, err
	}

	err := s.actionRepo.Transition(ctx, id, domain.StatusPending, domain.StatusApproved, map[string]any{
		"approver_id":       actor.ID,
		"approval_date":     time.Now(),
		"approval_comments": comments,
	})
	if err != nil {
		return nil, err
	}

	return s.actionRepo.GetByID(ctx, id)
}

func (s *actionService) Reject(ctx context.Context, actor domain.Actor, id int64, motive string) (*domain.PersonnelAction, error) {
	if !s.guard.CanReject(actor) {
		return nil, domain.ErrNotAuthorized
	}

	if strings.TrimSpace(motive) == "" {
		return nil, domain.ErrMotiveRequired
	}

	if _, err := s.actionRepo.GetByID(ctx, id); err != nil {
		return nil, err
	}

	err := s.actionRepo.Transition(ctx, id, domain.StatusPending, domain.StatusRejected, map[string]any{
		"reviewer_id":     actor.ID,
		"review_date":     time.Now(),
		"review_comments": motive,
	})
	if err != nil {
		return nil, err
	}

	return s.actionRepo.GetByID(ctx, id)
}

func (s *actionService) Execute(ctx context.Context, actor domain.Actor, id int64) (*domain.PersonnelAction, error) {
	if !s.guard.CanExecute(actor) {
		return nil, domain.ErrNotAuthorized
	}

	err := s.actionRepo.Execute(ctx, id, actor.ID, func(tx *gorm.DB, action *domain.PersonnelAction) error {
		return s.dispatcher.Apply(ctx, tx, action)
	})
	if err != nil {
		return nil, wrapExecutionError(err)
	}

	return s.actionRepo.GetByID(ctx, id)
}

func (s *actionService) Delete(ctx context.Context, actor domain.Actor, id int64) error {
	action, err := s.actionRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if !s.guard.CanDelete(actor, action) {
		return domain.ErrNotAuthorized
	}

	documents, err := s.actionRepo.Delete(ctx, id)
	if err != nil {
		return err
	}

	// Файлы убираются после фиксации транзакции; неудача удаления
	// файла не откатывает уже удалённую запись
	for _, doc := range documents {
		_ = s.store.Remove(doc.StoragePath)
	}

	return nil
}

// DisplayNames возвращает отображаемые имена участников действия
func (s *actionService) DisplayNames(ctx context.Context, action *domain.PersonnelAction) map[int64]string {
	names := make(map[int64]string)

	ids := []int64{action.RequesterID}
	if action.ApproverID != nil {
		ids = append(ids, *action.ApproverID)
	}
	if action.ReviewerID != nil {
		ids = append(ids, *action.ReviewerID)
	}
	if action.ExecutorID != nil {
		ids = append(ids, *action.ExecutorID)
	}

	for _, id := range ids {
		if _, ok := names[id]; ok {
			continue
		}
		actor, err := s.userRepo.GetActor(ctx, id)
		if err != nil {
			continue
		}
		names[id] = actor.DisplayName
	}

	return names
}

// wrapExecutionError оставляет бизнес-ошибки как есть, а инфраструктурные
// сбои внутри транзакции исполнения помечает как ошибку исполнения
func wrapExecutionError(err error) error {
	for _, sentinel := range []error{
		domain.ErrActionNotFound,
		domain.ErrEmployeeNotFound,
		domain.ErrStatusConflict,
		domain.ErrMalformedSnapshot,
		domain.ErrSnapshotFieldMissing,
		domain.ErrEmployeeIDRequired,
		domain.ErrUnknownActionType,
	} {
		if errors.Is(err, sentinel) {
			return err
		}
	}
	return fmt.Errorf("%w: %v", domain.ErrExecutionFailed, err)
}
