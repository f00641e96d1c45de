package repository

import (
	"context"
	"time"

	"github.com/personnel-actions-api/internal/domain"
	"gorm.io/gorm"
)

// ActionFilter - фильтры выборки кадровых действий. RequesterID
// задаётся сервисом для ограничения видимости не-HR участников
type ActionFilter struct {
	TypeCode    *string
	Status      *domain.ActionStatus
	EmployeeID  *int64
	DateFrom    *time.Time
	DateTo      *time.Time
	RequesterID *int64
}

// ActionCounts - агрегаты для статистики
type ActionCounts struct {
	Total    int64
	ByStatus map[domain.ActionStatus]int64
	ByType   map[string]int64
}

// ActionRepository определяет интерфейс для работы с кадровыми действиями
type ActionRepository interface {
	Create(ctx context.Context, action *domain.PersonnelAction) error
	GetByID(ctx context.Context, id int64) (*domain.PersonnelAction, error)
	List(ctx context.Context, filter ActionFilter) ([]domain.PersonnelAction, error)
	ListPending(ctx context.Context) ([]domain.PersonnelAction, error)
	HistoryForEmployee(ctx context.Context, employeeID int64) ([]domain.PersonnelAction, error)
	UpdatePending(ctx context.Context, id int64, fields map[string]any) error
	Transition(ctx context.Context, id int64, from, to domain.ActionStatus, stamps map[string]any) error
	Execute(ctx context.Context, id int64, executorID int64, apply func(tx *gorm.DB, action *domain.PersonnelAction) error) error
	Delete(ctx context.Context, id int64) ([]domain.ActionDocument, error)
	Counts(ctx context.Context) (*ActionCounts, error)
}

type actionRepository struct {
	db *gorm.DB
}

// NewActionRepository создаёт новый экземпляр репозитория
func NewActionRepository(db *gorm.DB) ActionRepository {
	return &actionRepository{db: db}
}

func (r *actionRepository) Create(ctx context.Context, action *domain.PersonnelAction) error {
	return r.db.WithContext(ctx).Create(action).Error
}

func (r *actionRepository) GetByID(ctx context.Context, id int64) (*domain.PersonnelAction, error) {
	var action domain.PersonnelAction
	err := r.db.WithContext(ctx).
		Preload("Documents", func(db *gorm.DB) *gorm.DB {
			return db.Order("upload_date ASC")
		}).
		First(&action, id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, domain.ErrActionNotFound
		}
		return nil, err
	}
	return &action, nil
}

func (r *actionRepository) List(ctx context.Context, filter ActionFilter) ([]domain.PersonnelAction, error) {
	query := r.db.WithContext(ctx).Model(&domain.PersonnelAction{})

	if filter.RequesterID != nil {
		query = query.Where("requester_id = ?", *filter.RequesterID)
	}
	if filter.TypeCode != nil {
		query = query.Where("type_code = ?", *filter.TypeCode)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.EmployeeID != nil {
		query = query.Where("employee_id = ?", *filter.EmployeeID)
	}
	if filter.DateFrom != nil {
		query = query.Where("request_date >= ?", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		query = query.Where("request_date <= ?", *filter.DateTo)
	}

	var actions []domain.PersonnelAction
	err := query.Order("request_date DESC").Find(&actions).Error
	return actions, err
}

func (r *actionRepository) ListPending(ctx context.Context) ([]domain.PersonnelAction, error) {
	var actions []domain.PersonnelAction
	// Очередь на согласование отдаётся в порядке поступления
	err := r.db.WithContext(ctx).
		Where("status = ?", domain.StatusPending).
		Order("request_date ASC").
		Find(&actions).Error
	return actions, err
}

func (r *actionRepository) HistoryForEmployee(ctx context.Context, employeeID int64) ([]domain.PersonnelAction, error) {
	var actions []domain.PersonnelAction
	err := r.db.WithContext(ctx).
		Where("employee_id = ? AND status = ?", employeeID, domain.StatusExecuted).
		Order("execution_date DESC").
		Find(&actions).Error
	return actions, err
}

// UpdatePending изменяет поля действия, пока оно ожидает согласования.
// Условие по статусу входит в сам UPDATE, поэтому гонка с параллельным
// согласованием разрешается в пользу ровно одной операции
func (r *actionRepository) UpdatePending(ctx context.Context, id int64, fields map[string]any) error {
	result := r.db.WithContext(ctx).
		Model(&domain.PersonnelAction{}).
		Where("id = ? AND status = ?", id, domain.StatusPending).
		Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return conflictOrNotFound(ctx, r.db, id)
	}
	return nil
}

// Transition переводит действие из статуса from в to вместе с отметками
// согласования/отклонения. Несовпадение текущего статуса - конфликт
func (r *actionRepository) Transition(ctx context.Context, id int64, from, to domain.ActionStatus, stamps map[string]any) error {
	updates := map[string]any{"status": to}
	for k, v := range stamps {
		updates[k] = v
	}

	result := r.db.WithContext(ctx).
		Model(&domain.PersonnelAction{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return conflictOrNotFound(ctx, r.db, id)
	}
	return nil
}

// Execute выполняет переход approved → executed и эффекты исполнителя
// в одной транзакции. Условный UPDATE статуса гарантирует, что из двух
// конкурирующих вызовов зафиксируется ровно один; откат транзакции
// оставляет действие в статусе approved со всеми отметками согласования
func (r *actionRepository) Execute(ctx context.Context, id int64, executorID int64, apply func(tx *gorm.DB, action *domain.PersonnelAction) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var action domain.PersonnelAction
		if err := tx.First(&action, id).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return domain.ErrActionNotFound
			}
			return err
		}

		now := time.Now()
		result := tx.Model(&domain.PersonnelAction{}).
			Where("id = ? AND status = ?", id, domain.StatusApproved).
			Updates(map[string]any{
				"status":         domain.StatusExecuted,
				"executor_id":    executorID,
				"execution_date": now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domain.ErrStatusConflict
		}

		action.Status = domain.StatusExecuted
		action.ExecutorID = &executorID
		action.ExecutionDate = &now

		return apply(tx, &action)
	})
}

// Delete удаляет действие в статусе pending или rejected вместе с
// метаданными документов и возвращает их, чтобы вызывающая сторона
// могла убрать файлы из хранилища
func (r *actionRepository) Delete(ctx context.Context, id int64) ([]domain.ActionDocument, error) {
	var documents []domain.ActionDocument

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Метаданные документов читаются до удаления действия: каскад
		// внешнего ключа убирает их вместе со строкой действия
		if err := tx.Where("action_id = ?", id).Find(&documents).Error; err != nil {
			return err
		}

		result := tx.
			Where("id = ? AND status IN ?", id, []domain.ActionStatus{domain.StatusPending, domain.StatusRejected}).
			Delete(&domain.PersonnelAction{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return conflictOrNotFound(ctx, tx, id)
		}

		// Явное удаление - для движков без каскада по внешнему ключу
		return tx.Where("action_id = ?", id).Delete(&domain.ActionDocument{}).Error
	})
	if err != nil {
		return nil, err
	}
	return documents, nil
}

func (r *actionRepository) Counts(ctx context.Context) (*ActionCounts, error) {
	counts := &ActionCounts{
		ByStatus: make(map[domain.ActionStatus]int64),
		ByType:   make(map[string]int64),
	}

	if err := r.db.WithContext(ctx).Model(&domain.PersonnelAction{}).Count(&counts.Total).Error; err != nil {
		return nil, err
	}

	type statusRow struct {
		Status domain.ActionStatus
		Count  int64
	}
	var statusRows []statusRow
	err := r.db.WithContext(ctx).Model(&domain.PersonnelAction{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&statusRows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range statusRows {
		counts.ByStatus[row.Status] = row.Count
	}

	type typeRow struct {
		TypeCode string
		Count    int64
	}
	var typeRows []typeRow
	err = r.db.WithContext(ctx).Model(&domain.PersonnelAction{}).
		Select("type_code, count(*) as count").
		Group("type_code").
		Scan(&typeRows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range typeRows {
		counts.ByType[row.TypeCode] = row.Count
	}

	return counts, nil
}

// conflictOrNotFound различает отсутствующую запись и несовпадение статуса
func conflictOrNotFound(ctx context.Context, db *gorm.DB, id int64) error {
	var count int64
	if err := db.WithContext(ctx).Model(&domain.PersonnelAction{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return domain.ErrActionNotFound
	}
	return domain.ErrStatusConflict
}
