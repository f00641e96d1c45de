package repository

import (
	"context"
	"time"

	"github.com/personnel-actions-api/internal/domain"
	"gorm.io/gorm"
)

// EmployeeRepository определяет интерфейс справочника сотрудников.
// Диспетчер исполнения создаёт экземпляр поверх транзакции, чтобы
// мутации сотрудников фиксировались вместе с переходом статуса
type EmployeeRepository interface {
	Create(ctx context.Context, emp *domain.Employee) error
	GetByID(ctx context.Context, id int64) (*domain.Employee, error)
	ApplyPartial(ctx context.Context, id int64, fields map[string]any) error
	Deactivate(ctx context.Context, id int64, exitDate time.Time, reason string) error
}

type employeeRepository struct {
	db *gorm.DB
}

// NewEmployeeRepository создаёт новый экземпляр репозитория.
// db может быть как соединением, так и открытой транзакцией
func NewEmployeeRepository(db *gorm.DB) EmployeeRepository {
	return &employeeRepository{db: db}
}

func (r *employeeRepository) Create(ctx context.Context, emp *domain.Employee) error {
	return r.db.WithContext(ctx).Create(emp).Error
}

func (r *employeeRepository) GetByID(ctx context.Context, id int64) (*domain.Employee, error) {
	var emp domain.Employee
	err := r.db.WithContext(ctx).First(&emp, id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, domain.ErrEmployeeNotFound
		}
		return nil, err
	}
	return &emp, nil
}

// ApplyPartial обновляет только переданные поля; отсутствие поля
// никогда не означает его очистку
func (r *employeeRepository) ApplyPartial(ctx context.Context, id int64, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	result := r.db.WithContext(ctx).
		Model(&domain.Employee{}).
		Where("id = ?", id).
		Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrEmployeeNotFound
	}
	return nil
}

func (r *employeeRepository) Deactivate(ctx context.Context, id int64, exitDate time.Time, reason string) error {
	return r.ApplyPartial(ctx, id, map[string]any{
		"active":      false,
		"exit_date":   exitDate,
		"exit_reason": reason,
	})
}
