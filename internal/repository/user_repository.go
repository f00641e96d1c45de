package repository

import (
	"context"
	"time"

	"github.com/personnel-actions-api/internal/domain"
	"gorm.io/gorm"
)

// UserRepository определяет интерфейс справочника пользователей
type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetActor(ctx context.Context, id int64) (domain.Actor, error)
	DeactivateByEmployee(ctx context.Context, employeeID int64) error
	SuspendByEmployee(ctx context.Context, employeeID int64, until *time.Time) error
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository создаёт новый экземпляр репозитория
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).First(&user, id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, domain.ErrActorNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetActor(ctx context.Context, id int64) (domain.Actor, error) {
	user, err := r.GetByID(ctx, id)
	if err != nil {
		return domain.Actor{}, err
	}
	return domain.Actor{
		ID:          user.ID,
		Role:        user.Role,
		DisplayName: user.DisplayName,
	}, nil
}

// DeactivateByEmployee отключает учётную запись, связанную с
// сотрудником. Отсутствие связанной записи не является ошибкой
func (r *userRepository) DeactivateByEmployee(ctx context.Context, employeeID int64) error {
	return r.db.WithContext(ctx).
		Model(&domain.User{}).
		Where("employee_id = ?", employeeID).
		Update("active", false).Error
}

// SuspendByEmployee блокирует доступ до указанной даты; при отсутствии
// даты доступ блокируется бессрочно
func (r *userRepository) SuspendByEmployee(ctx context.Context, employeeID int64, until *time.Time) error {
	return r.db.WithContext(ctx).
		Model(&domain.User{}).
		Where("employee_id = ?", employeeID).
		Updates(map[string]any{
			"active":          false,
			"suspended_until": until,
		}).Error
}
