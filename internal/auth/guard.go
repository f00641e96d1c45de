package auth

import (
	"github.com/personnel-actions-api/internal/domain"
)

// Guard - единая точка принятия решений о доступе к кадровым действиям.
// Политика: старшие HR-роли видят и ведут весь поток согласования,
// остальные работают только со своими запросами.
type Guard struct{}

// NewGuard создаёт новый экземпляр
func NewGuard() *Guard {
	return &Guard{}
}

// CanViewAll сообщает, может ли участник видеть все действия
// (общий список, очередь на согласование, статистику)
func (g *Guard) CanViewAll(actor domain.Actor) bool {
	return actor.Role.IsHR()
}

// CanView сообщает, может ли участник видеть конкретное действие
func (g *Guard) CanView(actor domain.Actor, action *domain.PersonnelAction) bool {
	return actor.Role.IsHR() || action.RequesterID == actor.ID
}

// CanRequest сообщает, может ли участник создавать запросы
func (g *Guard) CanRequest(actor domain.Actor) bool {
	return true
}

// CanUpdate сообщает, может ли участник изменить действие.
// Разрешено только автору запроса и только пока действие ожидает
// согласования
func (g *Guard) CanUpdate(actor domain.Actor, action *domain.PersonnelAction) bool {
	return action.RequesterID == actor.ID && action.Status == domain.StatusPending
}

// CanApprove сообщает, может ли участник согласовывать действия
func (g *Guard) CanApprove(actor domain.Actor) bool {
	return actor.Role.IsHR()
}

// CanReject сообщает, может ли участник отклонять действия
func (g *Guard) CanReject(actor domain.Actor) bool {
	return actor.Role.IsHR()
}

// CanExecute сообщает, может ли участник исполнять действия
func (g *Guard) CanExecute(actor domain.Actor) bool {
	return actor.Role.IsHR()
}

// CanDelete сообщает, может ли участник удалить действие:
// автор - только свои, HR - любые. Ограничение по статусу
// (pending/rejected) проверяет машина состояний, не охрана
func (g *Guard) CanDelete(actor domain.Actor, action *domain.PersonnelAction) bool {
	return actor.Role.IsHR() || action.RequesterID == actor.ID
}
