package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/personnel-actions-api/internal/catalog"
	"github.com/personnel-actions-api/internal/domain"
	"github.com/personnel-actions-api/internal/repository"
	"gorm.io/gorm"
)

// ExecutionHandler применяет утверждённое действие к справочнику
// сотрудников. Apply вызывается только внутри транзакции перехода
// approved → executed; tx - открытая транзакция этого перехода.
// Validate проверяет снимок нового состояния до записи действия
type ExecutionHandler interface {
	Validate(raw json.RawMessage) error
	Apply(ctx context.Context, tx *gorm.DB, action *domain.PersonnelAction) error
}

// Dispatcher - реестр обработчиков по коду типа действия. Типы без
// кадровых последствий регистрируются явно как no-op, поэтому
// незарегистрированный код - это ошибка данных, а не пропущенная ветка
type Dispatcher struct {
	handlers map[string]ExecutionHandler
}

// NewDispatcher создаёт реестр со всеми обработчиками каталога
func NewDispatcher() *Dispatcher {
	d := &Dispatcher{handlers: make(map[string]ExecutionHandler)}

	d.register(catalog.TypeHire, hireHandler{})
	d.register(catalog.TypePromotion, positionChangeHandler{})
	d.register(catalog.TypePositionChange, positionChangeHandler{})
	d.register(catalog.TypeDepartmentChange, departmentChangeHandler{})
	d.register(catalog.TypeSupervisorChange, supervisorChangeHandler{})
	d.register(catalog.TypeSalaryAdjustment, salaryAdjustmentHandler{})
	d.register(catalog.TypeScheduleChange, scheduleChangeHandler{})
	d.register(catalog.TypeContractChange, contractChangeHandler{})
	d.register(catalog.TypeSuspension, suspensionHandler{})
	d.register(catalog.TypeTermination, terminationHandler{})

	// Дисциплинарные записи фиксируются только в истории
	d.register(catalog.TypeDisciplinaryNotice, noopHandler{})
	d.register(catalog.TypeSanction, noopHandler{})

	return d
}

func (d *Dispatcher) register(typeCode string, h ExecutionHandler) {
	d.handlers[typeCode] = h
}

// ValidateSnapshot проверяет снимок нового состояния для данного типа
func (d *Dispatcher) ValidateSnapshot(typeCode string, raw json.RawMessage) error {
	handler, ok := d.handlers[typeCode]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrUnknownActionType, typeCode)
	}
	return handler.Validate(raw)
}

// Apply находит обработчик по коду типа и применяет действие
func (d *Dispatcher) Apply(ctx context.Context, tx *gorm.DB, action *domain.PersonnelAction) error {
	handler, ok := d.handlers[action.TypeCode]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrUnknownActionType, action.TypeCode)
	}
	return handler.Apply(ctx, tx, action)
}

// requireEmployee возвращает идентификатор сотрудника действия
func requireEmployee(action *domain.PersonnelAction) (int64, error) {
	if action.EmployeeID == nil {
		return 0, domain.ErrEmployeeIDRequired
	}
	return *action.EmployeeID, nil
}

func missingField(name string) error {
	return fmt.Errorf("%w: %s", domain.ErrSnapshotFieldMissing, name)
}

type hireHandler struct{}

func decodeHire(raw json.RawMessage) (domain.HireSnapshot, error) {
	var snap domain.HireSnapshot
	if err := domain.DecodeSnapshot(raw, &snap); err != nil {
		return snap, err
	}
	if snap.FullName == "" {
		return snap, missingField("full_name")
	}
	return snap, nil
}

func (hireHandler) Validate(raw json.RawMessage) error {
	_, err := decodeHire(raw)
	return err
}

func (hireHandler) Apply(ctx context.Context, tx *gorm.DB, action *domain.PersonnelAction) error {
	snap, err := decodeHire(action.NewState)
	if err != nil {
		return err
	}

	emp := &domain.Employee{
		FullName:     snap.FullName,
		Position:     snap.Position,
		DepartmentID: snap.DepartmentID,
		SupervisorID: snap.SupervisorID,
		ContractType: snap.ContractType,
		Schedule:     snap.Schedule,
		Active:       true,
	}
	if snap.Salary != nil {
		emp.Salary = *snap.Salary
	}

	if err := repository.NewEmployeeRepository(tx).Create(ctx, emp); err != nil {
		return err
	}

	// Связываем действие с созданным сотрудником в той же транзакции
	return tx.Model(&domain.PersonnelAction{}).
		Where("id = ?", action.ID).
		Update("employee_id", emp.ID).Error
}

type positionChangeHandler struct{}

func decodePositionChange(raw json.RawMessage) (domain.PositionChangeSnapshot, error) {
	var snap domain.PositionChangeSnapshot
	if err := domain.DecodeSnapshot(raw, &snap); err != nil {
		return snap, err
	}
	if snap.NewPosition == "" {
		return snap, missingField("new_position")
	}
	return snap, nil
}

func (positionChangeHandler) Validate(raw json.RawMessage) error {
	_, err := decodePositionChange(raw)
	return err
}

func (positionChangeHandler) Apply(ctx context.Context, tx *gorm.DB, action *domain.PersonnelAction) error {
	employeeID, err := requireEmployee(action)
	if err != nil {
		return err
	}
	snap, err := decodePositionChange(action.NewState)
	if err != nil {
		return err
	}

	fields := map[string]any{"position": snap.NewPosition}
	if snap.NewSalary != nil {
		fields["salary"] = *snap.NewSalary
	}
	return repository.NewEmployeeRepository(tx).ApplyPartial(ctx, employeeID, fields)
}

type departmentChangeHandler struct{}

func decodeDepartmentChange(raw json.RawMessage) (domain.DepartmentChangeSnapshot, error) {
	var snap domain.DepartmentChangeSnapshot
	if err := domain.DecodeSnapshot(raw, &snap); err != nil {
		return snap, err
	}
	if snap.NewDepartmentID == 0 {
		return snap, missingField("new_department_id")
	}
	return snap, nil
}

func (departmentChangeHandler) Validate(raw json.RawMessage) error {
	_, err := decodeDepartmentChange(raw)
	return err
}

func (departmentChangeHandler) Apply(ctx context.Context, tx *gorm.DB, action *domain.PersonnelAction) error {
	employeeID, err := requireEmployee(action)
	if err != nil {
		return err
	}
	snap, err := decodeDepartmentChange(action.NewState)
	if err != nil {
		return err
	}

	fields := map[string]any{"department_id": snap.NewDepartmentID}
	if snap.NewSupervisorID != nil {
		fields["supervisor_id"] = *snap.NewSupervisorID
	}
	return repository.NewEmployeeRepository(tx).ApplyPartial(ctx, employeeID, fields)
}

type salaryAdjustmentHandler struct{}

func decodeSalaryAdjustment(raw json.RawMessage) (domain.SalaryAdjustmentSnapshot, error) {
	var snap domain.SalaryAdjustmentSnapshot
	if err := domain.DecodeSnapshot(raw, &snap); err != nil {
		return snap, err
	}
	if snap.NewSalary == nil {
		return snap, missingField("new_salary")
	}
	return snap, nil
}

func (salaryAdjustmentHandler) Validate(raw json.RawMessage) error {
	_, err := decodeSalaryAdjustment(raw)
	return err
}

func (salaryAdjustmentHandler) Apply(ctx context.Context, tx *gorm.DB, action *domain.PersonnelAction) error {
	employeeID, err := requireEmployee(action)
	if err != nil {
		return err
	}
	snap, err := decodeSalaryAdjustment(action.NewState)
	if err != nil {
		return err
	}

	return repository.NewEmployeeRepository(tx).ApplyPartial(ctx, employeeID, map[string]any{
		"salary": *snap.NewSalary,
	})
}

type supervisorChangeHandler struct{}

func decodeSupervisorChange(raw json.RawMessage) (domain.SupervisorChangeSnapshot, error) {
	var snap domain.SupervisorChangeSnapshot
	if err := domain.DecodeSnapshot(raw, &snap); err != nil {
		return snap, err
	}
	if snap.NewSupervisorID == nil {
		return snap, missingField("new_supervisor_id")
	}
	return snap, nil
}

func (supervisorChangeHandler) Validate(raw json.RawMessage) error {
	_, err := decodeSupervisorChange(raw)
	return err
}

func (supervisorChangeHandler) Apply(ctx context.Context, tx *gorm.DB, action *domain.PersonnelAction) error {
	employeeID, err := requireEmployee(action)
	if err != nil {
		return err
	}
	snap, err := decodeSupervisorChange(action.NewState)
	if err != nil {
		return err
	}

	return repository.NewEmployeeRepository(tx).ApplyPartial(ctx, employeeID, map[string]any{
		"supervisor_id": *snap.NewSupervisorID,
	})
}

type terminationHandler struct{}

func decodeTermination(raw json.RawMessage) (domain.TerminationSnapshot, error) {
	var snap domain.TerminationSnapshot
	if err := domain.DecodeSnapshot(raw, &snap); err != nil {
		return snap, err
	}
	if snap.ExitDate == "" {
		return snap, missingField("exit_date")
	}
	if snap.Reason == "" {
		return snap, missingField("reason")
	}
	if _, err := domain.ParseSnapshotDate("exit_date", snap.ExitDate); err != nil {
		return snap, err
	}
	return snap, nil
}

func (terminationHandler) Validate(raw json.RawMessage) error {
	_, err := decodeTermination(raw)
	return err
}

func (terminationHandler) Apply(ctx context.Context, tx *gorm.DB, action *domain.PersonnelAction) error {
	employeeID, err := requireEmployee(action)
	if err != nil {
		return err
	}
	snap, err := decodeTermination(action.NewState)
	if err != nil {
		return err
	}

	exitDate, err := domain.ParseSnapshotDate("exit_date", snap.ExitDate)
	if err != nil {
		return err
	}

	if err := repository.NewEmployeeRepository(tx).Deactivate(ctx, employeeID, exitDate, snap.Reason); err != nil {
		return err
	}

	// Связанная учётная запись отключается вместе с сотрудником
	return repository.NewUserRepository(tx).DeactivateByEmployee(ctx, employeeID)
}

type suspensionHandler struct{}

func decodeSuspension(raw json.RawMessage) (domain.SuspensionSnapshot, error) {
	var snap domain.SuspensionSnapshot
	if err := domain.DecodeSnapshot(raw, &snap); err != nil {
		return snap, err
	}
	if snap.Until != nil {
		if _, err := domain.ParseSnapshotDate("until", *snap.Until); err != nil {
			return snap, err
		}
	}
	return snap, nil
}

func (suspensionHandler) Validate(raw json.RawMessage) error {
	_, err := decodeSuspension(raw)
	return err
}

func (suspensionHandler) Apply(ctx context.Context, tx *gorm.DB, action *domain.PersonnelAction) error {
	employeeID, err := requireEmployee(action)
	if err != nil {
		return err
	}
	snap, err := decodeSuspension(action.NewState)
	if err != nil {
		return err
	}

	// Доступ блокируется только по явному запросу в снимке
	if !snap.SuspendAccess {
		return nil
	}

	var until *time.Time
	if snap.Until != nil {
		parsed, err := domain.ParseSnapshotDate("until", *snap.Until)
		if err != nil {
			return err
		}
		until = &parsed
	}

	return repository.NewUserRepository(tx).SuspendByEmployee(ctx, employeeID, until)
}

type scheduleChangeHandler struct{}

func decodeScheduleChange(raw json.RawMessage) (domain.ScheduleChangeSnapshot, error) {
	var snap domain.ScheduleChangeSnapshot
	if err := domain.DecodeSnapshot(raw, &snap); err != nil {
		return snap, err
	}
	if snap.NewSchedule == nil && snap.NewSalary == nil {
		return snap, missingField("new_schedule or new_salary")
	}
	return snap, nil
}

func (scheduleChangeHandler) Validate(raw json.RawMessage) error {
	_, err := decodeScheduleChange(raw)
	return err
}

func (scheduleChangeHandler) Apply(ctx context.Context, tx *gorm.DB, action *domain.PersonnelAction) error {
	employeeID, err := requireEmployee(action)
	if err != nil {
		return err
	}
	snap, err := decodeScheduleChange(action.NewState)
	if err != nil {
		return err
	}

	fields := map[string]any{}
	if snap.NewSchedule != nil {
		fields["schedule"] = *snap.NewSchedule
	}
	if snap.NewSalary != nil {
		fields["salary"] = *snap.NewSalary
	}
	return repository.NewEmployeeRepository(tx).ApplyPartial(ctx, employeeID, fields)
}

type contractChangeHandler struct{}

func decodeContractChange(raw json.RawMessage) (domain.ContractChangeSnapshot, error) {
	var snap domain.ContractChangeSnapshot
	if err := domain.DecodeSnapshot(raw, &snap); err != nil {
		return snap, err
	}
	if snap.NewContractType == nil && snap.NewExpiration == nil {
		return snap, missingField("new_contract_type or new_expiration_date")
	}
	if snap.NewExpiration != nil {
		if _, err := domain.ParseSnapshotDate("new_expiration_date", *snap.NewExpiration); err != nil {
			return snap, err
		}
	}
	return snap, nil
}

func (contractChangeHandler) Validate(raw json.RawMessage) error {
	_, err := decodeContractChange(raw)
	return err
}

func (contractChangeHandler) Apply(ctx context.Context, tx *gorm.DB, action *domain.PersonnelAction) error {
	employeeID, err := requireEmployee(action)
	if err != nil {
		return err
	}
	snap, err := decodeContractChange(action.NewState)
	if err != nil {
		return err
	}

	fields := map[string]any{}
	if snap.NewContractType != nil {
		fields["contract_type"] = *snap.NewContractType
	}
	if snap.NewExpiration != nil {
		expiration, err := domain.ParseSnapshotDate("new_expiration_date", *snap.NewExpiration)
		if err != nil {
			return err
		}
		fields["contract_end"] = expiration
	}
	return repository.NewEmployeeRepository(tx).ApplyPartial(ctx, employeeID, fields)
}

// noopHandler фиксирует действие в истории без изменения сотрудника
type noopHandler struct{}

func (noopHandler) Validate(raw json.RawMessage) error {
	// Снимок для исторических типов не обязателен
	if len(raw) == 0 {
		return nil
	}
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrMalformedSnapshot, err)
	}
	return nil
}

func (noopHandler) Apply(ctx context.Context, tx *gorm.DB, action *domain.PersonnelAction) error {
	return nil
}
