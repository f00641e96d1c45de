package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Снимки состояния хранятся в БД как JSON. Каждый тип действия
// декодирует собственную типизированную структуру, поэтому набор
// ожидаемых полей фиксирован на этапе компиляции, а обязательные
// поля проверяются при декодировании.

// HireSnapshot - данные для приёма нового сотрудника
type HireSnapshot struct {
	FullName     string   `json:"full_name"`
	Position     string   `json:"position,omitempty"`
	DepartmentID *int64   `json:"department_id,omitempty"`
	Salary       *float64 `json:"salary,omitempty"`
	SupervisorID *int64   `json:"supervisor_id,omitempty"`
	ContractType string   `json:"contract_type,omitempty"`
	Schedule     string   `json:"schedule,omitempty"`
}

// PositionChangeSnapshot - повышение или смена должности
type PositionChangeSnapshot struct {
	NewPosition string   `json:"new_position"`
	NewSalary   *float64 `json:"new_salary,omitempty"`
}

// DepartmentChangeSnapshot - перевод в другое подразделение
type DepartmentChangeSnapshot struct {
	NewDepartmentID int64  `json:"new_department_id"`
	NewSupervisorID *int64 `json:"new_supervisor_id,omitempty"`
}

// SalaryAdjustmentSnapshot - изменение оклада
type SalaryAdjustmentSnapshot struct {
	NewSalary *float64 `json:"new_salary"`
}

// SupervisorChangeSnapshot - смена руководителя
type SupervisorChangeSnapshot struct {
	NewSupervisorID *int64 `json:"new_supervisor_id"`
}

// TerminationSnapshot - увольнение сотрудника
type TerminationSnapshot struct {
	ExitDate string `json:"exit_date"`
	Reason   string `json:"reason"`
}

// SuspensionSnapshot - отстранение; доступ блокируется только если
// это явно запрошено
type SuspensionSnapshot struct {
	SuspendAccess bool    `json:"suspend_access,omitempty"`
	Until         *string `json:"until,omitempty"`
}

// ScheduleChangeSnapshot - изменение графика и/или оклада
type ScheduleChangeSnapshot struct {
	NewSchedule *string  `json:"new_schedule,omitempty"`
	NewSalary   *float64 `json:"new_salary,omitempty"`
}

// ContractChangeSnapshot - изменение типа контракта и/или срока
type ContractChangeSnapshot struct {
	NewContractType *string `json:"new_contract_type,omitempty"`
	NewExpiration   *string `json:"new_expiration_date,omitempty"`
}

// DecodeSnapshot разбирает JSON-снимок в типизированную структуру
func DecodeSnapshot(raw json.RawMessage, dst any) error {
	if len(raw) == 0 {
		return fmt.Errorf("%w: empty snapshot", ErrMalformedSnapshot)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
	}
	return nil
}

// ParseSnapshotDate разбирает дату в формате YYYY-MM-DD из снимка
func ParseSnapshotDate(field, value string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s", ErrMalformedSnapshot, field)
	}
	return t, nil
}
