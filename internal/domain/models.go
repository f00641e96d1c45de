package domain

import (
	"encoding/json"
	"time"
)

// ActionStatus - статус кадрового действия в жизненном цикле
type ActionStatus string

const (
	StatusPending  ActionStatus = "pending"
	StatusApproved ActionStatus = "approved"
	StatusRejected ActionStatus = "rejected"
	StatusExecuted ActionStatus = "executed"
)

// Role - роль пользователя системы
type Role string

const (
	RoleEmployee   Role = "employee"
	RoleSupervisor Role = "supervisor"
	RoleHRAnalyst  Role = "hr_analyst"
	RoleHRManager  Role = "hr_manager"
)

// IsHR сообщает, относится ли роль к старшим HR-ролям
func (r Role) IsHR() bool {
	return r == RoleHRAnalyst || r == RoleHRManager
}

// PersonnelAction представляет кадровое действие: запрос на изменение
// записи сотрудника, проходящий путь запрос → согласование → исполнение
type PersonnelAction struct {
	ID            int64        `json:"id" gorm:"primaryKey;autoIncrement"`
	TypeCode      string       `json:"type_code" gorm:"type:varchar(50);not null;index"`
	EmployeeID    *int64       `json:"employee_id" gorm:"index"`
	RequesterID   int64        `json:"requester_id" gorm:"not null;index"`
	RequestDate   time.Time    `json:"request_date" gorm:"autoCreateTime"`
	EffectiveDate *time.Time   `json:"effective_date" gorm:"type:date"`
	Status        ActionStatus `json:"status" gorm:"type:varchar(20);not null;index;default:pending"`
	Justification string       `json:"justification" gorm:"type:text;not null"`

	PriorState json.RawMessage `json:"prior_state" gorm:"type:jsonb"`
	NewState   json.RawMessage `json:"new_state" gorm:"type:jsonb"`

	ApproverID       *int64     `json:"approver_id"`
	ApprovalDate     *time.Time `json:"approval_date"`
	ApprovalComments string     `json:"approval_comments" gorm:"type:text"`
	ReviewerID       *int64     `json:"reviewer_id"`
	ReviewDate       *time.Time `json:"review_date"`
	ReviewComments   string     `json:"review_comments" gorm:"type:text"`
	ExecutorID       *int64     `json:"executor_id"`
	ExecutionDate    *time.Time `json:"execution_date"`

	Documents []ActionDocument `json:"documents,omitempty" gorm:"foreignKey:ActionID;constraint:OnDelete:CASCADE"`
}

// TableName задаёт имя таблицы для GORM
func (PersonnelAction) TableName() string {
	return "personnel_actions"
}

// ActionDocument представляет метаданные документа, приложенного к действию
type ActionDocument struct {
	ID           int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	ActionID     int64     `json:"action_id" gorm:"not null;index"`
	DocumentType string    `json:"document_type" gorm:"type:varchar(100);not null"`
	FileName     string    `json:"file_name" gorm:"type:varchar(255);not null"`
	StoragePath  string    `json:"storage_path" gorm:"type:varchar(500);not null"`
	UploadDate   time.Time `json:"upload_date" gorm:"autoCreateTime"`
	UploadedBy   int64     `json:"uploaded_by" gorm:"not null"`
}

// TableName задаёт имя таблицы для GORM
func (ActionDocument) TableName() string {
	return "action_documents"
}

// Employee представляет сотрудника в справочнике сотрудников
type Employee struct {
	ID           int64      `json:"id" gorm:"primaryKey;autoIncrement"`
	FullName     string     `json:"full_name" gorm:"type:varchar(200);not null"`
	Position     string     `json:"position" gorm:"type:varchar(200)"`
	DepartmentID *int64     `json:"department_id" gorm:"index"`
	Salary       float64    `json:"salary"`
	SupervisorID *int64     `json:"supervisor_id"`
	ContractType string     `json:"contract_type" gorm:"type:varchar(50)"`
	ContractEnd  *time.Time `json:"contract_end" gorm:"type:date"`
	Schedule     string     `json:"schedule" gorm:"type:varchar(100)"`
	Active       bool       `json:"active" gorm:"not null;default:true"`
	ExitDate     *time.Time `json:"exit_date" gorm:"type:date"`
	ExitReason   string     `json:"exit_reason" gorm:"type:text"`
	CreatedAt    time.Time  `json:"created_at" gorm:"autoCreateTime"`
}

// TableName задаёт имя таблицы для GORM
func (Employee) TableName() string {
	return "employees"
}

// User представляет учётную запись пользователя системы
type User struct {
	ID             int64      `json:"id" gorm:"primaryKey;autoIncrement"`
	DisplayName    string     `json:"display_name" gorm:"type:varchar(200);not null"`
	Role           Role       `json:"role" gorm:"type:varchar(30);not null"`
	EmployeeID     *int64     `json:"employee_id" gorm:"index"`
	Active         bool       `json:"active" gorm:"not null;default:true"`
	SuspendedUntil *time.Time `json:"suspended_until" gorm:"type:date"`
	CreatedAt      time.Time  `json:"created_at" gorm:"autoCreateTime"`
}

// TableName задаёт имя таблицы для GORM
func (User) TableName() string {
	return "users"
}

// Actor - участник операции: идентификатор и роль, под которыми
// выполняется запрос
type Actor struct {
	ID          int64
	Role        Role
	DisplayName string
}
