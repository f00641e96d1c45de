package dto

import (
	"encoding/json"
	"time"
)

// CreateActionRequest - запрос на создание кадрового действия
type CreateActionRequest struct {
	TypeCode      string          `json:"type_code" validate:"required,min=1,max=50"`
	EmployeeID    *int64          `json:"employee_id" validate:"omitempty,min=1"`
	EffectiveDate *string         `json:"effective_date" validate:"omitempty,datetime=2006-01-02"`
	Justification string          `json:"justification" validate:"required,min=1"`
	PriorState    json.RawMessage `json:"prior_state"`
	NewState      json.RawMessage `json:"new_state" validate:"required"`
}

// UpdateActionRequest - запрос на изменение ожидающего действия
type UpdateActionRequest struct {
	EffectiveDate *string         `json:"effective_date" validate:"omitempty,datetime=2006-01-02"`
	Justification *string         `json:"justification" validate:"omitempty,min=1"`
	NewState      json.RawMessage `json:"new_state"`
}

// ApproveActionRequest - запрос на согласование
type ApproveActionRequest struct {
	Comments string `json:"comments"`
}

// RejectActionRequest - запрос на отклонение; мотив обязателен
type RejectActionRequest struct {
	Motive string `json:"motive" validate:"required,min=1"`
}

// ActionListQuery - параметры фильтрации списка действий
type ActionListQuery struct {
	TypeCode   *string `validate:"omitempty,min=1,max=50"`
	Status     *string `validate:"omitempty,oneof=pending approved rejected executed"`
	EmployeeID *int64  `validate:"omitempty,min=1"`
	DateFrom   *string `validate:"omitempty,datetime=2006-01-02"`
	DateTo     *string `validate:"omitempty,datetime=2006-01-02"`
}

// ActionResponse - данные кадрового действия
type ActionResponse struct {
	ID            int64           `json:"id"`
	TypeCode      string          `json:"type_code"`
	TypeName      string          `json:"type_name,omitempty"`
	Category      string          `json:"category,omitempty"`
	EmployeeID    *int64          `json:"employee_id"`
	RequesterID   int64           `json:"requester_id"`
	RequesterName string          `json:"requester_name,omitempty"`
	RequestDate   time.Time       `json:"request_date"`
	EffectiveDate *string         `json:"effective_date,omitempty"`
	Status        string          `json:"status"`
	Justification string          `json:"justification"`
	PriorState    json.RawMessage `json:"prior_state,omitempty"`
	NewState      json.RawMessage `json:"new_state,omitempty"`

	ApproverID       *int64     `json:"approver_id,omitempty"`
	ApproverName     string     `json:"approver_name,omitempty"`
	ApprovalDate     *time.Time `json:"approval_date,omitempty"`
	ApprovalComments string     `json:"approval_comments,omitempty"`
	ReviewerID       *int64     `json:"reviewer_id,omitempty"`
	ReviewerName     string     `json:"reviewer_name,omitempty"`
	ReviewDate       *time.Time `json:"review_date,omitempty"`
	ReviewComments   string     `json:"review_comments,omitempty"`
	ExecutorID       *int64     `json:"executor_id,omitempty"`
	ExecutorName     string     `json:"executor_name,omitempty"`
	ExecutionDate    *time.Time `json:"execution_date,omitempty"`

	Documents []DocumentResponse `json:"documents,omitempty"`
}

// DocumentResponse - метаданные приложенного документа
type DocumentResponse struct {
	ID           int64     `json:"id"`
	ActionID     int64     `json:"action_id"`
	DocumentType string    `json:"document_type"`
	FileName     string    `json:"file_name"`
	StoragePath  string    `json:"storage_path"`
	UploadDate   time.Time `json:"upload_date"`
	UploadedBy   int64     `json:"uploaded_by"`
}

// MutationResponse - ответ на изменяющую операцию
type MutationResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Action  *ActionResponse `json:"action,omitempty"`
}

// DocumentMutationResponse - ответ на загрузку документа
type DocumentMutationResponse struct {
	Success  bool              `json:"success"`
	Message  string            `json:"message"`
	Document *DocumentResponse `json:"document,omitempty"`
}

// ActionListResponse - ответ со списком действий
type ActionListResponse struct {
	Actions []ActionResponse `json:"actions"`
}

// ActionDetailResponse - ответ с одним действием
type ActionDetailResponse struct {
	Action ActionResponse `json:"action"`
}

// DocumentListResponse - ответ со списком документов
type DocumentListResponse struct {
	Documents []DocumentResponse `json:"documents"`
}

// TypeCatalogResponse - каталог типов, сгруппированный по категориям
type TypeCatalogResponse struct {
	Types map[string][]TypeDefinitionResponse `json:"types"`
}

// TypeDefinitionResponse - определение типа действия
type TypeDefinitionResponse struct {
	TypeCode         string `json:"type_code"`
	DisplayName      string `json:"display_name"`
	Category         string `json:"category"`
	RequiresApproval bool   `json:"requires_approval"`
}

// StatsResponse - статистика для панели управления
type StatsResponse struct {
	Stats ActionStats `json:"stats"`
}

// ActionStats - агрегаты по действиям
type ActionStats struct {
	Total        int64            `json:"total"`
	ByStatus     map[string]int64 `json:"by_status"`
	ByCategory   map[string]int64 `json:"by_category"`
	PendingQueue int64            `json:"pending_queue"`
}

// ErrorResponse - стандартный ответ с ошибкой
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
