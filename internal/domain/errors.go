package domain

import "errors"

// Определение бизнес-ошибок
var (
	ErrActionNotFound   = errors.New("personnel action not found")
	ErrEmployeeNotFound = errors.New("employee not found")
	ErrActorNotFound    = errors.New("actor not found")

	ErrUnknownActionType    = errors.New("unknown action type code")
	ErrMotiveRequired       = errors.New("rejection motive is required")
	ErrJustificationEmpty   = errors.New("justification is required")
	ErrEmployeeIDRequired   = errors.New("employee_id is required for this action type")
	ErrMalformedSnapshot    = errors.New("malformed state snapshot")
	ErrSnapshotFieldMissing = errors.New("required snapshot field is missing")

	ErrNotAuthorized = errors.New("actor is not authorized for this operation")

	ErrStatusConflict = errors.New("action status does not allow this transition")

	ErrExecutionFailed = errors.New("action execution failed")
)
