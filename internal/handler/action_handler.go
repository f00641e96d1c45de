package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/personnel-actions-api/internal/catalog"
	"github.com/personnel-actions-api/internal/domain"
	"github.com/personnel-actions-api/internal/dto"
	"github.com/personnel-actions-api/internal/repository"
	"github.com/personnel-actions-api/internal/service"
)

// actorHeader - идентификатор участника, проставленный слоем
// аутентификации перед этим сервисом
const actorHeader = "X-Actor-ID"

type ActionHandler struct {
	actionService service.ActionService
	docService    service.DocumentService
	statsService  service.StatsService
	userRepo      repository.UserRepository
	validator     *validator.Validate
	logger        *slog.Logger
}

func NewActionHandler(
	actionService service.ActionService,
	docService service.DocumentService,
	statsService service.StatsService,
	userRepo repository.UserRepository,
	logger *slog.Logger,
) *ActionHandler {
	return &ActionHandler{
		actionService: actionService,
		docService:    docService,
		statsService:  statsService,
		userRepo:      userRepo,
		validator:     validator.New(),
		logger:        logger,
	}
}

func (h *ActionHandler) ListTypes(w http.ResponseWriter, r *http.Request) {
	grouped := catalog.TypesByCategory()

	resp := dto.TypeCatalogResponse{Types: make(map[string][]dto.TypeDefinitionResponse, len(grouped))}
	for category, defs := range grouped {
		out := make([]dto.TypeDefinitionResponse, len(defs))
		for i, def := range defs {
			out[i] = dto.TypeDefinitionResponse{
				TypeCode:         def.TypeCode,
				DisplayName:      def.DisplayName,
				Category:         string(def.Category),
				RequiresApproval: def.RequiresApproval,
			}
		}
		resp.Types[string(category)] = out
	}

	h.respondJSON(w, http.StatusOK, resp)
}

func (h *ActionHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.currentActor(w, r)
	if !ok {
		return
	}

	var req dto.CreateActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := h.validator.Struct(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "validation error", err.Error())
		return
	}

	action, err := h.actionService.Create(r.Context(), actor, &req)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	resp := h.toActionResponse(r, action, true)
	h.respondJSON(w, http.StatusCreated, dto.MutationResponse{
		Success: true,
		Message: "personnel action created",
		Action:  &resp,
	})
}

func (h *ActionHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.currentActor(w, r)
	if !ok {
		return
	}

	query := h.parseListQuery(r)
	if err := h.validator.Struct(&query); err != nil {
		h.respondError(w, http.StatusBadRequest, "validation error", err.Error())
		return
	}

	actions, err := h.actionService.List(r.Context(), actor, &query)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, h.toListResponse(actions))
}

func (h *ActionHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.currentActor(w, r)
	if !ok {
		return
	}

	actions, err := h.actionService.ListPending(r.Context(), actor)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, h.toListResponse(actions))
}

func (h *ActionHandler) Stats(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.currentActor(w, r)
	if !ok {
		return
	}

	stats, err := h.statsService.Overview(r.Context(), actor)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, dto.StatsResponse{Stats: *stats})
}

func (h *ActionHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.currentActor(w, r)
	if !ok {
		return
	}

	id, err := h.extractID(r)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid action id", err.Error())
		return
	}

	action, err := h.actionService.GetByID(r.Context(), actor, id)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, dto.ActionDetailResponse{Action: h.toActionResponse(r, action, true)})
}

func (h *ActionHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.currentActor(w, r)
	if !ok {
		return
	}

	id, err := h.extractID(r)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid action id", err.Error())
		return
	}

	var req dto.UpdateActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := h.validator.Struct(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "validation error", err.Error())
		return
	}

	action, err := h.actionService.Update(r.Context(), actor, id, &req)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	resp := h.toActionResponse(r, action, true)
	h.respondJSON(w, http.StatusOK, dto.MutationResponse{
		Success: true,
		Message: "personnel action updated",
		Action:  &resp,
	})
}

func (h *ActionHandler) Approve(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.currentActor(w, r)
	if !ok {
		return
	}

	id, err := h.extractID(r)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid action id", err.Error())
		return
	}

	var req dto.ApproveActionRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
			return
		}
	}

	action, err := h.actionService.Approve(r.Context(), actor, id, req.Comments)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	resp := h.toActionResponse(r, action, false)
	h.respondJSON(w, http.StatusOK, dto.MutationResponse{
		Success: true,
		Message: "personnel action approved",
		Action:  &resp,
	})
}

func (h *ActionHandler) Reject(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.currentActor(w, r)
	if !ok {
		return
	}

	id, err := h.extractID(r)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid action id", err.Error())
		return
	}

	var req dto.RejectActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := h.validator.Struct(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "validation error", err.Error())
		return
	}

	action, err := h.actionService.Reject(r.Context(), actor, id, req.Motive)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	resp := h.toActionResponse(r, action, false)
	h.respondJSON(w, http.StatusOK, dto.MutationResponse{
		Success: true,
		Message: "personnel action rejected",
		Action:  &resp,
	})
}

func (h *ActionHandler) Execute(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.currentActor(w, r)
	if !ok {
		return
	}

	id, err := h.extractID(r)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid action id", err.Error())
		return
	}

	action, err := h.actionService.Execute(r.Context(), actor, id)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	resp := h.toActionResponse(r, action, false)
	h.respondJSON(w, http.StatusOK, dto.MutationResponse{
		Success: true,
		Message: "personnel action executed",
		Action:  &resp,
	})
}

func (h *ActionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.currentActor(w, r)
	if !ok {
		return
	}

	id, err := h.extractID(r)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid action id", err.Error())
		return
	}

	if err := h.actionService.Delete(r.Context(), actor, id); err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, dto.MutationResponse{
		Success: true,
		Message: "personnel action deleted",
	})
}

func (h *ActionHandler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.currentActor(w, r)
	if !ok {
		return
	}

	id, err := h.extractID(r)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid action id", err.Error())
		return
	}

	// Лимиты размера и расширений применяет граничный слой загрузки
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid multipart form", err.Error())
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "file is required", err.Error())
		return
	}
	defer file.Close()

	documentType := r.FormValue("document_type")
	if documentType == "" {
		h.respondError(w, http.StatusBadRequest, "document_type is required", "")
		return
	}

	doc, err := h.docService.Attach(r.Context(), actor, id, file, header.Filename, documentType)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	resp := h.toDocumentResponse(doc)
	h.respondJSON(w, http.StatusCreated, dto.DocumentMutationResponse{
		Success:  true,
		Message:  "document attached",
		Document: &resp,
	})
}

func (h *ActionHandler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.currentActor(w, r)
	if !ok {
		return
	}

	id, err := h.extractID(r)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid action id", err.Error())
		return
	}

	docs, err := h.docService.List(r.Context(), actor, id)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	resp := dto.DocumentListResponse{Documents: make([]dto.DocumentResponse, len(docs))}
	for i := range docs {
		resp.Documents[i] = h.toDocumentResponse(&docs[i])
	}
	h.respondJSON(w, http.StatusOK, resp)
}

func (h *ActionHandler) EmployeeHistory(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.currentActor(w, r)
	if !ok {
		return
	}

	id, err := h.extractID(r)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid employee id", err.Error())
		return
	}

	actions, err := h.actionService.HistoryForEmployee(r.Context(), actor, id)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, h.toListResponse(actions))
}

// currentActor определяет участника запроса по заголовку, проставленному
// слоем аутентификации. При неудаче сам пишет ответ
func (h *ActionHandler) currentActor(w http.ResponseWriter, r *http.Request) (domain.Actor, bool) {
	raw := r.Header.Get(actorHeader)
	if raw == "" {
		h.respondError(w, http.StatusUnauthorized, "actor is not identified", "")
		return domain.Actor{}, false
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		h.respondError(w, http.StatusUnauthorized, "invalid actor id", err.Error())
		return domain.Actor{}, false
	}

	actor, err := h.userRepo.GetActor(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrActorNotFound) {
			h.respondError(w, http.StatusUnauthorized, "unknown actor", "")
		} else {
			h.logger.Error("failed to resolve actor", slog.Any("error", err))
			h.respondError(w, http.StatusInternalServerError, "internal server error", "")
		}
		return domain.Actor{}, false
	}

	return actor, true
}

func (h *ActionHandler) extractID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

func (h *ActionHandler) parseListQuery(r *http.Request) dto.ActionListQuery {
	var query dto.ActionListQuery
	values := r.URL.Query()

	if v := values.Get("type_code"); v != "" {
		query.TypeCode = &v
	}
	if v := values.Get("status"); v != "" {
		query.Status = &v
	}
	if v := values.Get("employee_id"); v != "" {
		if employeeID, err := strconv.ParseInt(v, 10, 64); err == nil {
			query.EmployeeID = &employeeID
		}
	}
	if v := values.Get("date_from"); v != "" {
		query.DateFrom = &v
	}
	if v := values.Get("date_to"); v != "" {
		query.DateTo = &v
	}

	return query
}

func (h *ActionHandler) toListResponse(actions []domain.PersonnelAction) dto.ActionListResponse {
	resp := dto.ActionListResponse{Actions: make([]dto.ActionResponse, len(actions))}
	for i := range actions {
		resp.Actions[i] = h.toActionResponseBrief(&actions[i])
	}
	return resp
}

// toActionResponseBrief - представление для списков: без снимков,
// документов и обращений к справочнику пользователей
func (h *ActionHandler) toActionResponseBrief(action *domain.PersonnelAction) dto.ActionResponse {
	resp := dto.ActionResponse{
		ID:            action.ID,
		TypeCode:      action.TypeCode,
		EmployeeID:    action.EmployeeID,
		RequesterID:   action.RequesterID,
		RequestDate:   action.RequestDate,
		Status:        string(action.Status),
		Justification: action.Justification,
		ApproverID:    action.ApproverID,
		ApprovalDate:  action.ApprovalDate,
		ReviewerID:    action.ReviewerID,
		ReviewDate:    action.ReviewDate,
		ExecutorID:    action.ExecutorID,
		ExecutionDate: action.ExecutionDate,
	}

	if def, ok := catalog.Lookup(action.TypeCode); ok {
		resp.TypeName = def.DisplayName
		resp.Category = string(def.Category)
	}
	if action.EffectiveDate != nil {
		effectiveDate := action.EffectiveDate.Format("2006-01-02")
		resp.EffectiveDate = &effectiveDate
	}

	return resp
}

func (h *ActionHandler) toActionResponse(r *http.Request, action *domain.PersonnelAction, withDocuments bool) dto.ActionResponse {
	resp := h.toActionResponseBrief(action)
	resp.PriorState = action.PriorState
	resp.NewState = action.NewState
	resp.ApprovalComments = action.ApprovalComments
	resp.ReviewComments = action.ReviewComments

	names := h.actionService.DisplayNames(r.Context(), action)
	resp.RequesterName = names[action.RequesterID]
	if action.ApproverID != nil {
		resp.ApproverName = names[*action.ApproverID]
	}
	if action.ReviewerID != nil {
		resp.ReviewerName = names[*action.ReviewerID]
	}
	if action.ExecutorID != nil {
		resp.ExecutorName = names[*action.ExecutorID]
	}

	if withDocuments && len(action.Documents) > 0 {
		resp.Documents = make([]dto.DocumentResponse, len(action.Documents))
		for i := range action.Documents {
			resp.Documents[i] = h.toDocumentResponse(&action.Documents[i])
		}
	}

	return resp
}

func (h *ActionHandler) toDocumentResponse(doc *domain.ActionDocument) dto.DocumentResponse {
	return dto.DocumentResponse{
		ID:           doc.ID,
		ActionID:     doc.ActionID,
		DocumentType: doc.DocumentType,
		FileName:     doc.FileName,
		StoragePath:  doc.StoragePath,
		UploadDate:   doc.UploadDate,
		UploadedBy:   doc.UploadedBy,
	}
}

func (h *ActionHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrActionNotFound):
		h.respondError(w, http.StatusNotFound, "personnel action not found", "")
	case errors.Is(err, domain.ErrEmployeeNotFound):
		h.respondError(w, http.StatusNotFound, "employee not found", "")
	case errors.Is(err, domain.ErrActorNotFound):
		h.respondError(w, http.StatusNotFound, "actor not found", "")
	case errors.Is(err, domain.ErrUnknownActionType):
		h.respondError(w, http.StatusBadRequest, "unknown action type", err.Error())
	case errors.Is(err, domain.ErrMotiveRequired):
		h.respondError(w, http.StatusBadRequest, "rejection motive is required", "")
	case errors.Is(err, domain.ErrJustificationEmpty):
		h.respondError(w, http.StatusBadRequest, "justification is required", "")
	case errors.Is(err, domain.ErrEmployeeIDRequired):
		h.respondError(w, http.StatusBadRequest, "employee_id is required for this action type", "")
	case errors.Is(err, domain.ErrMalformedSnapshot), errors.Is(err, domain.ErrSnapshotFieldMissing):
		h.respondError(w, http.StatusBadRequest, "invalid state snapshot", err.Error())
	case errors.Is(err, domain.ErrNotAuthorized):
		h.respondError(w, http.StatusForbidden, "operation is not allowed for this actor", "")
	case errors.Is(err, domain.ErrStatusConflict):
		h.respondError(w, http.StatusConflict, "action status does not allow this transition", "")
	case errors.Is(err, domain.ErrExecutionFailed):
		h.logger.Error("action execution failed", slog.Any("error", err))
		h.respondError(w, http.StatusInternalServerError, "action execution failed", "")
	default:
		h.logger.Error("internal error", slog.Any("error", err))
		h.respondError(w, http.StatusInternalServerError, "internal server error", "")
	}
}

func (h *ActionHandler) respondJSON(w http.ResponseWriter, status int, data any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", slog.Any("error", err))
	}
}

func (h *ActionHandler) respondError(w http.ResponseWriter, status int, errMsg, details string) {
	w.WriteHeader(status)
	resp := dto.ErrorResponse{Success: false, Error: errMsg}
	if details != "" {
		resp.Message = details
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("failed to encode error response", slog.Any("error", err))
	}
}
