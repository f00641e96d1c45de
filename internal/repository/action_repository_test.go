package repository_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/personnel-actions-api/internal/domain"
	"github.com/personnel-actions-api/internal/repository"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()

	// _fk=1 включает каскады внешних ключей, как в производственной схеме
	db, err := gorm.Open(sqlite.Open("file::memory:?_fk=1"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	// Одно соединение, иначе каждое получит собственную :memory: базу
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(&domain.Employee{}, &domain.User{}, &domain.PersonnelAction{}, &domain.ActionDocument{})
	if err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	return db
}

func createAction(t *testing.T, repo repository.ActionRepository, action *domain.PersonnelAction) *domain.PersonnelAction {
	t.Helper()
	if action.Status == "" {
		action.Status = domain.StatusPending
	}
	if action.TypeCode == "" {
		action.TypeCode = "salary_adjustment"
	}
	if action.Justification == "" {
		action.Justification = "test justification"
	}
	if err := repo.Create(context.Background(), action); err != nil {
		t.Fatalf("failed to create action: %v", err)
	}
	return action
}

func int64Ptr(v int64) *int64 { return &v }

func TestCreateAndGetByID_SnapshotRoundTrip(t *testing.T) {
	repo := repository.NewActionRepository(setupDB(t))

	snapshot := json.RawMessage(`{"new_salary":60000,"new_position":"Senior Analyst"}`)
	action := createAction(t, repo, &domain.PersonnelAction{
		EmployeeID: int64Ptr(7),
		NewState:   snapshot,
	})

	got, err := repo.GetByID(context.Background(), action.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}

	var want, have map[string]any
	if err := json.Unmarshal(snapshot, &want); err != nil {
		t.Fatalf("unmarshal want: %v", err)
	}
	if err := json.Unmarshal(got.NewState, &have); err != nil {
		t.Fatalf("unmarshal have: %v", err)
	}
	if len(want) != len(have) {
		t.Fatalf("snapshot mismatch: want %v, have %v", want, have)
	}
	for k, v := range want {
		if have[k] != v {
			t.Errorf("snapshot field %s: want %v, have %v", k, v, have[k])
		}
	}
}

func TestGetByID_NotFound(t *testing.T) {
	repo := repository.NewActionRepository(setupDB(t))

	_, err := repo.GetByID(context.Background(), 999)
	if !errors.Is(err, domain.ErrActionNotFound) {
		t.Errorf("expected ErrActionNotFound, got %v", err)
	}
}

func TestList_ScopedByRequester(t *testing.T) {
	repo := repository.NewActionRepository(setupDB(t))

	createAction(t, repo, &domain.PersonnelAction{RequesterID: 1, EmployeeID: int64Ptr(5)})
	createAction(t, repo, &domain.PersonnelAction{RequesterID: 2, EmployeeID: int64Ptr(5)})
	createAction(t, repo, &domain.PersonnelAction{RequesterID: 1, EmployeeID: int64Ptr(6)})

	actions, err := repo.List(context.Background(), repository.ActionFilter{RequesterID: int64Ptr(1)})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(actions) != 2 {
		t.Fatalf("expected 2 actions, got %d", len(actions))
	}
	for _, a := range actions {
		if a.RequesterID != 1 {
			t.Errorf("leaked action of requester %d", a.RequesterID)
		}
	}
}

func TestList_OrderedByRequestDateDesc(t *testing.T) {
	repo := repository.NewActionRepository(setupDB(t))

	base := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	for i := range 3 {
		createAction(t, repo, &domain.PersonnelAction{
			RequesterID: 1,
			EmployeeID:  int64Ptr(5),
			RequestDate: base.Add(time.Duration(i) * time.Hour),
		})
	}

	actions, err := repo.List(context.Background(), repository.ActionFilter{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	for i := 1; i < len(actions); i++ {
		if actions[i-1].RequestDate.Before(actions[i].RequestDate) {
			t.Errorf("actions not ordered by request_date desc")
		}
	}
}

func TestList_FiltersByStatusAndType(t *testing.T) {
	repo := repository.NewActionRepository(setupDB(t))

	createAction(t, repo, &domain.PersonnelAction{RequesterID: 1, EmployeeID: int64Ptr(5), TypeCode: "promotion"})
	approved := createAction(t, repo, &domain.PersonnelAction{RequesterID: 1, EmployeeID: int64Ptr(5), TypeCode: "termination"})

	err := repo.Transition(context.Background(), approved.ID, domain.StatusPending, domain.StatusApproved, nil)
	if err != nil {
		t.Fatalf("Transition failed: %v", err)
	}

	status := domain.StatusApproved
	actions, err := repo.List(context.Background(), repository.ActionFilter{Status: &status})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(actions) != 1 || actions[0].ID != approved.ID {
		t.Fatalf("status filter failed: %v", actions)
	}

	typeCode := "promotion"
	actions, err = repo.List(context.Background(), repository.ActionFilter{TypeCode: &typeCode})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(actions) != 1 || actions[0].TypeCode != "promotion" {
		t.Fatalf("type filter failed: %v", actions)
	}
}

func TestListPending_FIFO(t *testing.T) {
	repo := repository.NewActionRepository(setupDB(t))

	base := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	// Создаём в обратном хронологическом порядке
	for i := 2; i >= 0; i-- {
		createAction(t, repo, &domain.PersonnelAction{
			RequesterID: 1,
			EmployeeID:  int64Ptr(5),
			RequestDate: base.Add(time.Duration(i) * time.Hour),
		})
	}

	actions, err := repo.ListPending(context.Background())
	if err != nil {
		t.Fatalf("ListPending failed: %v", err)
	}
	if len(actions) != 3 {
		t.Fatalf("expected 3 pending actions, got %d", len(actions))
	}
	for i := 1; i < len(actions); i++ {
		if actions[i-1].RequestDate.After(actions[i].RequestDate) {
			t.Errorf("pending queue not ordered oldest-first")
		}
	}
}

func TestTransition_StampsApproval(t *testing.T) {
	repo := repository.NewActionRepository(setupDB(t))
	action := createAction(t, repo, &domain.PersonnelAction{RequesterID: 1, EmployeeID: int64Ptr(5)})

	now := time.Now()
	err := repo.Transition(context.Background(), action.ID, domain.StatusPending, domain.StatusApproved, map[string]any{
		"approver_id":       int64(42),
		"approval_date":     now,
		"approval_comments": "ok",
	})
	if err != nil {
		t.Fatalf("Transition failed: %v", err)
	}

	got, err := repo.GetByID(context.Background(), action.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Status != domain.StatusApproved {
		t.Errorf("expected approved, got %s", got.Status)
	}
	if got.ApproverID == nil || *got.ApproverID != 42 {
		t.Errorf("approver not stamped: %v", got.ApproverID)
	}
	if got.ApprovalComments != "ok" {
		t.Errorf("comments not stamped: %q", got.ApprovalComments)
	}
}

func TestTransition_ConflictOnWrongStatus(t *testing.T) {
	repo := repository.NewActionRepository(setupDB(t))
	action := createAction(t, repo, &domain.PersonnelAction{RequesterID: 1, EmployeeID: int64Ptr(5)})

	err := repo.Transition(context.Background(), action.ID, domain.StatusPending, domain.StatusApproved, nil)
	if err != nil {
		t.Fatalf("first transition failed: %v", err)
	}

	// Повторное согласование и отклонение согласованного - конфликт
	err = repo.Transition(context.Background(), action.ID, domain.StatusPending, domain.StatusApproved, nil)
	if !errors.Is(err, domain.ErrStatusConflict) {
		t.Errorf("expected ErrStatusConflict, got %v", err)
	}
	err = repo.Transition(context.Background(), action.ID, domain.StatusPending, domain.StatusRejected, nil)
	if !errors.Is(err, domain.ErrStatusConflict) {
		t.Errorf("expected ErrStatusConflict, got %v", err)
	}

	got, _ := repo.GetByID(context.Background(), action.ID)
	if got.Status != domain.StatusApproved {
		t.Errorf("status changed by failed transition: %s", got.Status)
	}
}

func TestTransition_NotFound(t *testing.T) {
	repo := repository.NewActionRepository(setupDB(t))

	err := repo.Transition(context.Background(), 999, domain.StatusPending, domain.StatusApproved, nil)
	if !errors.Is(err, domain.ErrActionNotFound) {
		t.Errorf("expected ErrActionNotFound, got %v", err)
	}
}

func TestUpdatePending_ConflictAfterApproval(t *testing.T) {
	repo := repository.NewActionRepository(setupDB(t))
	action := createAction(t, repo, &domain.PersonnelAction{RequesterID: 1, EmployeeID: int64Ptr(5)})

	if err := repo.UpdatePending(context.Background(), action.ID, map[string]any{"justification": "updated"}); err != nil {
		t.Fatalf("UpdatePending failed: %v", err)
	}

	if err := repo.Transition(context.Background(), action.ID, domain.StatusPending, domain.StatusApproved, nil); err != nil {
		t.Fatalf("Transition failed: %v", err)
	}

	err := repo.UpdatePending(context.Background(), action.ID, map[string]any{"justification": "late edit"})
	if !errors.Is(err, domain.ErrStatusConflict) {
		t.Errorf("expected ErrStatusConflict, got %v", err)
	}

	got, _ := repo.GetByID(context.Background(), action.ID)
	if got.Justification != "updated" {
		t.Errorf("justification overwritten after approval: %q", got.Justification)
	}
}

func TestExecute_CommitsEffectsAndStamps(t *testing.T) {
	db := setupDB(t)
	repo := repository.NewActionRepository(db)

	emp := &domain.Employee{FullName: "Maria Lopez", Position: "Analyst", Salary: 40000, Active: true}
	if err := db.Create(emp).Error; err != nil {
		t.Fatalf("failed to create employee: %v", err)
	}

	action := createAction(t, repo, &domain.PersonnelAction{RequesterID: 1, EmployeeID: &emp.ID})
	if err := repo.Transition(context.Background(), action.ID, domain.StatusPending, domain.StatusApproved, nil); err != nil {
		t.Fatalf("Transition failed: %v", err)
	}

	err := repo.Execute(context.Background(), action.ID, 42, func(tx *gorm.DB, a *domain.PersonnelAction) error {
		return tx.Model(&domain.Employee{}).Where("id = ?", *a.EmployeeID).Update("salary", 60000).Error
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	got, _ := repo.GetByID(context.Background(), action.ID)
	if got.Status != domain.StatusExecuted {
		t.Errorf("expected executed, got %s", got.Status)
	}
	if got.ExecutorID == nil || *got.ExecutorID != 42 {
		t.Errorf("executor not stamped: %v", got.ExecutorID)
	}
	if got.ExecutionDate == nil {
		t.Errorf("execution date not stamped")
	}

	var updated domain.Employee
	if err := db.First(&updated, emp.ID).Error; err != nil {
		t.Fatalf("failed to reload employee: %v", err)
	}
	if updated.Salary != 60000 {
		t.Errorf("expected salary 60000, got %v", updated.Salary)
	}
}

func TestExecute_RollsBackOnApplyFailure(t *testing.T) {
	db := setupDB(t)
	repo := repository.NewActionRepository(db)

	emp := &domain.Employee{FullName: "Maria Lopez", Salary: 40000, Active: true}
	if err := db.Create(emp).Error; err != nil {
		t.Fatalf("failed to create employee: %v", err)
	}

	action := createAction(t, repo, &domain.PersonnelAction{RequesterID: 1, EmployeeID: &emp.ID})
	if err := repo.Transition(context.Background(), action.ID, domain.StatusPending, domain.StatusApproved, map[string]any{
		"approver_id": int64(42),
	}); err != nil {
		t.Fatalf("Transition failed: %v", err)
	}

	applyErr := errors.New("directory write failed")
	err := repo.Execute(context.Background(), action.ID, 42, func(tx *gorm.DB, a *domain.PersonnelAction) error {
		if err := tx.Model(&domain.Employee{}).Where("id = ?", *a.EmployeeID).Update("salary", 99999).Error; err != nil {
			return err
		}
		return applyErr
	})
	if !errors.Is(err, applyErr) {
		t.Fatalf("expected apply error, got %v", err)
	}

	// Статус остался approved, отметки согласования сохранены,
	// изменение сотрудника откатилось
	got, _ := repo.GetByID(context.Background(), action.ID)
	if got.Status != domain.StatusApproved {
		t.Errorf("expected approved after rollback, got %s", got.Status)
	}
	if got.ApproverID == nil || *got.ApproverID != 42 {
		t.Errorf("approval metadata lost after rollback")
	}
	if got.ExecutorID != nil {
		t.Errorf("executor stamped despite rollback")
	}

	var unchanged domain.Employee
	db.First(&unchanged, emp.ID)
	if unchanged.Salary != 40000 {
		t.Errorf("employee mutation not rolled back: %v", unchanged.Salary)
	}
}

func TestExecute_ConflictWhenNotApproved(t *testing.T) {
	db := setupDB(t)
	repo := repository.NewActionRepository(db)

	emp := &domain.Employee{FullName: "Pedro Ruiz", Active: true}
	if err := db.Create(emp).Error; err != nil {
		t.Fatalf("failed to create employee: %v", err)
	}

	action := createAction(t, repo, &domain.PersonnelAction{RequesterID: 1, EmployeeID: &emp.ID})

	called := false
	err := repo.Execute(context.Background(), action.ID, 42, func(tx *gorm.DB, a *domain.PersonnelAction) error {
		called = true
		return nil
	})
	if !errors.Is(err, domain.ErrStatusConflict) {
		t.Errorf("expected ErrStatusConflict, got %v", err)
	}
	if called {
		t.Errorf("apply ran for a pending action")
	}

	got, _ := repo.GetByID(context.Background(), action.ID)
	if got.Status != domain.StatusPending {
		t.Errorf("status changed: %s", got.Status)
	}
}

func TestExecute_ConcurrentExactlyOnce(t *testing.T) {
	db := setupDB(t)
	repo := repository.NewActionRepository(db)

	emp := &domain.Employee{FullName: "Ana Silva", Salary: 40000, Active: true}
	if err := db.Create(emp).Error; err != nil {
		t.Fatalf("failed to create employee: %v", err)
	}

	action := createAction(t, repo, &domain.PersonnelAction{RequesterID: 1, EmployeeID: &emp.ID})
	if err := repo.Transition(context.Background(), action.ID, domain.StatusPending, domain.StatusApproved, nil); err != nil {
		t.Fatalf("Transition failed: %v", err)
	}

	var mu sync.Mutex
	applied := 0
	results := make([]error, 2)

	var wg sync.WaitGroup
	for i := range 2 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = repo.Execute(context.Background(), action.ID, int64(100+i), func(tx *gorm.DB, a *domain.PersonnelAction) error {
				mu.Lock()
				applied++
				mu.Unlock()
				return tx.Model(&domain.Employee{}).Where("id = ?", *a.EmployeeID).Update("salary", gorm.Expr("salary + ?", 1000)).Error
			})
		}(i)
	}
	wg.Wait()

	var successes, conflicts int
	for _, err := range results {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, domain.ErrStatusConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if successes != 1 || conflicts != 1 {
		t.Fatalf("expected exactly one commit and one conflict, got %d/%d", successes, conflicts)
	}
	if applied != 1 {
		t.Errorf("employee mutation applied %d times", applied)
	}

	var updated domain.Employee
	db.First(&updated, emp.ID)
	if updated.Salary != 41000 {
		t.Errorf("expected salary 41000, got %v", updated.Salary)
	}
}

func TestDelete_CascadesDocuments(t *testing.T) {
	db := setupDB(t)
	repo := repository.NewActionRepository(db)
	docRepo := repository.NewDocumentRepository(db)

	// Каскад по внешнему ключу должен быть активен: метаданные обязаны
	// вернуться из Delete даже когда их строки удаляет сама БД
	var fkEnabled int
	if err := db.Raw("PRAGMA foreign_keys").Scan(&fkEnabled).Error; err != nil || fkEnabled != 1 {
		t.Fatalf("foreign keys not enforced: %d %v", fkEnabled, err)
	}

	action := createAction(t, repo, &domain.PersonnelAction{RequesterID: 1, EmployeeID: int64Ptr(5)})

	doc := &domain.ActionDocument{
		ActionID:     action.ID,
		DocumentType: "contract",
		FileName:     "contract.pdf",
		StoragePath:  "/tmp/contract.pdf",
		UploadedBy:   1,
	}
	if err := docRepo.Create(context.Background(), doc); err != nil {
		t.Fatalf("failed to create document: %v", err)
	}

	documents, err := repo.Delete(context.Background(), action.ID)
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if len(documents) != 1 || documents[0].StoragePath != "/tmp/contract.pdf" {
		t.Fatalf("expected deleted documents returned, got %v", documents)
	}

	if _, err := repo.GetByID(context.Background(), action.ID); !errors.Is(err, domain.ErrActionNotFound) {
		t.Errorf("action still present after delete")
	}
	remaining, _ := docRepo.GetByActionID(context.Background(), action.ID)
	if len(remaining) != 0 {
		t.Errorf("documents not cascaded: %v", remaining)
	}
}

func TestDelete_ExecutedActionConflict(t *testing.T) {
	db := setupDB(t)
	repo := repository.NewActionRepository(db)

	emp := &domain.Employee{FullName: "Luis Vega", Active: true}
	if err := db.Create(emp).Error; err != nil {
		t.Fatalf("failed to create employee: %v", err)
	}

	action := createAction(t, repo, &domain.PersonnelAction{RequesterID: 1, EmployeeID: &emp.ID})
	if err := repo.Transition(context.Background(), action.ID, domain.StatusPending, domain.StatusApproved, nil); err != nil {
		t.Fatalf("Transition failed: %v", err)
	}
	if err := repo.Execute(context.Background(), action.ID, 42, func(tx *gorm.DB, a *domain.PersonnelAction) error {
		return nil
	}); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	_, err := repo.Delete(context.Background(), action.ID)
	if !errors.Is(err, domain.ErrStatusConflict) {
		t.Errorf("expected ErrStatusConflict, got %v", err)
	}
	if _, err := repo.GetByID(context.Background(), action.ID); err != nil {
		t.Errorf("executed action disappeared: %v", err)
	}
}

func TestDelete_RejectedActionAllowed(t *testing.T) {
	repo := repository.NewActionRepository(setupDB(t))

	action := createAction(t, repo, &domain.PersonnelAction{RequesterID: 1, EmployeeID: int64Ptr(5)})
	if err := repo.Transition(context.Background(), action.ID, domain.StatusPending, domain.StatusRejected, nil); err != nil {
		t.Fatalf("Transition failed: %v", err)
	}

	if _, err := repo.Delete(context.Background(), action.ID); err != nil {
		t.Errorf("delete of rejected action failed: %v", err)
	}
}

func TestHistoryForEmployee_ExecutedOnly(t *testing.T) {
	db := setupDB(t)
	repo := repository.NewActionRepository(db)

	emp := &domain.Employee{FullName: "Carla Diaz", Active: true}
	if err := db.Create(emp).Error; err != nil {
		t.Fatalf("failed to create employee: %v", err)
	}

	createAction(t, repo, &domain.PersonnelAction{RequesterID: 1, EmployeeID: &emp.ID})
	executed := createAction(t, repo, &domain.PersonnelAction{RequesterID: 1, EmployeeID: &emp.ID})
	if err := repo.Transition(context.Background(), executed.ID, domain.StatusPending, domain.StatusApproved, nil); err != nil {
		t.Fatalf("Transition failed: %v", err)
	}
	if err := repo.Execute(context.Background(), executed.ID, 42, func(tx *gorm.DB, a *domain.PersonnelAction) error {
		return nil
	}); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	history, err := repo.HistoryForEmployee(context.Background(), emp.ID)
	if err != nil {
		t.Fatalf("HistoryForEmployee failed: %v", err)
	}
	if len(history) != 1 || history[0].ID != executed.ID {
		t.Fatalf("expected only the executed action, got %v", history)
	}
}

func TestCounts(t *testing.T) {
	repo := repository.NewActionRepository(setupDB(t))

	createAction(t, repo, &domain.PersonnelAction{RequesterID: 1, EmployeeID: int64Ptr(5), TypeCode: "promotion"})
	createAction(t, repo, &domain.PersonnelAction{RequesterID: 1, EmployeeID: int64Ptr(5), TypeCode: "termination"})
	rejected := createAction(t, repo, &domain.PersonnelAction{RequesterID: 1, EmployeeID: int64Ptr(5), TypeCode: "termination"})
	if err := repo.Transition(context.Background(), rejected.ID, domain.StatusPending, domain.StatusRejected, nil); err != nil {
		t.Fatalf("Transition failed: %v", err)
	}

	counts, err := repo.Counts(context.Background())
	if err != nil {
		t.Fatalf("Counts failed: %v", err)
	}
	if counts.Total != 3 {
		t.Errorf("expected total 3, got %d", counts.Total)
	}
	if counts.ByStatus[domain.StatusPending] != 2 {
		t.Errorf("expected 2 pending, got %d", counts.ByStatus[domain.StatusPending])
	}
	if counts.ByStatus[domain.StatusRejected] != 1 {
		t.Errorf("expected 1 rejected, got %d", counts.ByStatus[domain.StatusRejected])
	}
	if counts.ByType["termination"] != 2 {
		t.Errorf("expected 2 terminations, got %d", counts.ByType["termination"])
	}
}
