package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/personnel-actions-api/internal/auth"
	"github.com/personnel-actions-api/internal/domain"
	"github.com/personnel-actions-api/internal/repository"
	"github.com/personnel-actions-api/internal/service"
)

func setupDocService(t *testing.T, e *env) service.DocumentService {
	t.Helper()
	return service.NewDocumentService(
		repository.NewDocumentRepository(e.db),
		repository.NewActionRepository(e.db),
		auth.NewGuard(),
		e.store,
	)
}

func TestAttach_StoresFileAndMetadata(t *testing.T) {
	e := setupEnv(t)
	docs := setupDocService(t, e)
	emp := e.createEmployee(t, &domain.Employee{})

	action := createPending(t, e, supervisor, "salary_adjustment", &emp.ID, `{"new_salary":50000}`)

	doc, err := docs.Attach(context.Background(), supervisor, action.ID, strings.NewReader("pdf bytes"), "memo.pdf", "memo")
	if err != nil {
		t.Fatalf("Attach failed: %v", err)
	}
	if doc.ActionID != action.ID || doc.FileName != "memo.pdf" || doc.DocumentType != "memo" {
		t.Errorf("metadata mismatch: %+v", doc)
	}
	if doc.UploadedBy != supervisor.ID {
		t.Errorf("uploader not recorded: %d", doc.UploadedBy)
	}
	if len(e.store.saved) != 1 || doc.StoragePath != e.store.saved[0] {
		t.Errorf("storage path mismatch: %q vs %v", doc.StoragePath, e.store.saved)
	}

	listed, err := docs.List(context.Background(), supervisor, action.ID)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(listed) != 1 || listed[0].ID != doc.ID {
		t.Errorf("attached document not listed: %v", listed)
	}
}

func TestAttach_MissingActionCleansUpBlob(t *testing.T) {
	e := setupEnv(t)
	docs := setupDocService(t, e)

	_, err := docs.Attach(context.Background(), supervisor, 999, strings.NewReader("pdf bytes"), "memo.pdf", "memo")
	if !errors.Is(err, domain.ErrActionNotFound) {
		t.Fatalf("expected ErrActionNotFound, got %v", err)
	}

	// Сохранённый файл не должен остаться сиротой
	if len(e.store.saved) != 1 || len(e.store.removed) != 1 {
		t.Fatalf("blob not cleaned up: saved %v, removed %v", e.store.saved, e.store.removed)
	}
	if e.store.removed[0] != e.store.saved[0] {
		t.Errorf("removed a different path: %q vs %q", e.store.removed[0], e.store.saved[0])
	}
}

func TestAttach_ForeignActionDenied(t *testing.T) {
	e := setupEnv(t)
	docs := setupDocService(t, e)
	emp := e.createEmployee(t, &domain.Employee{})

	action := createPending(t, e, supervisor, "salary_adjustment", &emp.ID, `{"new_salary":50000}`)

	_, err := docs.Attach(context.Background(), employee, action.ID, strings.NewReader("x"), "memo.pdf", "memo")
	if !errors.Is(err, domain.ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
	if len(e.store.removed) != 1 {
		t.Errorf("blob not cleaned up after denial")
	}
}

func TestListDocuments_VisibilityFollowsAction(t *testing.T) {
	e := setupEnv(t)
	docs := setupDocService(t, e)
	emp := e.createEmployee(t, &domain.Employee{})

	action := createPending(t, e, supervisor, "salary_adjustment", &emp.ID, `{"new_salary":50000}`)
	if _, err := docs.Attach(context.Background(), supervisor, action.ID, strings.NewReader("x"), "memo.pdf", "memo"); err != nil {
		t.Fatalf("Attach failed: %v", err)
	}

	if _, err := docs.List(context.Background(), employee, action.ID); !errors.Is(err, domain.ErrNotAuthorized) {
		t.Errorf("expected ErrNotAuthorized, got %v", err)
	}
	if _, err := docs.List(context.Background(), hrManager, action.ID); err != nil {
		t.Errorf("HR denied document list: %v", err)
	}
	if _, err := docs.List(context.Background(), supervisor, 999); !errors.Is(err, domain.ErrActionNotFound) {
		t.Errorf("expected ErrActionNotFound, got %v", err)
	}
}
