package auth_test

import (
	"testing"

	"github.com/personnel-actions-api/internal/auth"
	"github.com/personnel-actions-api/internal/domain"
)

var (
	worker  = domain.Actor{ID: 1, Role: domain.RoleEmployee}
	lead    = domain.Actor{ID: 2, Role: domain.RoleSupervisor}
	analyst = domain.Actor{ID: 3, Role: domain.RoleHRAnalyst}
	manager = domain.Actor{ID: 4, Role: domain.RoleHRManager}
)

func TestCanViewAll(t *testing.T) {
	g := auth.NewGuard()

	for _, actor := range []domain.Actor{worker, lead} {
		if g.CanViewAll(actor) {
			t.Errorf("role %s should not see all actions", actor.Role)
		}
	}
	for _, actor := range []domain.Actor{analyst, manager} {
		if !g.CanViewAll(actor) {
			t.Errorf("role %s should see all actions", actor.Role)
		}
	}
}

func TestCanView_RequesterOrHR(t *testing.T) {
	g := auth.NewGuard()
	action := &domain.PersonnelAction{RequesterID: lead.ID}

	if !g.CanView(lead, action) {
		t.Error("requester denied own action")
	}
	if g.CanView(worker, action) {
		t.Error("unrelated actor sees foreign action")
	}
	if !g.CanView(analyst, action) {
		t.Error("HR denied action")
	}
}

func TestCanUpdate_OwnerWhilePendingOnly(t *testing.T) {
	g := auth.NewGuard()

	pending := &domain.PersonnelAction{RequesterID: lead.ID, Status: domain.StatusPending}
	approved := &domain.PersonnelAction{RequesterID: lead.ID, Status: domain.StatusApproved}

	if !g.CanUpdate(lead, pending) {
		t.Error("owner cannot update pending action")
	}
	if g.CanUpdate(lead, approved) {
		t.Error("owner can update approved action")
	}
	// Даже HR не правит чужой запрос - только решает его судьбу
	if g.CanUpdate(manager, pending) {
		t.Error("non-owner can update action")
	}
}

func TestApprovalRightsAreHROnly(t *testing.T) {
	g := auth.NewGuard()

	for _, actor := range []domain.Actor{worker, lead} {
		if g.CanApprove(actor) || g.CanReject(actor) || g.CanExecute(actor) {
			t.Errorf("role %s has approval rights", actor.Role)
		}
	}
	for _, actor := range []domain.Actor{analyst, manager} {
		if !g.CanApprove(actor) || !g.CanReject(actor) || !g.CanExecute(actor) {
			t.Errorf("role %s lacks approval rights", actor.Role)
		}
	}
}

func TestCanDelete_OwnerOrHR(t *testing.T) {
	g := auth.NewGuard()
	action := &domain.PersonnelAction{RequesterID: lead.ID, Status: domain.StatusPending}

	if !g.CanDelete(lead, action) {
		t.Error("owner cannot delete own action")
	}
	if g.CanDelete(worker, action) {
		t.Error("unrelated actor can delete foreign action")
	}
	if !g.CanDelete(manager, action) {
		t.Error("HR cannot delete action")
	}
}
