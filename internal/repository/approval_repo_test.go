package repository

import (
	"context"
	"testing"

	"procurement/internal/model"
	"procurement/pkg/apperror"
)

func TestApprovalRepo_OneRowPerStep(t *testing.T) {
	db := testDB(t)
	repo := NewApprovalRepository(db)
	ctx := context.Background()

	requester := seedUser(t, db, "EMP-200", model.RoleEmployee)
	purchasing := seedUser(t, db, "PUR-200", model.RolePurchasing)
	other := seedUser(t, db, "PUR-201", model.RolePurchasing)
	request := seedRequest(t, db, requester, "REQ-2026-000010")

	if _, err := repo.CreateStep(ctx, request.ID, purchasing.ID, model.StepVerify); err != nil {
		t.Fatalf("CreateStep: %v", err)
	}

	// Same step again, even for a different approver, is a conflict.
	_, err := repo.CreateStep(ctx, request.ID, other.ID, model.StepVerify)
	if !apperror.IsKind(err, apperror.KindConflict) {
		t.Fatalf("duplicate step: err = %v, want Conflict", err)
	}
}

func TestApprovalRepo_OneStepPerApprover(t *testing.T) {
	db := testDB(t)
	repo := NewApprovalRepository(db)
	ctx := context.Background()

	requester := seedUser(t, db, "EMP-201", model.RoleEmployee)
	approver := seedUser(t, db, "PUR-210", model.RolePurchasing)
	request := seedRequest(t, db, requester, "REQ-2026-000011")

	if _, err := repo.CreateStep(ctx, request.ID, approver.ID, model.StepVerify); err != nil {
		t.Fatalf("CreateStep: %v", err)
	}

	// The same person cannot hold the second slot too.
	_, err := repo.CreateStep(ctx, request.ID, approver.ID, model.StepApprove)
	if !apperror.IsKind(err, apperror.KindConflict) {
		t.Fatalf("same approver twice: err = %v, want Conflict", err)
	}
}

func TestApprovalRepo_DecideExactlyOnce(t *testing.T) {
	db := testDB(t)
	repo := NewApprovalRepository(db)
	ctx := context.Background()

	requester := seedUser(t, db, "EMP-202", model.RoleEmployee)
	approver := seedUser(t, db, "PUR-220", model.RolePurchasing)
	request := seedRequest(t, db, requester, "REQ-2026-000012")

	slot, err := repo.CreateStep(ctx, request.ID, approver.ID, model.StepVerify)
	if err != nil {
		t.Fatalf("CreateStep: %v", err)
	}
	if !slot.Pending() {
		t.Fatal("new slot should be pending")
	}

	if err := repo.Decide(ctx, slot, model.ActionVerify, "checked"); err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if slot.Pending() || *slot.Action != model.ActionVerify {
		t.Error("slot not marked decided")
	}

	// A decided slot is never overwritten.
	err = repo.Decide(ctx, slot, model.ActionReject, "changed my mind")
	if !apperror.IsKind(err, apperror.KindNoPendingApproval) {
		t.Fatalf("second Decide: err = %v, want NoPendingApproval", err)
	}

	// And the pending lookup no longer finds it.
	_, err = repo.PendingForStep(ctx, request.ID, model.StepVerify)
	if !apperror.IsKind(err, apperror.KindNoPendingApproval) {
		t.Fatalf("PendingForStep after decide: err = %v, want NoPendingApproval", err)
	}
}

func TestApprovalRepo_PendingForStepMissing(t *testing.T) {
	db := testDB(t)
	repo := NewApprovalRepository(db)

	requester := seedUser(t, db, "EMP-203", model.RoleEmployee)
	request := seedRequest(t, db, requester, "REQ-2026-000013")

	_, err := repo.PendingForStep(context.Background(), request.ID, model.StepApprove)
	if !apperror.IsKind(err, apperror.KindNoPendingApproval) {
		t.Fatalf("err = %v, want NoPendingApproval", err)
	}
}
