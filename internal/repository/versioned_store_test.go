package repository

import (
	"context"
	"testing"

	"procurement/internal/model"
	"procurement/pkg/apperror"

	"github.com/google/uuid"
)

func TestVersionedStore_SaveBumpsByExactlyOne(t *testing.T) {
	db := testDB(t)
	store := NewVersionedStore(db)
	user := seedUser(t, db, "EMP-100", model.RoleEmployee)
	request := seedRequest(t, db, user, "REQ-2026-000001")
	ctx := context.Background()

	if request.Version != 1 {
		t.Fatalf("initial version = %d, want 1", request.Version)
	}

	request.Status = model.StatusSubmitted
	if err := store.Save(ctx, request); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if request.Version != 2 {
		t.Errorf("in-memory version = %d, want 2", request.Version)
	}

	var reloaded model.Request
	if err := db.First(&reloaded, "id = ?", request.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Version != 2 || reloaded.Status != model.StatusSubmitted {
		t.Errorf("persisted version=%d status=%s, want 2/SUBMITTED", reloaded.Version, reloaded.Status)
	}
}

func TestVersionedStore_SaveGuardsAgainstLostUpdate(t *testing.T) {
	db := testDB(t)
	store := NewVersionedStore(db)
	user := seedUser(t, db, "EMP-101", model.RoleEmployee)
	request := seedRequest(t, db, user, "REQ-2026-000002")
	ctx := context.Background()

	// A second actor commits first.
	if err := db.Model(&model.Request{}).Where("id = ?", request.ID).
		Update("version", 2).Error; err != nil {
		t.Fatalf("simulate concurrent commit: %v", err)
	}

	// This Save still believes version 1 and must not overwrite.
	err := store.Save(ctx, request)
	if !apperror.IsKind(err, apperror.KindConflict) {
		t.Fatalf("Save: err = %v, want Conflict", err)
	}
}

func TestVersionedStore_CheckVersion(t *testing.T) {
	db := testDB(t)
	store := NewVersionedStore(db)
	user := seedUser(t, db, "EMP-102", model.RoleEmployee)
	request := seedRequest(t, db, user, "REQ-2026-000003")

	if err := store.CheckVersion(request, 1); err != nil {
		t.Errorf("matching version: %v", err)
	}
	err := store.CheckVersion(request, 7)
	if !apperror.IsKind(err, apperror.KindConflict) {
		t.Errorf("mismatched version: err = %v, want Conflict", err)
	}
}

func TestVersionedStore_LockForUpdateNotFound(t *testing.T) {
	db := testDB(t)
	store := NewVersionedStore(db)

	var request model.Request
	err := store.LockForUpdate(context.Background(), &request, uuid.New())
	if !apperror.IsKind(err, apperror.KindNotFound) {
		t.Fatalf("err = %v, want NotFound", err)
	}
}
