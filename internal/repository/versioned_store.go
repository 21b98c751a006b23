package repository

import (
	"context"
	"errors"

	"procurement/pkg/apperror"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Versioned is the contract for rows protected by optimistic concurrency.
// Version increases by exactly 1 on every successful mutation.
type Versioned interface {
	EntityType() string
	EntityID() uuid.UUID
	CurrentVersion() int
	BumpVersion()
}

// VersionedStore is the compare-and-swap persistence primitive for mutable
// rows (Request, Stock). The protocol is always: lock the row, check the
// caller's observed version, mutate, then Save, which bumps the version and
// guards the UPDATE with the old one.
type VersionedStore struct {
	db *gorm.DB
}

func NewVersionedStore(db *gorm.DB) *VersionedStore {
	return &VersionedStore{db: db}
}

// forUpdate adds a row-level exclusive lock on dialects that support it.
// SQLite serializes writers on its own, so the clause is skipped there.
func forUpdate(db *gorm.DB) *gorm.DB {
	if db.Dialector.Name() == "postgres" {
		return db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return db
}

// LockForUpdate fetches the row by id into dest, holding an exclusive lock
// for the remainder of the enclosing transaction.
func (s *VersionedStore) LockForUpdate(ctx context.Context, dest Versioned, id uuid.UUID) error {
	err := forUpdate(GetDB(ctx, s.db)).First(dest, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.NotFound("%s %s not found", dest.EntityType(), id)
		}
		return err
	}
	return nil
}

// CheckVersion compares the caller's last-observed version against the locked
// row. A mismatch means another actor committed first; the caller must
// refetch and resubmit.
func (s *VersionedStore) CheckVersion(entity Versioned, observed int) error {
	if entity.CurrentVersion() != observed {
		return apperror.Conflict(
			"%s %s was modified concurrently (observed version %d, current %d); refresh and retry",
			entity.EntityType(), entity.EntityID(), observed, entity.CurrentVersion(),
		)
	}
	return nil
}

// Save persists a mutation, incrementing the version by exactly 1. The UPDATE
// is guarded by the pre-bump version so a lost lock still surfaces as
// Conflict instead of silently overwriting.
func (s *VersionedStore) Save(ctx context.Context, entity Versioned) error {
	oldVersion := entity.CurrentVersion()
	entity.BumpVersion()

	res := GetDB(ctx, s.db).
		Model(entity).
		Select("*").
		Omit("created_at").
		Where("version = ?", oldVersion).
		Updates(entity)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperror.Conflict("%s %s version changed during update", entity.EntityType(), entity.EntityID())
	}
	return nil
}
