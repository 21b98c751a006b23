package database

import (
	"testing"

	"procurement/internal/model"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

// The schema must migrate on sqlite too, since the test suites run against
// it. Postgres-only DDL in a gorm tag would break every suite at setup.
func TestMigrate_SQLiteDialect(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := Migrate(db); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	// IDs come from the BeforeCreate hooks, not a column default.
	u := &model.User{
		Name:         "First User",
		EmployeeCode: "EMP-001",
		Email:        "first.user@corp.test",
		Password:     "x",
		Role:         model.RoleEmployee,
		IsActive:     true,
	}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	if u.ID.String() == "00000000-0000-0000-0000-000000000000" {
		t.Error("user ID was not generated")
	}
}
