package repository

import (
	"testing"

	"procurement/internal/model"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func testDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	err = db.AutoMigrate(
		&model.Department{},
		&model.User{},
		&model.Stock{},
		&model.Request{},
		&model.RequestItem{},
		&model.Approval{},
		&model.StatusHistory{},
		&model.Vendor{},
		&model.ProcurementOrder{},
		&model.ProcurementOrderItem{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedUser(t *testing.T, db *gorm.DB, code, role string) *model.User {
	t.Helper()
	u := &model.User{
		Name:         code,
		EmployeeCode: code,
		Email:        code + "@corp.test",
		Password:     "x",
		Role:         role,
		IsActive:     true,
	}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("seed user %s: %v", code, err)
	}
	return u
}

func seedRequest(t *testing.T, db *gorm.DB, requester *model.User, number string) *model.Request {
	t.Helper()
	r := &model.Request{
		RequestNumber: number,
		RequesterID:   requester.ID,
		Title:         "test " + number,
		Status:        model.StatusDraft,
	}
	if err := db.Create(r).Error; err != nil {
		t.Fatalf("seed request %s: %v", number, err)
	}
	return r
}
