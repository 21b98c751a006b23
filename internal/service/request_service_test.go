package service

import (
	"context"
	"testing"

	"procurement/internal/database"
	"procurement/internal/model"
	"procurement/internal/repository"
	"procurement/pkg/apperror"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func testDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

type fixtureUsers struct {
	employee   *model.User
	purchasing *model.User
	manager    *model.User
	warehouse  *model.User
}

func seedUsers(t *testing.T, db *gorm.DB) fixtureUsers {
	t.Helper()
	dept := &model.Department{Code: "IT", Name: "Information Technology"}
	if err := db.Create(dept).Error; err != nil {
		t.Fatalf("seed department: %v", err)
	}

	mk := func(code, email, role string) *model.User {
		u := &model.User{
			DepartmentID: &dept.ID,
			Name:         code,
			EmployeeCode: code,
			Email:        email,
			Password:     "x",
			Role:         role,
			IsActive:     true,
		}
		if err := db.Create(u).Error; err != nil {
			t.Fatalf("seed user %s: %v", code, err)
		}
		return u
	}

	return fixtureUsers{
		employee:   mk("EMP-001", "emp@corp.test", model.RoleEmployee),
		purchasing: mk("PUR-001", "pur@corp.test", model.RolePurchasing),
		manager:    mk("MGR-001", "mgr@corp.test", model.RolePurchasingManager),
		warehouse:  mk("WHS-001", "whs@corp.test", model.RoleWarehouse),
	}
}

func seedStock(t *testing.T, db *gorm.DB, sku string, quantity int64) *model.Stock {
	t.Helper()
	stock := &model.Stock{
		SKU:      sku,
		Name:     sku,
		Unit:     "pcs",
		Quantity: decimal.NewFromInt(quantity),
	}
	if err := db.Create(stock).Error; err != nil {
		t.Fatalf("seed stock: %v", err)
	}
	return stock
}

func createDraft(t *testing.T, svc RequestService, actor *model.User, items []CreateItemDTO) *model.Request {
	t.Helper()
	request, err := svc.Create(context.Background(), actor, CreateRequestDTO{
		Title: "New laptops",
		Items: items,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return request
}

func historyFor(t *testing.T, db *gorm.DB, request *model.Request) []model.StatusHistory {
	t.Helper()
	var records []model.StatusHistory
	if err := db.Where("entity_type = ? AND entity_id = ?", "request", request.ID).
		Order("created_at ASC, to_status ASC").
		Find(&records).Error; err != nil {
		t.Fatalf("load history: %v", err)
	}
	return records
}

func TestRequestLifecycle_HappyPathWithStock(t *testing.T) {
	db := testDB(t)
	users := seedUsers(t, db)
	stock := seedStock(t, db, "LAPTOP-14", 10)
	svc := NewRequestService(db, nil)
	ctx := context.Background()

	request := createDraft(t, svc, users.employee, []CreateItemDTO{
		{ItemName: "Laptop 14", Quantity: decimal.NewFromInt(3), Unit: "pcs", StockID: &stock.ID},
	})
	if request.Status != model.StatusDraft {
		t.Fatalf("Status = %s, want DRAFT", request.Status)
	}
	if request.Version != 1 {
		t.Fatalf("Version = %d, want 1", request.Version)
	}
	if request.RequestNumber == "" {
		t.Fatal("RequestNumber not assigned")
	}

	request, err := svc.Submit(ctx, request.ID, users.employee, 1)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if request.Status != model.StatusSubmitted || request.Version != 2 {
		t.Fatalf("after submit: status=%s version=%d", request.Status, request.Version)
	}
	if request.SubmittedAt == nil {
		t.Error("SubmittedAt not set")
	}

	request, err = svc.Verify(ctx, request.ID, users.purchasing, VerifyRequestDTO{Version: 2, Notes: "ok"})
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if request.Status != model.StatusVerified || request.Version != 3 {
		t.Fatalf("after verify: status=%s version=%d", request.Status, request.Version)
	}

	request, err = svc.Approve(ctx, request.ID, users.manager, ApproveRequestDTO{Version: 3})
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	// Sufficient stock: approve chains to READY with its own version bump.
	if request.Status != model.StatusReady {
		t.Fatalf("after approve: status=%s, want READY", request.Status)
	}
	if request.Version != 5 {
		t.Fatalf("after approve: version=%d, want 5 (APPROVED then READY)", request.Version)
	}

	var reloaded model.Stock
	if err := db.First(&reloaded, "id = ?", stock.ID).Error; err != nil {
		t.Fatalf("reload stock: %v", err)
	}
	if !reloaded.Reserved.Equal(decimal.NewFromInt(3)) {
		t.Errorf("stock reserved = %s, want 3", reloaded.Reserved)
	}
	if reloaded.Version != stock.Version+1 {
		t.Errorf("stock version = %d, want %d", reloaded.Version, stock.Version+1)
	}

	records := historyFor(t, db, request)
	if len(records) != 5 {
		t.Fatalf("history rows = %d, want 5", len(records))
	}
	if records[0].FromStatus != nil {
		t.Errorf("creation record FromStatus = %v, want nil", *records[0].FromStatus)
	}
	last := records[len(records)-1]
	if last.ToStatus != model.StatusReady || *last.FromStatus != model.StatusApproved {
		t.Errorf("last record %s -> %s, want APPROVED -> READY", *last.FromStatus, last.ToStatus)
	}

	// Both approval slots are decided.
	var approvals []model.Approval
	if err := db.Where("request_id = ?", request.ID).Order("step ASC").Find(&approvals).Error; err != nil {
		t.Fatalf("load approvals: %v", err)
	}
	if len(approvals) != 2 {
		t.Fatalf("approvals = %d, want 2", len(approvals))
	}
	if approvals[0].Pending() || *approvals[0].Action != model.ActionVerify {
		t.Errorf("step 1 not decided as VERIFY")
	}
	if approvals[1].Pending() || *approvals[1].Action != model.ActionApprove {
		t.Errorf("step 2 not decided as APPROVE")
	}

	request, err = svc.Complete(ctx, request.ID, users.warehouse, 5)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if request.Status != model.StatusCompleted || request.Version != 6 {
		t.Fatalf("after complete: status=%s version=%d", request.Status, request.Version)
	}
	if request.CompletedAt == nil {
		t.Error("CompletedAt not set")
	}
}

func TestRequestLifecycle_InsufficientStockGoesToProcurement(t *testing.T) {
	db := testDB(t)
	users := seedUsers(t, db)
	stock := seedStock(t, db, "MONITOR-27", 1)
	svc := NewRequestService(db, nil)
	ctx := context.Background()

	request := createDraft(t, svc, users.employee, []CreateItemDTO{
		{ItemName: "Monitor 27", Quantity: decimal.NewFromInt(5), Unit: "pcs", StockID: &stock.ID},
	})
	if _, err := svc.Submit(ctx, request.ID, users.employee, 1); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, err := svc.Verify(ctx, request.ID, users.purchasing, VerifyRequestDTO{Version: 2}); err != nil {
		t.Fatalf("Verify: %v", err)
	}

	request, err := svc.Approve(ctx, request.ID, users.manager, ApproveRequestDTO{Version: 3})
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if request.Status != model.StatusInProcurement {
		t.Fatalf("status = %s, want IN_PROCUREMENT", request.Status)
	}

	// The failed reservation left the stock row untouched.
	var reloaded model.Stock
	if err := db.First(&reloaded, "id = ?", stock.ID).Error; err != nil {
		t.Fatalf("reload stock: %v", err)
	}
	if !reloaded.Reserved.IsZero() {
		t.Errorf("stock reserved = %s, want 0", reloaded.Reserved)
	}
	if reloaded.Version != stock.Version {
		t.Errorf("stock version = %d, want unchanged %d", reloaded.Version, stock.Version)
	}
}

func TestRequestLifecycle_ProcureReceiveComplete(t *testing.T) {
	db := testDB(t)
	users := seedUsers(t, db)
	svc := NewRequestService(db, nil)
	ctx := context.Background()

	vendor := &model.Vendor{Code: "ACME", Name: "Acme Supplies", IsActive: true}
	if err := db.Create(vendor).Error; err != nil {
		t.Fatalf("seed vendor: %v", err)
	}

	// No stock link: approve always routes to IN_PROCUREMENT.
	request := createDraft(t, svc, users.employee, []CreateItemDTO{
		{ItemName: "Standing desk", Quantity: decimal.NewFromInt(2), Unit: "pcs"},
	})
	if _, err := svc.Submit(ctx, request.ID, users.employee, 1); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, err := svc.Verify(ctx, request.ID, users.purchasing, VerifyRequestDTO{Version: 2}); err != nil {
		t.Fatalf("Verify: %v", err)
	}
	request, err := svc.Approve(ctx, request.ID, users.manager, ApproveRequestDTO{Version: 3})
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if request.Status != model.StatusInProcurement {
		t.Fatalf("status = %s, want IN_PROCUREMENT", request.Status)
	}

	po, err := svc.Procure(ctx, request.ID, users.purchasing, ProcureRequestDTO{
		Version:  5,
		VendorID: vendor.ID,
		Items: []ProcureItemDTO{
			{ItemName: "Standing desk", Quantity: decimal.NewFromInt(2), UnitPrice: decimal.NewFromInt(450)},
		},
	})
	if err != nil {
		t.Fatalf("Procure: %v", err)
	}
	if po.PONumber == "" {
		t.Error("PONumber not assigned")
	}
	if !po.TotalAmount.Equal(decimal.NewFromInt(900)) {
		t.Errorf("TotalAmount = %s, want 900", po.TotalAmount)
	}
	if len(po.Items) != 1 {
		t.Errorf("po items = %d, want 1", len(po.Items))
	}

	// Already IN_PROCUREMENT: the PO bumped the version without a new
	// transition record.
	records := historyFor(t, db, request)
	if records[len(records)-1].ToStatus != model.StatusInProcurement {
		t.Errorf("unexpected transition recorded by procure")
	}

	request, err = svc.Receive(ctx, request.ID, users.warehouse, 6)
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if request.Status != model.StatusReady {
		t.Fatalf("after receive: status=%s, want READY", request.Status)
	}

	request, err = svc.Complete(ctx, request.ID, users.warehouse, 7)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if request.Status != model.StatusCompleted {
		t.Fatalf("after complete: status=%s, want COMPLETED", request.Status)
	}
}

func TestRequestLifecycle_RejectIsTerminal(t *testing.T) {
	db := testDB(t)
	users := seedUsers(t, db)
	svc := NewRequestService(db, nil)
	ctx := context.Background()

	request := createDraft(t, svc, users.employee, []CreateItemDTO{
		{ItemName: "Ergonomic chair", Quantity: decimal.NewFromInt(1), Unit: "pcs"},
	})
	if _, err := svc.Submit(ctx, request.ID, users.employee, 1); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, err := svc.Verify(ctx, request.ID, users.purchasing, VerifyRequestDTO{Version: 2}); err != nil {
		t.Fatalf("Verify: %v", err)
	}

	request, err := svc.Reject(ctx, request.ID, users.manager, RejectRequestDTO{Version: 3, Reason: "out of budget"})
	if err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if request.Status != model.StatusRejected || request.Version != 4 {
		t.Fatalf("after reject: status=%s version=%d", request.Status, request.Version)
	}

	records := historyFor(t, db, request)
	last := records[len(records)-1]
	if last.Reason != "out of budget" {
		t.Errorf("reject reason = %q, want 'out of budget'", last.Reason)
	}

	// Step 2 carries the rejection.
	var step2 model.Approval
	if err := db.Where("request_id = ? AND step = ?", request.ID, model.StepApprove).First(&step2).Error; err != nil {
		t.Fatalf("load step 2: %v", err)
	}
	if step2.Pending() || *step2.Action != model.ActionReject {
		t.Error("step 2 not decided as REJECT")
	}

	// Terminal: nothing moves out of REJECTED.
	if _, err := svc.Complete(ctx, request.ID, users.warehouse, 4); !apperror.IsKind(err, apperror.KindUnprocessableTransition) {
		t.Errorf("Complete after reject: err = %v, want UnprocessableTransition", err)
	}
}

func TestRequestLifecycle_StaleVersionConflicts(t *testing.T) {
	db := testDB(t)
	users := seedUsers(t, db)
	svc := NewRequestService(db, nil)
	ctx := context.Background()

	request := createDraft(t, svc, users.employee, []CreateItemDTO{
		{ItemName: "Whiteboard", Quantity: decimal.NewFromInt(1), Unit: "pcs"},
	})
	if _, err := svc.Submit(ctx, request.ID, users.employee, 1); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	// Observed version 1 is stale: the submit bumped it to 2.
	_, err := svc.Verify(ctx, request.ID, users.purchasing, VerifyRequestDTO{Version: 1})
	if !apperror.IsKind(err, apperror.KindConflict) {
		t.Fatalf("Verify with stale version: err = %v, want Conflict", err)
	}

	// The failed attempt changed nothing.
	reloaded, err := repository.NewRequestRepository(db).GetByID(ctx, request.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Status != model.StatusSubmitted || reloaded.Version != 2 {
		t.Errorf("after conflict: status=%s version=%d, want SUBMITTED/2", reloaded.Status, reloaded.Version)
	}
}

func TestRequestLifecycle_IllegalTransitionRejected(t *testing.T) {
	db := testDB(t)
	users := seedUsers(t, db)
	svc := NewRequestService(db, nil)
	ctx := context.Background()

	request := createDraft(t, svc, users.employee, []CreateItemDTO{
		{ItemName: "Projector", Quantity: decimal.NewFromInt(1), Unit: "pcs"},
	})

	// DRAFT cannot be verified.
	_, err := svc.Verify(ctx, request.ID, users.purchasing, VerifyRequestDTO{Version: 1})
	if !apperror.IsKind(err, apperror.KindUnprocessableTransition) {
		t.Fatalf("Verify on DRAFT: err = %v, want UnprocessableTransition", err)
	}

	if _, err := svc.Submit(ctx, request.ID, users.employee, 1); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	// Double submit is illegal even with the right version.
	_, err = svc.Submit(ctx, request.ID, users.employee, 2)
	if !apperror.IsKind(err, apperror.KindUnprocessableTransition) {
		t.Fatalf("second Submit: err = %v, want UnprocessableTransition", err)
	}
}

func TestRequestLifecycle_CancelSoftDeletes(t *testing.T) {
	db := testDB(t)
	users := seedUsers(t, db)
	svc := NewRequestService(db, nil)
	ctx := context.Background()

	request := createDraft(t, svc, users.employee, []CreateItemDTO{
		{ItemName: "Bookshelf", Quantity: decimal.NewFromInt(1), Unit: "pcs"},
	})

	cancelled, err := svc.Cancel(ctx, request.ID, users.employee, 1, "ordered by mistake")
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if cancelled.Status != model.StatusCancelled {
		t.Fatalf("status = %s, want CANCELLED", cancelled.Status)
	}

	// The row is soft-deleted but its audit trail survives.
	if _, err := repository.NewRequestRepository(db).GetByID(ctx, request.ID); !apperror.IsKind(err, apperror.KindNotFound) {
		t.Errorf("GetByID after cancel: err = %v, want NotFound", err)
	}
	records := historyFor(t, db, request)
	if records[len(records)-1].ToStatus != model.StatusCancelled {
		t.Error("cancel transition not recorded")
	}
}

func TestRequestLifecycle_NoEligibleApproverBlocksSubmit(t *testing.T) {
	db := testDB(t)
	users := seedUsers(t, db)
	svc := NewRequestService(db, nil)
	ctx := context.Background()

	// Deactivate the only purchasing user.
	if err := db.Model(users.purchasing).Update("is_active", false).Error; err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	request := createDraft(t, svc, users.employee, []CreateItemDTO{
		{ItemName: "Printer", Quantity: decimal.NewFromInt(1), Unit: "pcs"},
	})
	_, err := svc.Submit(ctx, request.ID, users.employee, 1)
	if !apperror.IsKind(err, apperror.KindNoEligibleApprover) {
		t.Fatalf("Submit: err = %v, want NoEligibleApprover", err)
	}

	// The whole submit rolled back.
	reloaded, err := repository.NewRequestRepository(db).GetByID(ctx, request.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Status != model.StatusDraft || reloaded.Version != 1 {
		t.Errorf("after failed submit: status=%s version=%d, want DRAFT/1", reloaded.Status, reloaded.Version)
	}
}

func TestRequestList_EmployeeSeesOnlyOwn(t *testing.T) {
	db := testDB(t)
	users := seedUsers(t, db)
	svc := NewRequestService(db, nil)
	ctx := context.Background()

	createDraft(t, svc, users.employee, []CreateItemDTO{
		{ItemName: "Own item", Quantity: decimal.NewFromInt(1), Unit: "pcs"},
	})
	other := createDraft(t, svc, users.warehouse, []CreateItemDTO{
		{ItemName: "Other item", Quantity: decimal.NewFromInt(1), Unit: "pcs"},
	})

	own, total, err := svc.List(ctx, users.employee, repository.RequestFilter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 1 || len(own) != 1 {
		t.Fatalf("employee list total=%d len=%d, want 1/1", total, len(own))
	}
	if own[0].RequesterID != users.employee.ID {
		t.Error("employee sees a foreign request")
	}

	// And cannot fetch someone else's request by id.
	if _, err := svc.Get(ctx, users.employee, other.ID); !apperror.IsKind(err, apperror.KindNotFound) {
		t.Errorf("Get foreign request: err = %v, want NotFound", err)
	}

	all, total, err := svc.List(ctx, users.purchasing, repository.RequestFilter{})
	if err != nil {
		t.Fatalf("List as purchasing: %v", err)
	}
	if total != 2 || len(all) != 2 {
		t.Errorf("purchasing list total=%d len=%d, want 2/2", total, len(all))
	}
}
