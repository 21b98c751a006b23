package service

import (
	"context"
	"fmt"
	"time"

	"procurement/internal/model"
	"procurement/internal/notification"
	"procurement/internal/repository"
	"procurement/pkg/apperror"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// --- DTOs ---

type CreateItemDTO struct {
	ItemName       string           `json:"item_name" binding:"required,max=200"`
	Category       string           `json:"category" binding:"omitempty,oneof=OFFICE_SUPPLY ELECTRONIC FURNITURE SERVICE RAW_MATERIAL OTHER"`
	Quantity       decimal.Decimal  `json:"quantity" binding:"required"`
	Unit           string           `json:"unit" binding:"required,max=30"`
	EstimatedPrice *decimal.Decimal `json:"estimated_price"`
	StockID        *uuid.UUID       `json:"stock_id"`
}

type CreateRequestDTO struct {
	Title        string          `json:"title" binding:"required,max=200"`
	Description  string          `json:"description"`
	Priority     int             `json:"priority" binding:"omitempty,min=1,max=5"`
	RequiredDate *time.Time      `json:"required_date"`
	Items        []CreateItemDTO `json:"items" binding:"required,min=1,dive"`
}

type VerifyRequestDTO struct {
	Version int    `json:"version" binding:"required"`
	Notes   string `json:"notes" binding:"max=500"`
}

type ApproveRequestDTO struct {
	Version int    `json:"version" binding:"required"`
	Notes   string `json:"notes" binding:"max=500"`
}

type RejectRequestDTO struct {
	Version int    `json:"version" binding:"required"`
	Reason  string `json:"reason" binding:"required,min=5,max=500"`
}

type ProcureItemDTO struct {
	RequestItemID *uuid.UUID      `json:"request_item_id"`
	ItemName      string          `json:"item_name" binding:"required,max=200"`
	Quantity      decimal.Decimal `json:"quantity" binding:"required"`
	UnitPrice     decimal.Decimal `json:"unit_price" binding:"required"`
}

type ProcureRequestDTO struct {
	Version    int              `json:"version" binding:"required"`
	VendorID   uuid.UUID        `json:"vendor_id" binding:"required"`
	ExpectedAt *time.Time       `json:"expected_at"`
	Notes      string           `json:"notes" binding:"max=500"`
	Items      []ProcureItemDTO `json:"items" binding:"required,min=1,dive"`
}

// --- Interface ---

// RequestService is the request lifecycle engine. Every mutating operation
// takes the version the caller last observed; a mismatch fails with Conflict
// and leaves the store untouched. Each committed transition appends exactly
// one StatusHistory row and emits one status-changed event after commit.
type RequestService interface {
	Create(ctx context.Context, actor *model.User, dto CreateRequestDTO) (*model.Request, error)
	Get(ctx context.Context, actor *model.User, id uuid.UUID) (*model.Request, error)
	List(ctx context.Context, actor *model.User, filter repository.RequestFilter) ([]model.Request, int64, error)
	History(ctx context.Context, id uuid.UUID) ([]model.StatusHistory, error)

	Submit(ctx context.Context, id uuid.UUID, actor *model.User, version int) (*model.Request, error)
	Verify(ctx context.Context, id uuid.UUID, actor *model.User, dto VerifyRequestDTO) (*model.Request, error)
	Approve(ctx context.Context, id uuid.UUID, actor *model.User, dto ApproveRequestDTO) (*model.Request, error)
	Reject(ctx context.Context, id uuid.UUID, actor *model.User, dto RejectRequestDTO) (*model.Request, error)
	Procure(ctx context.Context, id uuid.UUID, actor *model.User, dto ProcureRequestDTO) (*model.ProcurementOrder, error)
	Receive(ctx context.Context, id uuid.UUID, actor *model.User, version int) (*model.Request, error)
	Complete(ctx context.Context, id uuid.UUID, actor *model.User, version int) (*model.Request, error)
	Cancel(ctx context.Context, id uuid.UUID, actor *model.User, version int, reason string) (*model.Request, error)
}

type requestService struct {
	db          *gorm.DB
	txm         repository.TransactionManager
	store       *repository.VersionedStore
	requests    repository.RequestRepository
	approvals   repository.ApprovalRepository
	history     repository.StatusHistoryRepository
	users       repository.UserRepository
	vendors     repository.VendorRepository
	orders      repository.ProcurementOrderRepository
	reservation *StockReservationService
	notifier    notification.Notifier
}

func NewRequestService(db *gorm.DB, notifier notification.Notifier) RequestService {
	return &requestService{
		db:          db,
		txm:         repository.NewTransactionManager(db),
		store:       repository.NewVersionedStore(db),
		requests:    repository.NewRequestRepository(db),
		approvals:   repository.NewApprovalRepository(db),
		history:     repository.NewStatusHistoryRepository(db),
		users:       repository.NewUserRepository(db),
		vendors:     repository.NewVendorRepository(db),
		orders:      repository.NewProcurementOrderRepository(db),
		reservation: NewStockReservationService(db),
		notifier:    notifier,
	}
}

// --- Create / read ---

func (s *requestService) Create(ctx context.Context, actor *model.User, dto CreateRequestDTO) (*model.Request, error) {
	var request *model.Request
	err := s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		number, err := s.requests.NextRequestNumber(txCtx, time.Now())
		if err != nil {
			return fmt.Errorf("failed to generate request number: %w", err)
		}

		priority := dto.Priority
		if priority == 0 {
			priority = 2
		}

		request = &model.Request{
			RequestNumber: number,
			RequesterID:   actor.ID,
			DepartmentID:  actor.DepartmentID,
			Title:         dto.Title,
			Description:   dto.Description,
			Priority:      priority,
			RequiredDate:  dto.RequiredDate,
			Status:        model.StatusDraft,
		}
		for _, item := range dto.Items {
			category := item.Category
			if category == "" {
				category = model.CategoryOther
			}
			request.Items = append(request.Items, model.RequestItem{
				StockID:        item.StockID,
				ItemName:       item.ItemName,
				Category:       category,
				Quantity:       item.Quantity,
				Unit:           item.Unit,
				EstimatedPrice: item.EstimatedPrice,
			})
		}
		if err := s.requests.Create(txCtx, request); err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}

		// Creation record: from-status is null.
		return s.history.Append(txCtx, &model.StatusHistory{
			EntityType: request.EntityType(),
			EntityID:   request.ID,
			ToStatus:   model.StatusDraft,
			ChangedBy:  actor.ID,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.requests.GetWithRelations(ctx, request.ID)
}

func (s *requestService) Get(ctx context.Context, actor *model.User, id uuid.UUID) (*model.Request, error) {
	request, err := s.requests.GetWithRelations(ctx, id)
	if err != nil {
		return nil, err
	}
	// Employees only see their own requests.
	if actor.IsEmployee() && request.RequesterID != actor.ID {
		return nil, apperror.NotFound("request %s not found", id)
	}
	return request, nil
}

func (s *requestService) List(ctx context.Context, actor *model.User, filter repository.RequestFilter) ([]model.Request, int64, error) {
	if actor.IsEmployee() {
		filter.RequesterID = &actor.ID
	}
	return s.requests.List(ctx, filter)
}

func (s *requestService) History(ctx context.Context, id uuid.UUID) ([]model.StatusHistory, error) {
	return s.history.ListByEntity(ctx, "request", id)
}

// --- Lifecycle transitions ---

func (s *requestService) Submit(ctx context.Context, id uuid.UUID, actor *model.User, version int) (*model.Request, error) {
	var events []notification.Event
	err := s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		request, err := s.lockAndCheck(txCtx, id, version)
		if err != nil {
			return err
		}
		if !request.CanTransitionTo(model.StatusSubmitted) {
			return apperror.UnprocessableTransition(request.Status, model.StatusSubmitted)
		}

		// The verification slot goes to an active purchasing user.
		purchasing, err := s.users.FindActiveByRole(txCtx, model.RolePurchasing)
		if err != nil {
			return err
		}
		if _, err := s.approvals.CreateStep(txCtx, request.ID, purchasing.ID, model.StepVerify); err != nil {
			return err
		}

		now := time.Now()
		event, err := s.transition(txCtx, request, actor, model.StatusSubmitted, "", func(r *model.Request) {
			r.SubmittedAt = &now
		})
		if err != nil {
			return err
		}
		events = append(events, event)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.emit(events)
	return s.requests.GetWithRelations(ctx, id)
}

func (s *requestService) Verify(ctx context.Context, id uuid.UUID, actor *model.User, dto VerifyRequestDTO) (*model.Request, error) {
	var events []notification.Event
	err := s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		request, err := s.lockAndCheck(txCtx, id, dto.Version)
		if err != nil {
			return err
		}
		if !request.CanTransitionTo(model.StatusVerified) {
			return apperror.UnprocessableTransition(request.Status, model.StatusVerified)
		}

		pending, err := s.approvals.PendingForStep(txCtx, request.ID, model.StepVerify)
		if err != nil {
			return err
		}
		if err := s.approvals.Decide(txCtx, pending, model.ActionVerify, dto.Notes); err != nil {
			return err
		}

		// The approval slot goes to an active purchasing manager.
		manager, err := s.users.FindActiveByRole(txCtx, model.RolePurchasingManager)
		if err != nil {
			return err
		}
		if _, err := s.approvals.CreateStep(txCtx, request.ID, manager.ID, model.StepApprove); err != nil {
			return err
		}

		event, err := s.transition(txCtx, request, actor, model.StatusVerified, "", nil)
		if err != nil {
			return err
		}
		events = append(events, event)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.emit(events)
	return s.requests.GetWithRelations(ctx, id)
}

// Approve records the step-2 decision and then immediately evaluates stock:
// if every item can be reserved the request chains to READY, otherwise to
// IN_PROCUREMENT. The chained move is a full transition (own audit record,
// own version bump) and both run in one atomic transaction, so a crash can
// never strand a request at APPROVED.
func (s *requestService) Approve(ctx context.Context, id uuid.UUID, actor *model.User, dto ApproveRequestDTO) (*model.Request, error) {
	var events []notification.Event
	err := s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		request, err := s.lockAndCheck(txCtx, id, dto.Version)
		if err != nil {
			return err
		}
		if !request.CanTransitionTo(model.StatusApproved) {
			return apperror.UnprocessableTransition(request.Status, model.StatusApproved)
		}

		// Record the step-2 decision, creating the slot on the fly to
		// tolerate direct-approval flows.
		pending, err := s.approvals.PendingForStep(txCtx, request.ID, model.StepApprove)
		if apperror.IsKind(err, apperror.KindNoPendingApproval) {
			pending, err = s.approvals.CreateStep(txCtx, request.ID, actor.ID, model.StepApprove)
		}
		if err != nil {
			return err
		}
		if err := s.approvals.Decide(txCtx, pending, model.ActionApprove, dto.Notes); err != nil {
			return err
		}

		event, err := s.transition(txCtx, request, actor, model.StatusApproved, "", nil)
		if err != nil {
			return err
		}
		events = append(events, event)

		// Automatic stock evaluation decides the follow-on transition.
		target := model.StatusReady
		if err := s.reserveForRequest(txCtx, request.ID); err != nil {
			if !apperror.IsKind(err, apperror.KindInsufficientStock) {
				return err
			}
			target = model.StatusInProcurement
		}

		event, err = s.transition(txCtx, request, actor, target, "", nil)
		if err != nil {
			return err
		}
		events = append(events, event)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.emit(events)
	return s.requests.GetWithRelations(ctx, id)
}

// reserveForRequest claims stock for every item of the request inside a
// savepoint, so an InsufficientStock outcome rolls back any reservations
// already made without aborting the enclosing approve.
func (s *requestService) reserveForRequest(ctx context.Context, requestID uuid.UUID) error {
	var items []model.RequestItem
	err := repository.GetDB(ctx, s.db).
		Preload("Stock").
		Where("request_id = ?", requestID).
		Find(&items).Error
	if err != nil {
		return err
	}

	demands := make([]StockDemand, 0, len(items))
	for _, item := range items {
		d := StockDemand{
			StockID:  item.StockID,
			ItemName: item.ItemName,
			Quantity: item.Quantity,
		}
		if item.Stock != nil {
			d.ObservedVersion = item.Stock.Version
		}
		demands = append(demands, d)
	}
	return s.reservation.ReserveAll(ctx, demands)
}

// Reject resolves the approval step implied by the current status: step 1
// when SUBMITTED, step 2 when VERIFIED.
func (s *requestService) Reject(ctx context.Context, id uuid.UUID, actor *model.User, dto RejectRequestDTO) (*model.Request, error) {
	var events []notification.Event
	err := s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		request, err := s.lockAndCheck(txCtx, id, dto.Version)
		if err != nil {
			return err
		}
		if !request.CanTransitionTo(model.StatusRejected) {
			return apperror.UnprocessableTransition(request.Status, model.StatusRejected)
		}

		step := model.StepVerify
		if request.Status == model.StatusVerified {
			step = model.StepApprove
		}
		pending, err := s.approvals.PendingForStep(txCtx, request.ID, step)
		if err != nil {
			return err
		}
		if err := s.approvals.Decide(txCtx, pending, model.ActionReject, dto.Reason); err != nil {
			return err
		}

		event, err := s.transition(txCtx, request, actor, model.StatusRejected, dto.Reason, nil)
		if err != nil {
			return err
		}
		events = append(events, event)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.emit(events)
	return s.requests.GetWithRelations(ctx, id)
}

// Procure creates a vendor purchase order for the request. Legal from
// APPROVED or IN_PROCUREMENT; the order lines are caller-supplied and may
// differ from the request's own items.
func (s *requestService) Procure(ctx context.Context, id uuid.UUID, actor *model.User, dto ProcureRequestDTO) (*model.ProcurementOrder, error) {
	var events []notification.Event
	var po *model.ProcurementOrder
	err := s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		request, err := s.lockAndCheck(txCtx, id, dto.Version)
		if err != nil {
			return err
		}
		if request.Status != model.StatusApproved && request.Status != model.StatusInProcurement {
			return apperror.UnprocessableTransition(request.Status, model.StatusInProcurement)
		}

		vendor, err := s.vendors.GetByID(txCtx, dto.VendorID)
		if err != nil {
			return err
		}

		number, err := s.orders.NextPONumber(txCtx, time.Now())
		if err != nil {
			return fmt.Errorf("failed to generate PO number: %w", err)
		}

		po = &model.ProcurementOrder{
			PONumber:   number,
			RequestID:  request.ID,
			VendorID:   vendor.ID,
			CreatedBy:  actor.ID,
			Status:     model.POStatusPending,
			ExpectedAt: dto.ExpectedAt,
			Notes:      dto.Notes,
		}
		if err := s.orders.Create(txCtx, po); err != nil {
			return fmt.Errorf("failed to create procurement order: %w", err)
		}

		total := decimal.Zero
		items := make([]model.ProcurementOrderItem, 0, len(dto.Items))
		for _, line := range dto.Items {
			items = append(items, model.ProcurementOrderItem{
				POID:          po.ID,
				RequestItemID: line.RequestItemID,
				ItemName:      line.ItemName,
				Quantity:      line.Quantity,
				UnitPrice:     line.UnitPrice,
			})
			total = total.Add(line.Quantity.Mul(line.UnitPrice))
		}
		if err := s.orders.CreateItems(txCtx, items); err != nil {
			return fmt.Errorf("failed to create procurement order items: %w", err)
		}

		po.TotalAmount = total
		if err := repository.GetDB(txCtx, s.db).Model(po).Update("total_amount", total).Error; err != nil {
			return err
		}

		if request.Status == model.StatusInProcurement {
			// Already in procurement: the request row is still mutated
			// (version bump) but no duplicate transition is recorded.
			return s.store.Save(txCtx, request)
		}

		event, err := s.transition(txCtx, request, actor, model.StatusInProcurement, "", nil)
		if err != nil {
			return err
		}
		events = append(events, event)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.emit(events)
	return s.orders.GetByID(ctx, po.ID)
}

func (s *requestService) Receive(ctx context.Context, id uuid.UUID, actor *model.User, version int) (*model.Request, error) {
	return s.simpleTransition(ctx, id, actor, version, model.StatusReady, "", nil)
}

func (s *requestService) Complete(ctx context.Context, id uuid.UUID, actor *model.User, version int) (*model.Request, error) {
	now := time.Now()
	return s.simpleTransition(ctx, id, actor, version, model.StatusCompleted, "", func(r *model.Request) {
		r.CompletedAt = &now
	})
}

// Cancel soft-deletes the request after recording the terminal transition;
// the row and its audit trail remain queryable for reporting.
func (s *requestService) Cancel(ctx context.Context, id uuid.UUID, actor *model.User, version int, reason string) (*model.Request, error) {
	var events []notification.Event
	var request *model.Request
	err := s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		request, err = s.lockAndCheck(txCtx, id, version)
		if err != nil {
			return err
		}
		event, err := s.transition(txCtx, request, actor, model.StatusCancelled, reason, nil)
		if err != nil {
			return err
		}
		events = append(events, event)
		return s.requests.SoftDelete(txCtx, request.ID)
	})
	if err != nil {
		return nil, err
	}
	s.emit(events)
	return request, nil
}

// --- Shared protocol pieces ---

// lockAndCheck fetches the request under an exclusive row lock and enforces
// the compare-and-swap contract against the caller's observed version.
func (s *requestService) lockAndCheck(ctx context.Context, id uuid.UUID, observed int) (*model.Request, error) {
	var request model.Request
	if err := s.store.LockForUpdate(ctx, &request, id); err != nil {
		return nil, err
	}
	if err := s.store.CheckVersion(&request, observed); err != nil {
		return nil, err
	}
	return &request, nil
}

// transition mutates the locked request to target, bumps the version,
// appends the audit record and returns the post-commit event. The caller
// has already validated version; legality is checked here against the
// authoritative current status.
func (s *requestService) transition(ctx context.Context, request *model.Request, actor *model.User, target, reason string, mutate func(*model.Request)) (notification.Event, error) {
	if !request.CanTransitionTo(target) {
		return notification.Event{}, apperror.UnprocessableTransition(request.Status, target)
	}

	from := request.Status
	request.Status = target
	if mutate != nil {
		mutate(request)
	}
	if err := s.store.Save(ctx, request); err != nil {
		return notification.Event{}, err
	}

	record := &model.StatusHistory{
		EntityType: request.EntityType(),
		EntityID:   request.ID,
		FromStatus: &from,
		ToStatus:   target,
		ChangedBy:  actor.ID,
		Reason:     reason,
	}
	if err := s.history.Append(ctx, record); err != nil {
		return notification.Event{}, fmt.Errorf("failed to append status history: %w", err)
	}

	event := notification.Event{
		RequestID:     request.ID,
		RequestNumber: request.RequestNumber,
		Title:         request.Title,
		FromStatus:    from,
		ToStatus:      target,
		ActorID:       actor.ID,
		ActorName:     actor.Name,
		Reason:        reason,
		OccurredAt:    time.Now(),
	}
	if requester, err := s.users.GetByID(ctx, request.RequesterID.String()); err == nil {
		event.RequesterEmail = requester.Email
	}
	return event, nil
}

func (s *requestService) simpleTransition(ctx context.Context, id uuid.UUID, actor *model.User, version int, target, reason string, mutate func(*model.Request)) (*model.Request, error) {
	var events []notification.Event
	err := s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		request, err := s.lockAndCheck(txCtx, id, version)
		if err != nil {
			return err
		}
		event, err := s.transition(txCtx, request, actor, target, reason, mutate)
		if err != nil {
			return err
		}
		events = append(events, event)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.emit(events)
	return s.requests.GetWithRelations(ctx, id)
}

// emit delivers post-commit events. Best-effort: the transition is already
// committed, delivery failures are the dispatcher's problem.
func (s *requestService) emit(events []notification.Event) {
	if s.notifier == nil {
		return
	}
	for _, e := range events {
		s.notifier.Notify(e)
	}
}
