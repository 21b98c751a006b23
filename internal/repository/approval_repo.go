package repository

import (
	"context"
	"errors"
	"time"

	"procurement/internal/model"
	"procurement/pkg/apperror"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ApprovalRepository manages the two-step approval ledger. Rows are created
// when a step becomes eligible and decided exactly once; the unique
// constraints (request, step) and (request, approver) are also checked here
// so violations surface as domain errors rather than raw SQL failures.
type ApprovalRepository interface {
	CreateStep(ctx context.Context, requestID, approverID uuid.UUID, step int) (*model.Approval, error)
	PendingForStep(ctx context.Context, requestID uuid.UUID, step int) (*model.Approval, error)
	Decide(ctx context.Context, approval *model.Approval, action, notes string) error
	ListByRequest(ctx context.Context, requestID uuid.UUID) ([]model.Approval, error)
}

type approvalRepository struct {
	db *gorm.DB
}

func NewApprovalRepository(db *gorm.DB) ApprovalRepository {
	return &approvalRepository{db: db}
}

func (r *approvalRepository) CreateStep(ctx context.Context, requestID, approverID uuid.UUID, step int) (*model.Approval, error) {
	db := GetDB(ctx, r.db)

	var count int64
	if err := db.Model(&model.Approval{}).
		Where("request_id = ? AND step = ?", requestID, step).
		Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, apperror.Conflict("approval step %d already exists for request %s", step, requestID)
	}

	// A single user cannot hold two steps on the same request.
	if err := db.Model(&model.Approval{}).
		Where("request_id = ? AND approver_id = ?", requestID, approverID).
		Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, apperror.Conflict("user %s already holds an approval step on request %s", approverID, requestID)
	}

	approval := &model.Approval{
		RequestID:  requestID,
		ApproverID: approverID,
		Step:       step,
	}
	if err := db.Create(approval).Error; err != nil {
		return nil, err
	}
	return approval, nil
}

func (r *approvalRepository) PendingForStep(ctx context.Context, requestID uuid.UUID, step int) (*model.Approval, error) {
	var approval model.Approval
	err := GetDB(ctx, r.db).
		Where("request_id = ? AND step = ? AND acted_at IS NULL", requestID, step).
		First(&approval).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NoPendingApproval(step)
		}
		return nil, err
	}
	return &approval, nil
}

// Decide records the decision on a pending slot. A slot that already carries
// a decision is never overwritten.
func (r *approvalRepository) Decide(ctx context.Context, approval *model.Approval, action, notes string) error {
	if !approval.Pending() {
		return apperror.NoPendingApproval(approval.Step)
	}
	now := time.Now()
	approval.Action = &action
	approval.Notes = notes
	approval.ActedAt = &now
	return GetDB(ctx, r.db).Model(approval).Updates(map[string]interface{}{
		"action":   action,
		"notes":    notes,
		"acted_at": now,
	}).Error
}

func (r *approvalRepository) ListByRequest(ctx context.Context, requestID uuid.UUID) ([]model.Approval, error) {
	var approvals []model.Approval
	err := GetDB(ctx, r.db).
		Preload("Approver").
		Where("request_id = ?", requestID).
		Order("step ASC").
		Find(&approvals).Error
	return approvals, err
}
