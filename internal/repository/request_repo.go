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

// RequestFilter narrows request listings.
type RequestFilter struct {
	RequesterID  *uuid.UUID // set for EMPLOYEE callers: own requests only
	Status       string
	DepartmentID string
	Priority     int
	Search       string // matches title or request number
	Page         int
	Limit        int
}

type RequestRepository interface {
	Create(ctx context.Context, request *model.Request) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Request, error)
	GetWithRelations(ctx context.Context, id uuid.UUID) (*model.Request, error)
	List(ctx context.Context, filter RequestFilter) ([]model.Request, int64, error)
	SoftDelete(ctx context.Context, id uuid.UUID) error
	NextRequestNumber(ctx context.Context, now time.Time) (string, error)
}

type requestRepository struct {
	db *gorm.DB
}

func NewRequestRepository(db *gorm.DB) RequestRepository {
	return &requestRepository{db: db}
}

func (r *requestRepository) Create(ctx context.Context, request *model.Request) error {
	return GetDB(ctx, r.db).Create(request).Error
}

func (r *requestRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Request, error) {
	var request model.Request
	if err := GetDB(ctx, r.db).First(&request, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("request %s not found", id)
		}
		return nil, err
	}
	return &request, nil
}

func (r *requestRepository) GetWithRelations(ctx context.Context, id uuid.UUID) (*model.Request, error) {
	var request model.Request
	err := GetDB(ctx, r.db).
		Preload("Requester").
		Preload("Department").
		Preload("Items").
		Preload("Items.Stock").
		Preload("Approvals").
		Preload("Approvals.Approver").
		First(&request, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("request %s not found", id)
		}
		return nil, err
	}
	return &request, nil
}

func (r *requestRepository) List(ctx context.Context, filter RequestFilter) ([]model.Request, int64, error) {
	query := GetDB(ctx, r.db).Model(&model.Request{})

	if filter.RequesterID != nil {
		query = query.Where("requester_id = ?", *filter.RequesterID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.DepartmentID != "" {
		query = query.Where("department_id = ?", filter.DepartmentID)
	}
	if filter.Priority > 0 {
		query = query.Where("priority = ?", filter.Priority)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		query = query.Where("title LIKE ? OR request_number LIKE ?", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}

	var requests []model.Request
	err := query.
		Preload("Requester").
		Preload("Department").
		Order("created_at DESC").
		Offset((filter.Page - 1) * filter.Limit).
		Limit(filter.Limit).
		Find(&requests).Error
	return requests, total, err
}

func (r *requestRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Request{}).Error
}

// NextRequestNumber produces REQ-YYYY-NNNNNN from a year-scoped counter over
// all rows including soft-deleted ones, so numbers are never reused.
func (r *requestRepository) NextRequestNumber(ctx context.Context, now time.Time) (string, error) {
	return nextSequenceNumber(GetDB(ctx, r.db), &model.Request{}, "REQ", now)
}
