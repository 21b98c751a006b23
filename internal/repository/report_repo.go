package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Report row shapes scanned straight from aggregate queries.
type StatusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

type DepartmentActivity struct {
	DepartmentID   string `json:"department_id"`
	DepartmentName string `json:"department_name"`
	RequestCount   int64  `json:"request_count"`
}

type CategoryMonthly struct {
	Category string `json:"category"`
	Month    string `json:"month"`
	Count    int64  `json:"count"`
}

type LeadTimeStats struct {
	CompletedCount int64   `json:"completed_count"`
	AvgLeadHours   float64 `json:"avg_lead_hours"`
}

type ReportRepository interface {
	StatusBreakdown(ctx context.Context) ([]StatusCount, error)
	TopDepartments(ctx context.Context, start, end time.Time, limit int) ([]DepartmentActivity, error)
	CategoryPerMonth(ctx context.Context, start, end time.Time) ([]CategoryMonthly, error)
	LeadTime(ctx context.Context, start, end time.Time) (*LeadTimeStats, error)
}

type reportRepository struct {
	db *gorm.DB
}

func NewReportRepository(db *gorm.DB) ReportRepository {
	return &reportRepository{db: db}
}

func (r *reportRepository) StatusBreakdown(ctx context.Context) ([]StatusCount, error) {
	var counts []StatusCount
	err := GetDB(ctx, r.db).Table("requests").
		Select("status, COUNT(*) as count").
		Where("deleted_at IS NULL").
		Group("status").
		Order("count DESC").
		Scan(&counts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query status breakdown: %w", err)
	}
	return counts, nil
}

func (r *reportRepository) TopDepartments(ctx context.Context, start, end time.Time, limit int) ([]DepartmentActivity, error) {
	var rows []DepartmentActivity
	err := GetDB(ctx, r.db).Table("requests").
		Select("departments.id as department_id, departments.name as department_name, COUNT(requests.id) as request_count").
		Joins("JOIN departments ON departments.id = requests.department_id").
		Where("requests.created_at >= ? AND requests.created_at <= ? AND requests.deleted_at IS NULL", start, end).
		Group("departments.id, departments.name").
		Order("request_count DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query top departments: %w", err)
	}
	return rows, nil
}

func (r *reportRepository) CategoryPerMonth(ctx context.Context, start, end time.Time) ([]CategoryMonthly, error) {
	var rows []CategoryMonthly
	err := GetDB(ctx, r.db).Table("request_items").
		Select("request_items.category as category, to_char(requests.created_at, 'YYYY-MM') as month, COUNT(request_items.id) as count").
		Joins("JOIN requests ON requests.id = request_items.request_id").
		Where("requests.created_at >= ? AND requests.created_at <= ? AND requests.deleted_at IS NULL", start, end).
		Group("request_items.category, to_char(requests.created_at, 'YYYY-MM')").
		Order("month ASC, count DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query category breakdown: %w", err)
	}
	return rows, nil
}

func (r *reportRepository) LeadTime(ctx context.Context, start, end time.Time) (*LeadTimeStats, error) {
	var stats LeadTimeStats
	err := GetDB(ctx, r.db).Table("requests").
		Select("COUNT(*) as completed_count, COALESCE(AVG(EXTRACT(EPOCH FROM (completed_at - submitted_at)) / 3600), 0) as avg_lead_hours").
		Where("status = ? AND submitted_at IS NOT NULL AND completed_at IS NOT NULL", "COMPLETED").
		Where("completed_at >= ? AND completed_at <= ?", start, end).
		Scan(&stats).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query lead time: %w", err)
	}
	return &stats, nil
}
