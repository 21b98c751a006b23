package service

import (
	"context"
	"time"

	"procurement/internal/repository"
)

// ProcurementReport bundles the dashboard aggregates for a time range.
type ProcurementReport struct {
	TimeRangeStartDate time.Time                       `json:"time_range_start_date"`
	TimeRangeEndDate   time.Time                       `json:"time_range_end_date"`
	StatusBreakdown    []repository.StatusCount        `json:"status_breakdown"`
	TopDepartments     []repository.DepartmentActivity `json:"top_departments"`
	CategoryPerMonth   []repository.CategoryMonthly    `json:"category_per_month"`
	LeadTime           *repository.LeadTimeStats       `json:"lead_time"`
}

type ReportService interface {
	GetReport(ctx context.Context, startDate, endDate time.Time) (*ProcurementReport, error)
}

type reportService struct {
	reports repository.ReportRepository
}

func NewReportService(reports repository.ReportRepository) ReportService {
	return &reportService{reports: reports}
}

func (s *reportService) GetReport(ctx context.Context, startDate, endDate time.Time) (*ProcurementReport, error) {
	report := &ProcurementReport{
		TimeRangeStartDate: startDate,
		TimeRangeEndDate:   endDate,
	}

	breakdown, err := s.reports.StatusBreakdown(ctx)
	if err != nil {
		return nil, err
	}
	report.StatusBreakdown = breakdown

	departments, err := s.reports.TopDepartments(ctx, startDate, endDate, 5)
	if err != nil {
		return nil, err
	}
	report.TopDepartments = departments

	categories, err := s.reports.CategoryPerMonth(ctx, startDate, endDate)
	if err != nil {
		return nil, err
	}
	report.CategoryPerMonth = categories

	leadTime, err := s.reports.LeadTime(ctx, startDate, endDate)
	if err != nil {
		return nil, err
	}
	report.LeadTime = leadTime

	return report, nil
}
