package service

import (
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/civicgrid/licensing-portal/internal/application/port"
	"github.com/civicgrid/licensing-portal/internal/domain/entity"
)

// OfficerWorkload is one row of the workload report, computed straight from
// the assignment ledger.
type OfficerWorkload struct {
	OfficerID    int64  `json:"officer_id"`
	EmployeeCode string `json:"employee_code"`
	FullName     string `json:"full_name"`
	Role         string `json:"role"`
	Workload     int    `json:"workload"`
}

// ReportService aggregates the audit ledgers for compliance review
type ReportService interface {
	// WorkloadStats returns per-officer active assignment counts
	WorkloadStats(ctx context.Context, roles []string) ([]OfficerWorkload, error)

	// ExportAssignmentReport writes the full assignment ledger and workload
	// summary to an Excel workbook at the given path
	ExportAssignmentReport(ctx context.Context, path string) error
}

type reportService struct {
	officers    port.OfficerRepository
	assignments port.AssignmentHistoryRepository
	logger      *zap.Logger
}

// NewReportService creates the report service
func NewReportService(
	officers port.OfficerRepository,
	assignments port.AssignmentHistoryRepository,
	logger *zap.Logger,
) ReportService {
	return &reportService{
		officers:    officers,
		assignments: assignments,
		logger:      logger,
	}
}

func (s *reportService) WorkloadStats(ctx context.Context, roles []string) ([]OfficerWorkload, error) {
	if len(roles) == 0 {
		for _, slot := range entity.AllSlots {
			roles = append(roles, entity.RolesForSlot(slot)...)
		}
	}

	officers, err := s.officers.GetActiveByRoles(ctx, roles)
	if err != nil {
		return nil, fmt.Errorf("failed to load officers: %w", err)
	}

	ids := make([]int64, len(officers))
	for i, o := range officers {
		ids[i] = o.ID
	}
	workloads, err := s.assignments.CountActiveByOfficers(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to compute workloads: %w", err)
	}

	stats := make([]OfficerWorkload, 0, len(officers))
	for _, o := range officers {
		stats = append(stats, OfficerWorkload{
			OfficerID:    o.ID,
			EmployeeCode: o.EmployeeCode,
			FullName:     o.FullName,
			Role:         o.Role,
			Workload:     workloads[o.ID],
		})
	}
	return stats, nil
}

func (s *reportService) ExportAssignmentReport(ctx context.Context, path string) error {
	rows, err := s.assignments.ListAll(ctx, 10000, 0)
	if err != nil {
		return fmt.Errorf("failed to load assignment ledger: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Assignments"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}

	headers := []string{
		"ID", "Application", "Role Slot", "Previous Officer", "Assigned Officer",
		"Action", "Strategy", "Workload At Assignment", "Active",
		"Assigned At", "Accepted At", "Inactivated At", "Duration (h)",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}

	for i, row := range rows {
		values := []interface{}{
			row.ID,
			row.ApplicationID,
			row.RoleSlot,
			int64PtrCell(row.PreviousOfficerID),
			row.AssignedToOfficerID,
			row.Action,
			row.StrategyUsed,
			row.WorkloadAtAssignment,
			row.IsActive,
			row.AssignedAt.Format(time.RFC3339),
			timePtrCell(row.AcceptedAt),
			timePtrCell(row.InactivatedAt),
			floatPtrCell(row.AssignmentDurationHours),
		}
		for j, v := range values {
			cell, _ := excelize.CoordinatesToCellName(j+1, i+2)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return fmt.Errorf("failed to write row %d: %w", i, err)
			}
		}
	}

	// Workload summary on a second sheet
	stats, err := s.WorkloadStats(ctx, nil)
	if err != nil {
		return err
	}
	const summary = "Workload"
	if _, err := f.NewSheet(summary); err != nil {
		return fmt.Errorf("failed to add summary sheet: %w", err)
	}
	for i, h := range []string{"Officer ID", "Employee Code", "Name", "Role", "Active Assignments"} {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(summary, cell, h); err != nil {
			return fmt.Errorf("failed to write summary header: %w", err)
		}
	}
	for i, st := range stats {
		values := []interface{}{st.OfficerID, st.EmployeeCode, st.FullName, st.Role, st.Workload}
		for j, v := range values {
			cell, _ := excelize.CoordinatesToCellName(j+1, i+2)
			if err := f.SetCellValue(summary, cell, v); err != nil {
				return fmt.Errorf("failed to write summary row %d: %w", i, err)
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}

	s.logger.Info("Assignment report exported",
		zap.String("path", path),
		zap.Int("assignments", len(rows)),
		zap.Int("officers", len(stats)))
	return nil
}

func int64PtrCell(v *int64) interface{} {
	if v == nil {
		return ""
	}
	return *v
}

func timePtrCell(v *time.Time) interface{} {
	if v == nil {
		return ""
	}
	return v.Format(time.RFC3339)
}

func floatPtrCell(v *float64) interface{} {
	if v == nil {
		return ""
	}
	return *v
}
