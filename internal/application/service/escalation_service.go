package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/civicgrid/licensing-portal/internal/application/port"
	appwf "github.com/civicgrid/licensing-portal/internal/application/workflow"
	domainwf "github.com/civicgrid/licensing-portal/internal/domain/workflow"
)

// EscalationService reassigns applications whose assigned officer has not
// accepted within the rule's escalation window. It is driven by a periodic
// sweep, not by request traffic.
type EscalationService interface {
	// SweepOnce scans for stale active assignments and fires ESCALATE for
	// each. Returns the number of escalations performed.
	SweepOnce(ctx context.Context) (int, error)
}

type escalationService struct {
	assignments port.AssignmentHistoryRepository
	apps        port.ApplicationRepository
	rules       port.AssignmentRuleRepository

	orchestrator appwf.Orchestrator
	logger       *zap.Logger

	// defaultHours applies when no rule configures EscalationTimeHours
	defaultHours int

	now func() time.Time
}

// NewEscalationService creates the escalation sweeper
func NewEscalationService(
	assignments port.AssignmentHistoryRepository,
	apps port.ApplicationRepository,
	rules port.AssignmentRuleRepository,
	orchestrator appwf.Orchestrator,
	defaultHours int,
	logger *zap.Logger,
) EscalationService {
	if defaultHours <= 0 {
		defaultHours = 48
	}
	return &escalationService{
		assignments:  assignments,
		apps:         apps,
		rules:        rules,
		orchestrator: orchestrator,
		logger:       logger,
		defaultHours: defaultHours,
		now:          time.Now,
	}
}

func (s *escalationService) SweepOnce(ctx context.Context) (int, error) {
	now := s.now()

	// Every unaccepted active row is a candidate; the applicable window,
	// rule-configured or the default, is applied per row below. Pre-filtering
	// by the default window would miss rules with a shorter one.
	stale, err := s.assignments.ListStaleActive(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("failed to list stale assignments: %w", err)
	}

	escalated := 0
	for _, row := range stale {
		app, err := s.apps.GetByID(ctx, row.ApplicationID)
		if err != nil {
			if errors.Is(err, port.ErrNotFound) {
				continue
			}
			return escalated, fmt.Errorf("failed to load application %d: %w", row.ApplicationID, err)
		}

		hours := s.defaultHours
		rule, err := s.rules.GetByPositionAndSlot(ctx, app.PositionType, row.RoleSlot)
		if err != nil && !errors.Is(err, port.ErrNotFound) {
			return escalated, fmt.Errorf("failed to load rule: %w", err)
		}
		if rule != nil && rule.EscalationTimeHours > 0 {
			hours = rule.EscalationTimeHours
		}
		if now.Sub(row.AssignedAt) < time.Duration(hours)*time.Hour {
			continue
		}

		result, err := s.orchestrator.ExecuteAction(ctx, appwf.ActionRequest{
			ApplicationID: row.ApplicationID,
			Action:        domainwf.ActionEscalate,
			Comment:       fmt.Sprintf("auto-escalated: no response within %dh", hours),
		})
		if err != nil {
			// A stalled escalation is a standing alert, not a sweep failure;
			// the application stays where it is until resolved manually.
			s.logger.Warn("Escalation did not complete",
				zap.Int64("application_id", row.ApplicationID),
				zap.String("role_slot", row.RoleSlot),
				zap.Error(err))
			continue
		}

		s.logger.Info("Assignment escalated",
			zap.Int64("application_id", row.ApplicationID),
			zap.String("role_slot", row.RoleSlot),
			zap.String("status", result.NewStatus.String()))
		escalated++
	}

	return escalated, nil
}
