// Package assignment implements the officer-routing engine: given an
// application and a target role slot it selects an officer using the
// configured strategy and records the decision in the append-only ledger.
package assignment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/civicgrid/licensing-portal/internal/application/port"
	"github.com/civicgrid/licensing-portal/internal/domain/entity"
)

// Request describes one assignment decision
type Request struct {
	ApplicationID int64
	PositionType  string
	RoleSlot      string

	// StrategyOverride forces a strategy instead of the rule's configured one
	StrategyOverride string

	// ManualOfficerID names the officer for MANUAL assignments
	ManualOfficerID *int64

	// AssignedBy is the acting officer for manual and escalated assignments
	AssignedBy *int64

	// Action overrides the recorded assignment action (defaults to
	// AUTO_ASSIGNED, or MANUALLY_ASSIGNED when ManualOfficerID is set)
	Action string

	// TargetRoleOverride narrows the candidate pool to one role, used by
	// escalation to route to the rule's EscalationRole
	TargetRoleOverride string

	// RelaxWorkload drops the rule's max-workload constraint, the first
	// relaxation step during escalation
	RelaxWorkload bool
}

// Engine selects officers and maintains the assignment ledger
type Engine struct {
	officers  port.OfficerRepository
	history   port.AssignmentHistoryRepository
	rules     port.AssignmentRuleRepository
	txManager port.TransactionManager
	logger    *zap.Logger

	// One lock per role slot serializes the workload read against the ledger
	// append across applications, so two concurrent workload-based picks
	// cannot both land on the same least-loaded officer.
	poolLocks map[string]*sync.Mutex

	now func() time.Time
}

// NewEngine creates an assignment engine
func NewEngine(
	officers port.OfficerRepository,
	history port.AssignmentHistoryRepository,
	rules port.AssignmentRuleRepository,
	txManager port.TransactionManager,
	logger *zap.Logger,
) *Engine {
	locks := make(map[string]*sync.Mutex, len(entity.AllSlots))
	for _, slot := range entity.AllSlots {
		locks[slot] = &sync.Mutex{}
	}

	return &Engine{
		officers:  officers,
		history:   history,
		rules:     rules,
		txManager: txManager,
		logger:    logger,
		poolLocks: locks,
		now:       time.Now,
	}
}

// poolLockKey marks a context whose caller already holds a slot's pool lock
type poolLockKey struct{}

// LockPool acquires the slot's pool lock on behalf of an enclosing
// transaction and returns a context Assign recognizes as already locked,
// plus the release. Callers must release only after their transaction
// commits or rolls back: releasing earlier reopens the window where a
// concurrent assignment reads a ledger missing the uncommitted append.
func (e *Engine) LockPool(ctx context.Context, roleSlot string) (context.Context, func(), error) {
	if !entity.ValidSlot(roleSlot) {
		return ctx, nil, fmt.Errorf("unknown role slot %q", roleSlot)
	}

	lock := e.poolLocks[roleSlot]
	lock.Lock()
	return context.WithValue(ctx, poolLockKey{}, roleSlot), lock.Unlock, nil
}

// Assign selects an officer for the request and appends exactly one active
// ledger row, flagging any previously active row for the same
// (application, slot) inactive in the same transaction.
func (e *Engine) Assign(ctx context.Context, req Request) (*entity.AssignmentHistory, error) {
	if !entity.ValidSlot(req.RoleSlot) {
		return nil, fmt.Errorf("unknown role slot %q", req.RoleSlot)
	}

	if held, _ := ctx.Value(poolLockKey{}).(string); held != req.RoleSlot {
		lock := e.poolLocks[req.RoleSlot]
		lock.Lock()
		defer lock.Unlock()
	}

	rule, err := e.ruleFor(ctx, req.PositionType, req.RoleSlot)
	if err != nil {
		return nil, err
	}

	strategy := rule.Strategy
	if req.StrategyOverride != "" {
		strategy = req.StrategyOverride
	}
	if req.ManualOfficerID != nil {
		strategy = entity.StrategyManual
	}

	var chosen *entity.Officer
	var workload int
	var nextCursor = rule.LastRoundRobinIndex

	if strategy == entity.StrategyManual {
		chosen, workload, err = e.validateManualTarget(ctx, req)
	} else {
		chosen, workload, nextCursor, err = e.selectAutomatic(ctx, req, rule, strategy)
	}
	if err != nil {
		return nil, err
	}

	action := req.Action
	if action == "" {
		if strategy == entity.StrategyManual {
			action = entity.AssignmentManuallyAssigned
		} else {
			action = entity.AssignmentAutoAssigned
		}
	}

	now := e.now()
	row := &entity.AssignmentHistory{
		ApplicationID:        req.ApplicationID,
		RoleSlot:             req.RoleSlot,
		AssignedToOfficerID:  chosen.ID,
		AssignedByOfficerID:  req.AssignedBy,
		Action:               action,
		StrategyUsed:         strategy,
		WorkloadAtAssignment: workload,
		IsActive:             true,
		AssignedAt:           now,
	}

	err = e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		previous, err := e.history.GetActive(txCtx, req.ApplicationID, req.RoleSlot)
		if err != nil && !errors.Is(err, port.ErrNotFound) {
			return fmt.Errorf("failed to load active assignment: %w", err)
		}
		if previous != nil {
			row.PreviousOfficerID = &previous.AssignedToOfficerID
			if row.Action == entity.AssignmentAutoAssigned {
				row.Action = entity.AssignmentReassigned
			}
			duration := now.Sub(previous.AssignedAt).Hours()
			if err := e.history.Inactivate(txCtx, previous.ID, now, duration); err != nil {
				return fmt.Errorf("failed to inactivate previous assignment: %w", err)
			}
		}

		if err := e.history.Append(txCtx, row); err != nil {
			return fmt.Errorf("failed to append assignment history: %w", err)
		}

		if rule.ID != 0 {
			if err := e.rules.RecordApplied(txCtx, rule.ID, nextCursor, now); err != nil {
				return fmt.Errorf("failed to record rule application: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("Officer assigned",
		zap.Int64("application_id", req.ApplicationID),
		zap.String("role_slot", req.RoleSlot),
		zap.Int64("officer_id", chosen.ID),
		zap.String("strategy", strategy),
		zap.String("action", row.Action),
		zap.Int("workload_at_assignment", workload))

	return row, nil
}

// Accept records the assigned officer's acceptance of an active assignment
func (e *Engine) Accept(ctx context.Context, applicationID int64, roleSlot string, officerID int64) error {
	active, err := e.history.GetActive(ctx, applicationID, roleSlot)
	if err != nil {
		return fmt.Errorf("failed to load active assignment: %w", err)
	}
	if active.AssignedToOfficerID != officerID {
		return fmt.Errorf("%w: officer %d does not hold the active assignment", ErrInvalidAssignmentTarget, officerID)
	}
	return e.history.MarkAccepted(ctx, active.ID, e.now())
}

// WorkloadOf computes an officer's workload from the ledger
func (e *Engine) WorkloadOf(ctx context.Context, officerID int64) (int, error) {
	return e.history.CountActiveByOfficer(ctx, officerID)
}

// ruleFor loads the matching rule, falling back to an unconstrained
// workload-based default when no row is configured.
func (e *Engine) ruleFor(ctx context.Context, positionType, roleSlot string) (*entity.AutoAssignmentRule, error) {
	rule, err := e.rules.GetByPositionAndSlot(ctx, positionType, roleSlot)
	if err != nil {
		if errors.Is(err, port.ErrNotFound) {
			return &entity.AutoAssignmentRule{
				PositionType: positionType,
				RoleSlot:     roleSlot,
				Strategy:     entity.StrategyWorkloadBased,
				IsActive:     true,
			}, nil
		}
		return nil, fmt.Errorf("failed to load assignment rule: %w", err)
	}
	if !rule.InWindow(e.now()) {
		return nil, fmt.Errorf("%w: rule for (%s, %s) is outside its active window",
			ErrNoEligibleOfficer, positionType, roleSlot)
	}
	return rule, nil
}

// validateManualTarget checks eligibility of a caller-supplied officer
func (e *Engine) validateManualTarget(ctx context.Context, req Request) (*entity.Officer, int, error) {
	if req.ManualOfficerID == nil {
		return nil, 0, fmt.Errorf("%w: manual strategy requires an officer id", ErrInvalidAssignmentTarget)
	}

	officer, err := e.officers.GetByID(ctx, *req.ManualOfficerID)
	if err != nil {
		if errors.Is(err, port.ErrNotFound) {
			return nil, 0, fmt.Errorf("%w: officer %d does not exist", ErrInvalidAssignmentTarget, *req.ManualOfficerID)
		}
		return nil, 0, fmt.Errorf("failed to load officer: %w", err)
	}
	if !officer.IsActive {
		return nil, 0, fmt.Errorf("%w: officer %d is inactive", ErrInvalidAssignmentTarget, officer.ID)
	}
	if !entity.RoleEligibleForSlot(officer.Role, req.RoleSlot) {
		return nil, 0, fmt.Errorf("%w: officer %d has role %s, not eligible for slot %s",
			ErrInvalidAssignmentTarget, officer.ID, officer.Role, req.RoleSlot)
	}

	workload, err := e.history.CountActiveByOfficer(ctx, officer.ID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to compute workload: %w", err)
	}

	return officer, workload, nil
}

// selectAutomatic builds the candidate pool and applies the strategy
func (e *Engine) selectAutomatic(
	ctx context.Context,
	req Request,
	rule *entity.AutoAssignmentRule,
	strategy string,
) (*entity.Officer, int, int, error) {
	roles := entity.RolesForSlot(req.RoleSlot)
	if req.TargetRoleOverride != "" {
		roles = []string{req.TargetRoleOverride}
	} else if rule.TargetRole != "" {
		roles = []string{rule.TargetRole}
	}

	pool, err := e.officers.GetActiveByRoles(ctx, roles)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to load officer pool: %w", err)
	}

	candidates := make([]*entity.Officer, 0, len(pool))
	for _, o := range pool {
		if o.ExperienceYears < rule.MinExperienceYears {
			continue
		}
		candidates = append(candidates, o)
	}
	if len(candidates) == 0 {
		return nil, 0, 0, fmt.Errorf("%w: no active officer for slot %s meets the rule constraints",
			ErrNoEligibleOfficer, req.RoleSlot)
	}

	ids := make([]int64, len(candidates))
	for i, o := range candidates {
		ids[i] = o.ID
	}
	workloads, err := e.history.CountActiveByOfficers(ctx, ids)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to compute workloads: %w", err)
	}

	if rule.MaxWorkloadPerOfficer > 0 && !req.RelaxWorkload {
		filtered := candidates[:0]
		for _, o := range candidates {
			if workloads[o.ID] < rule.MaxWorkloadPerOfficer {
				filtered = append(filtered, o)
			}
		}
		candidates = filtered
		if len(candidates) == 0 {
			return nil, 0, 0, fmt.Errorf("%w: every officer for slot %s is at max workload %d",
				ErrNoEligibleOfficer, req.RoleSlot, rule.MaxWorkloadPerOfficer)
		}
	}

	sortByID(candidates)

	chosen, nextCursor := selectByStrategy(strategy, candidates, workloads, rule.LastRoundRobinIndex)
	return chosen, workloads[chosen.ID], nextCursor, nil
}
