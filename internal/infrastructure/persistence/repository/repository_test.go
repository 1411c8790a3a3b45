package repository_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/civicgrid/licensing-portal/internal/application/port"
	"github.com/civicgrid/licensing-portal/internal/domain/entity"
	"github.com/civicgrid/licensing-portal/internal/domain/workflow"
	"github.com/civicgrid/licensing-portal/internal/infrastructure/persistence/repository"
	"github.com/civicgrid/licensing-portal/pkg/database"
)

// newTestDB opens a fresh file-backed database in a temp directory and runs
// the full migration set, seed data included.
func newTestDB(t *testing.T) *database.DB {
	t.Helper()

	logger := zap.NewNop()
	db, err := database.New(database.Config{
		Path:            filepath.Join(t.TempDir(), "portal_test.db"),
		MaxOpenConns:    4,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Minute,
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	migrator := database.NewMigrator(db, logger)
	require.NoError(t, migrator.RunMigrations("../../../../migrations"))
	return db
}

func newTestApplication(t *testing.T, db *database.DB, number string) *entity.Application {
	t.Helper()

	repo := repository.NewApplicationRepository(db.DB, zap.NewNop())
	app := &entity.Application{
		ApplicationNumber: number,
		ApplicantName:     "Rohan Deshmukh",
		ApplicantUserID:   "rdeshmukh_42",
		PositionType:      entity.PositionStructuralEngineer,
		CurrentStatus:     string(workflow.StatusDraft),
		FeeAmount:         500,
	}
	require.NoError(t, repo.Create(context.Background(), app))
	return app
}

func TestApplicationRepository_CreateAndGet(t *testing.T) {
	db := newTestDB(t)
	repo := repository.NewApplicationRepository(db.DB, zap.NewNop())
	ctx := context.Background()

	app := newTestApplication(t, db, "LP-2026-aa110001")
	assert.Greater(t, app.ID, int64(0))
	assert.Equal(t, int64(0), app.Version)

	got, err := repo.GetByID(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, "LP-2026-aa110001", got.ApplicationNumber)
	assert.Equal(t, "Rohan Deshmukh", got.ApplicantName)
	assert.Equal(t, "rdeshmukh_42", got.ApplicantUserID)
	assert.Equal(t, entity.PositionStructuralEngineer, got.PositionType)
	assert.Equal(t, string(workflow.StatusDraft), got.CurrentStatus)
	assert.Equal(t, 500.0, got.FeeAmount)
	assert.Equal(t, int64(0), got.Version)
	assert.Nil(t, got.AssignedJuniorEngineerID)
	assert.Nil(t, got.SubmittedAt)
	assert.Equal(t, entity.DecisionNone, got.JuniorEngineerDecision.Outcome)

	byNumber, err := repo.GetByNumber(ctx, "LP-2026-aa110001")
	require.NoError(t, err)
	assert.Equal(t, got.ID, byNumber.ID)

	_, err = repo.GetByID(ctx, 9999)
	assert.ErrorIs(t, err, port.ErrNotFound)
}

func TestApplicationRepository_UpdateVersionGuard(t *testing.T) {
	db := newTestDB(t)
	repo := repository.NewApplicationRepository(db.DB, zap.NewNop())
	ctx := context.Background()

	app := newTestApplication(t, db, "LP-2026-aa110002")

	now := time.Now().UTC()
	app.CurrentStatus = string(workflow.StatusSubmitted)
	app.SubmittedAt = &now
	officerID := int64(1)
	app.AssignedJuniorEngineerID = &officerID
	app.JuniorEngineerDecision = entity.StageDecision{
		Outcome:   entity.DecisionApproved,
		Comment:   "documents in order",
		DecidedBy: &officerID,
		DecidedAt: &now,
	}

	require.NoError(t, repo.Update(ctx, app, 0))
	assert.Equal(t, int64(1), app.Version)

	got, err := repo.GetByID(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Version)
	assert.Equal(t, string(workflow.StatusSubmitted), got.CurrentStatus)
	require.NotNil(t, got.SubmittedAt)
	assert.WithinDuration(t, now, *got.SubmittedAt, time.Second)
	require.NotNil(t, got.AssignedJuniorEngineerID)
	assert.Equal(t, int64(1), *got.AssignedJuniorEngineerID)
	assert.Equal(t, entity.DecisionApproved, got.JuniorEngineerDecision.Outcome)
	assert.Equal(t, "documents in order", got.JuniorEngineerDecision.Comment)

	// A writer holding the old version must lose the race.
	err = repo.Update(ctx, app, 0)
	assert.ErrorIs(t, err, port.ErrVersionConflict)

	got, err = repo.GetByID(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Version)
}

func TestAssignmentHistoryRepository_Ledger(t *testing.T) {
	db := newTestDB(t)
	ledger := repository.NewAssignmentHistoryRepository(db.DB, zap.NewNop())
	ctx := context.Background()

	app := newTestApplication(t, db, "LP-2026-aa110003")
	assignedAt := time.Now().UTC().Add(-72 * time.Hour)

	first := &entity.AssignmentHistory{
		ApplicationID:        app.ID,
		RoleSlot:             entity.SlotJuniorEngineer,
		AssignedToOfficerID:  1,
		Action:               entity.AssignmentAutoAssigned,
		StrategyUsed:         entity.StrategyWorkloadBased,
		WorkloadAtAssignment: 0,
		IsActive:             true,
		AssignedAt:           assignedAt,
	}
	require.NoError(t, ledger.Append(ctx, first))
	assert.Greater(t, first.ID, int64(0))

	active, err := ledger.GetActive(ctx, app.ID, entity.SlotJuniorEngineer)
	require.NoError(t, err)
	assert.Equal(t, first.ID, active.ID)
	assert.Equal(t, int64(1), active.AssignedToOfficerID)
	assert.True(t, active.IsActive)
	assert.Nil(t, active.AcceptedAt)

	// The partial unique index admits at most one active row per slot.
	duplicate := &entity.AssignmentHistory{
		ApplicationID:       app.ID,
		RoleSlot:            entity.SlotJuniorEngineer,
		AssignedToOfficerID: 2,
		Action:              entity.AssignmentAutoAssigned,
		StrategyUsed:        entity.StrategyWorkloadBased,
		IsActive:            true,
		AssignedAt:          time.Now().UTC(),
	}
	err = ledger.Append(ctx, duplicate)
	assert.Error(t, err)

	now := time.Now().UTC()
	require.NoError(t, ledger.Inactivate(ctx, first.ID, now, 72))

	_, err = ledger.GetActive(ctx, app.ID, entity.SlotJuniorEngineer)
	assert.ErrorIs(t, err, port.ErrNotFound)

	err = ledger.Inactivate(ctx, first.ID, now, 72)
	assert.ErrorIs(t, err, port.ErrNotFound)

	previousID := first.AssignedToOfficerID
	second := &entity.AssignmentHistory{
		ApplicationID:        app.ID,
		RoleSlot:             entity.SlotJuniorEngineer,
		PreviousOfficerID:    &previousID,
		AssignedToOfficerID:  2,
		Action:               entity.AssignmentReassigned,
		StrategyUsed:         entity.StrategyWorkloadBased,
		WorkloadAtAssignment: 0,
		IsActive:             true,
		AssignedAt:           now,
	}
	require.NoError(t, ledger.Append(ctx, second))
	require.NoError(t, ledger.MarkAccepted(ctx, second.ID, now.Add(time.Minute)))

	reloaded, err := ledger.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.False(t, reloaded.IsActive)
	require.NotNil(t, reloaded.InactivatedAt)
	require.NotNil(t, reloaded.AssignmentDurationHours)
	assert.Equal(t, 72.0, *reloaded.AssignmentDurationHours)

	accepted, err := ledger.GetActive(ctx, app.ID, entity.SlotJuniorEngineer)
	require.NoError(t, err)
	require.NotNil(t, accepted.AcceptedAt)
	require.NotNil(t, accepted.PreviousOfficerID)
	assert.Equal(t, int64(1), *accepted.PreviousOfficerID)

	count, err := ledger.CountActiveByOfficer(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	workloads, err := ledger.CountActiveByOfficers(ctx, []int64{1, 2})
	require.NoError(t, err)
	assert.Equal(t, map[int64]int{1: 0, 2: 1}, workloads)

	trail, err := ledger.ListByApplication(ctx, app.ID)
	require.NoError(t, err)
	require.Len(t, trail, 2)
	assert.Equal(t, first.ID, trail[0].ID)
	assert.Equal(t, second.ID, trail[1].ID)
}

func TestAssignmentHistoryRepository_ListStaleActive(t *testing.T) {
	db := newTestDB(t)
	ledger := repository.NewAssignmentHistoryRepository(db.DB, zap.NewNop())
	ctx := context.Background()

	app := newTestApplication(t, db, "LP-2026-aa110004")
	now := time.Now().UTC()

	stale := &entity.AssignmentHistory{
		ApplicationID:       app.ID,
		RoleSlot:            entity.SlotJuniorEngineer,
		AssignedToOfficerID: 1,
		Action:              entity.AssignmentAutoAssigned,
		StrategyUsed:        entity.StrategyWorkloadBased,
		IsActive:            true,
		AssignedAt:          now.Add(-72 * time.Hour),
	}
	require.NoError(t, ledger.Append(ctx, stale))

	acceptedOld := &entity.AssignmentHistory{
		ApplicationID:       app.ID,
		RoleSlot:            entity.SlotAssistantEngineer,
		AssignedToOfficerID: 6,
		Action:              entity.AssignmentAutoAssigned,
		StrategyUsed:        entity.StrategyWorkloadBased,
		IsActive:            true,
		AssignedAt:          now.Add(-72 * time.Hour),
	}
	require.NoError(t, ledger.Append(ctx, acceptedOld))
	require.NoError(t, ledger.MarkAccepted(ctx, acceptedOld.ID, now.Add(-71*time.Hour)))

	fresh := &entity.AssignmentHistory{
		ApplicationID:       app.ID,
		RoleSlot:            entity.SlotExecutiveEngineer,
		AssignedToOfficerID: 11,
		Action:              entity.AssignmentAutoAssigned,
		StrategyUsed:        entity.StrategyWorkloadBased,
		IsActive:            true,
		AssignedAt:          now.Add(-time.Hour),
	}
	require.NoError(t, ledger.Append(ctx, fresh))

	rows, err := ledger.ListStaleActive(ctx, now.Add(-48*time.Hour))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, stale.ID, rows[0].ID)
}

func TestAssignmentRuleRepository_SeededRules(t *testing.T) {
	db := newTestDB(t)
	rules := repository.NewAssignmentRuleRepository(db.DB, zap.NewNop())
	ctx := context.Background()

	rule, err := rules.GetByPositionAndSlot(ctx, entity.PositionStructuralEngineer, entity.SlotJuniorEngineer)
	require.NoError(t, err)
	assert.Equal(t, entity.RoleJuniorEngineerStructural, rule.TargetRole)
	assert.Equal(t, entity.StrategyRoundRobin, rule.Strategy)
	assert.Equal(t, 2, rule.MinExperienceYears)
	assert.Equal(t, 8, rule.MaxWorkloadPerOfficer)
	assert.Equal(t, 48, rule.EscalationTimeHours)
	assert.Equal(t, entity.RoleJuniorEngineerCivil, rule.EscalationRole)
	assert.True(t, rule.IsActive)

	_, err = rules.GetByPositionAndSlot(ctx, "UNKNOWN_POSITION", entity.SlotJuniorEngineer)
	assert.ErrorIs(t, err, port.ErrNotFound)

	all, err := rules.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 25)
}

func TestAssignmentRuleRepository_RecordApplied(t *testing.T) {
	db := newTestDB(t)
	rules := repository.NewAssignmentRuleRepository(db.DB, zap.NewNop())
	ctx := context.Background()

	rule, err := rules.GetByPositionAndSlot(ctx, entity.PositionStructuralEngineer, entity.SlotJuniorEngineer)
	require.NoError(t, err)
	assert.Equal(t, int64(0), rule.TimesApplied)
	assert.Nil(t, rule.LastAppliedAt)

	appliedAt := time.Now().UTC()
	require.NoError(t, rules.RecordApplied(ctx, rule.ID, 3, appliedAt))

	updated, err := rules.GetByPositionAndSlot(ctx, entity.PositionStructuralEngineer, entity.SlotJuniorEngineer)
	require.NoError(t, err)
	assert.Equal(t, 3, updated.LastRoundRobinIndex)
	assert.Equal(t, int64(1), updated.TimesApplied)
	require.NotNil(t, updated.LastAppliedAt)
	assert.WithinDuration(t, appliedAt, *updated.LastAppliedAt, time.Second)

	err = rules.RecordApplied(ctx, 9999, 0, appliedAt)
	assert.ErrorIs(t, err, port.ErrNotFound)
}

func TestOfficerRepository(t *testing.T) {
	db := newTestDB(t)
	officers := repository.NewOfficerRepository(db.DB, zap.NewNop())
	ctx := context.Background()

	seeded, err := officers.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "ENG-10001", seeded.EmployeeCode)
	assert.Equal(t, entity.RoleJuniorEngineerCivil, seeded.Role)
	assert.True(t, seeded.IsActive)

	created := &entity.Officer{
		EmployeeCode:    "ENG-10099",
		FullName:        "Meera Kulkarni",
		Role:            entity.RoleJuniorEngineerCivil,
		Specialization:  "CIVIL",
		ExperienceYears: 6,
		PriorityRank:    4,
		SkillScore:      70,
		IsActive:        true,
	}
	require.NoError(t, officers.Create(ctx, created))
	assert.Greater(t, created.ID, int64(15))

	pool, err := officers.GetActiveByRoles(ctx, []string{entity.RoleJuniorEngineerCivil, entity.RoleJuniorEngineerStructural})
	require.NoError(t, err)
	require.Len(t, pool, 4)
	assert.Equal(t, int64(1), pool[0].ID)
	assert.Equal(t, int64(2), pool[1].ID)
	assert.Equal(t, int64(3), pool[2].ID)
	assert.Equal(t, created.ID, pool[3].ID)

	require.NoError(t, officers.SetActive(ctx, 1, false))
	pool, err = officers.GetActiveByRoles(ctx, []string{entity.RoleJuniorEngineerCivil, entity.RoleJuniorEngineerStructural})
	require.NoError(t, err)
	require.Len(t, pool, 3)
	assert.Equal(t, int64(2), pool[0].ID)

	pool, err = officers.GetActiveByRoles(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, pool)

	err = officers.SetActive(ctx, 9999, false)
	assert.ErrorIs(t, err, port.ErrNotFound)
}

func TestTransitionRepository_LoadRules(t *testing.T) {
	db := newTestDB(t)
	transitions := repository.NewTransitionRepository(db.DB, zap.NewNop())

	rules, err := transitions.LoadRules(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, rules)

	// The seeded table must compile cleanly and route the happy path.
	table, err := workflow.NewTable(rules)
	require.NoError(t, err)

	target, ok := table.Target(workflow.StatusDraft, workflow.ActionSubmit)
	require.True(t, ok)
	assert.Equal(t, workflow.StatusSubmitted, target)
}
