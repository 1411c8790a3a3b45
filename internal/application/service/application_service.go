package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	appwf "github.com/civicgrid/licensing-portal/internal/application/workflow"
	"github.com/civicgrid/licensing-portal/internal/application/port"
	"github.com/civicgrid/licensing-portal/internal/domain/entity"
	domainwf "github.com/civicgrid/licensing-portal/internal/domain/workflow"
	"github.com/civicgrid/licensing-portal/pkg/utils"
)

// CreateApplicationRequest carries the applicant's registration form
type CreateApplicationRequest struct {
	ApplicantName   string  `json:"applicant_name"`
	ApplicantUserID string  `json:"applicant_user_id"`
	PositionType    string  `json:"position_type"`
	FeeAmount       float64 `json:"fee_amount"`
}

// ApplicationHistory bundles the two audit trails for one application
type ApplicationHistory struct {
	StatusChanges []*entity.StatusHistory     `json:"status_changes"`
	Assignments   []*entity.AssignmentHistory `json:"assignments"`
}

// ApplicationService is the inbound boundary for applicants and officers
type ApplicationService interface {
	// Create registers a new application in DRAFT with its required
	// document checklist
	Create(ctx context.Context, req CreateApplicationRequest) (*entity.Application, error)

	// Get returns one application
	Get(ctx context.Context, id int64) (*entity.Application, error)

	// List returns applications with pagination
	List(ctx context.Context, limit, offset int) ([]*entity.Application, error)

	// ExecuteAction runs one workflow action through the orchestrator
	ExecuteAction(ctx context.Context, req appwf.ActionRequest) (*appwf.ActionResult, error)

	// History returns the status and assignment audit trails
	History(ctx context.Context, id int64) (*ApplicationHistory, error)
}

// requiredDocuments lists the verification checklist per position type
var requiredDocuments = map[string][]string{
	entity.PositionStructuralEngineer: {"DEGREE_CERTIFICATE", "EXPERIENCE_CERTIFICATE", "IDENTITY_PROOF", "ADDRESS_PROOF"},
	entity.PositionArchitect:          {"COUNCIL_REGISTRATION", "DEGREE_CERTIFICATE", "IDENTITY_PROOF", "ADDRESS_PROOF"},
	entity.PositionLicensedSurveyor:   {"SURVEY_DIPLOMA", "EXPERIENCE_CERTIFICATE", "IDENTITY_PROOF"},
	entity.PositionSiteSupervisor:     {"DIPLOMA_CERTIFICATE", "EXPERIENCE_CERTIFICATE", "IDENTITY_PROOF"},
	entity.PositionPlumber:            {"TRADE_LICENSE", "EXPERIENCE_CERTIFICATE", "IDENTITY_PROOF"},
}

type applicationService struct {
	apps          port.ApplicationRepository
	verifications port.DocumentVerificationRepository
	statusHistory port.StatusHistoryRepository
	assignments   port.AssignmentHistoryRepository
	orchestrator  appwf.Orchestrator
	txManager     port.TransactionManager
	logger        *zap.Logger
}

// NewApplicationService creates the application service
func NewApplicationService(
	apps port.ApplicationRepository,
	verifications port.DocumentVerificationRepository,
	statusHistory port.StatusHistoryRepository,
	assignments port.AssignmentHistoryRepository,
	orchestrator appwf.Orchestrator,
	txManager port.TransactionManager,
	logger *zap.Logger,
) ApplicationService {
	return &applicationService{
		apps:          apps,
		verifications: verifications,
		statusHistory: statusHistory,
		assignments:   assignments,
		orchestrator:  orchestrator,
		txManager:     txManager,
		logger:        logger,
	}
}

func (s *applicationService) Create(ctx context.Context, req CreateApplicationRequest) (*entity.Application, error) {
	if strings.TrimSpace(req.ApplicantName) == "" {
		return nil, fmt.Errorf("%w: applicant name is required", appwf.ErrValidation)
	}
	if err := utils.ValidateUserID(req.ApplicantUserID); err != nil {
		return nil, fmt.Errorf("%w: %v", appwf.ErrValidation, err)
	}
	docs, ok := requiredDocuments[req.PositionType]
	if !ok {
		return nil, fmt.Errorf("%w: unknown position type %q", appwf.ErrValidation, req.PositionType)
	}
	if req.FeeAmount <= 0 {
		return nil, fmt.Errorf("%w: fee amount must be positive", appwf.ErrValidation)
	}

	app := &entity.Application{
		ApplicationNumber: newApplicationNumber(),
		ApplicantName:     req.ApplicantName,
		ApplicantUserID:   req.ApplicantUserID,
		PositionType:      req.PositionType,
		CurrentStatus:     domainwf.StatusDraft.String(),
		FeeAmount:         req.FeeAmount,
		JuniorEngineerDecision:    entity.StageDecision{Outcome: entity.DecisionNone},
		AssistantEngineerDecision: entity.StageDecision{Outcome: entity.DecisionNone},
		ExecutiveEngineerDecision: entity.StageDecision{Outcome: entity.DecisionNone},
		CityEngineerDecision:      entity.StageDecision{Outcome: entity.DecisionNone},
		ClerkDecision:             entity.StageDecision{Outcome: entity.DecisionNone},
	}

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.apps.Create(txCtx, app); err != nil {
			return fmt.Errorf("failed to create application: %w", err)
		}
		for _, docType := range docs {
			dv := &entity.DocumentVerification{
				ApplicationID: app.ID,
				DocumentType:  docType,
				Status:        entity.VerificationPending,
				Required:      true,
			}
			if err := s.verifications.Create(txCtx, dv); err != nil {
				return fmt.Errorf("failed to create document checklist: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Application created",
		zap.Int64("application_id", app.ID),
		zap.String("application_number", app.ApplicationNumber),
		zap.String("position_type", app.PositionType))

	return app, nil
}

func (s *applicationService) Get(ctx context.Context, id int64) (*entity.Application, error) {
	return s.apps.GetByID(ctx, id)
}

func (s *applicationService) List(ctx context.Context, limit, offset int) ([]*entity.Application, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.apps.List(ctx, limit, offset)
}

func (s *applicationService) ExecuteAction(ctx context.Context, req appwf.ActionRequest) (*appwf.ActionResult, error) {
	return s.orchestrator.ExecuteAction(ctx, req)
}

func (s *applicationService) History(ctx context.Context, id int64) (*ApplicationHistory, error) {
	statuses, err := s.statusHistory.ListByApplication(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load status history: %w", err)
	}
	assignments, err := s.assignments.ListByApplication(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load assignment history: %w", err)
	}
	return &ApplicationHistory{
		StatusChanges: statuses,
		Assignments:   assignments,
	}, nil
}

// newApplicationNumber builds a human-readable reference like
// LP-2026-7f3a9c1d.
func newApplicationNumber() string {
	return fmt.Sprintf("LP-%d-%s", time.Now().Year(), uuid.NewString()[:8])
}
