// Package container provides dependency injection and lifecycle management
// for the licensing portal. Components initialize in dependency order and
// tear down in reverse.
package container

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/civicgrid/licensing-portal/internal/application/assignment"
	"github.com/civicgrid/licensing-portal/internal/application/dispatcher"
	"github.com/civicgrid/licensing-portal/internal/application/gate"
	"github.com/civicgrid/licensing-portal/internal/application/port"
	"github.com/civicgrid/licensing-portal/internal/application/service"
	appwf "github.com/civicgrid/licensing-portal/internal/application/workflow"
	"github.com/civicgrid/licensing-portal/internal/config"
	domainwf "github.com/civicgrid/licensing-portal/internal/domain/workflow"
	"github.com/civicgrid/licensing-portal/internal/infrastructure/external/docstore"
	"github.com/civicgrid/licensing-portal/internal/infrastructure/external/hsm"
	"github.com/civicgrid/licensing-portal/internal/infrastructure/external/notify"
	"github.com/civicgrid/licensing-portal/internal/infrastructure/external/payment"
	"github.com/civicgrid/licensing-portal/internal/infrastructure/persistence/repository"
	"github.com/civicgrid/licensing-portal/internal/infrastructure/persistence/sqlite"
	"github.com/civicgrid/licensing-portal/internal/infrastructure/worker"
	"github.com/civicgrid/licensing-portal/pkg/database"
)

// RepositoryBundle groups all repositories for convenient access
type RepositoryBundle struct {
	Applications  port.ApplicationRepository
	Officers      port.OfficerRepository
	Assignments   port.AssignmentHistoryRepository
	Rules         port.AssignmentRuleRepository
	Verifications port.DocumentVerificationRepository
	Signatures    port.SignatureRepository
	Appointments  port.AppointmentRepository
	Payments      port.PaymentRepository
	StatusHistory port.StatusHistoryRepository
	Transitions   port.TransitionRepository
}

// ServiceBundle groups all application services
type ServiceBundle struct {
	Applications service.ApplicationService
	Escalations  service.EscalationService
	Reports      service.ReportService
}

// Container manages all application dependencies and their lifecycle
type Container struct {
	config *config.Config
	logger *zap.Logger

	db           *database.DB
	txManager    *sqlite.DB
	repositories *RepositoryBundle

	table        *domainwf.Table
	dispatcher   dispatcher.Dispatcher
	gates        *gate.Evaluator
	assigner     *assignment.Engine
	orchestrator appwf.Orchestrator
	services     *ServiceBundle

	workers *worker.Manager

	mu     sync.Mutex
	cancel context.CancelFunc
	ready  atomic.Bool
	closed atomic.Bool
}

// New creates a container from configuration. Components are not
// initialized until Start is called.
func New(cfg *config.Config, logger *zap.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &Container{
		config: cfg,
		logger: logger,
	}, nil
}

// Start initializes all components in dependency order
func (c *Container) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ready.Load() {
		return fmt.Errorf("container already started")
	}
	if c.closed.Load() {
		return fmt.Errorf("container is closed")
	}

	ctx, c.cancel = context.WithCancel(ctx)

	db, err := database.New(database.Config{
		Path:            c.config.Database.Path,
		MaxOpenConns:    c.config.Database.MaxOpenConns,
		MaxIdleConns:    c.config.Database.MaxIdleConns,
		ConnMaxLifetime: c.config.Database.ConnMaxLifetime,
	}, c.logger)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	c.db = db

	if c.config.Database.MigrationsDir != "" {
		migrator := database.NewMigrator(db, c.logger)
		if err := migrator.RunMigrations(c.config.Database.MigrationsDir); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	c.txManager = sqlite.NewDB(db.DB, c.logger)
	c.repositories = c.provideRepositories()

	rules, err := c.repositories.Transitions.LoadRules(ctx)
	if err != nil {
		return fmt.Errorf("failed to load transition rules: %w", err)
	}
	if len(rules) == 0 {
		rules = domainwf.DefaultRules()
		c.logger.Warn("Transition table empty, falling back to built-in rules")
	}
	table, err := domainwf.NewTable(rules)
	if err != nil {
		return fmt.Errorf("invalid transition table: %w", err)
	}
	c.table = table

	c.dispatcher = dispatcher.New(c.logger)
	c.gates = gate.NewEvaluator(
		c.repositories.Verifications,
		c.repositories.Signatures,
		c.repositories.Payments,
	)
	c.assigner = assignment.NewEngine(
		c.repositories.Officers,
		c.repositories.Assignments,
		c.repositories.Rules,
		c.txManager,
		c.logger,
	)

	docStore := docstore.NewClient(
		c.config.Documents.BaseURL, c.config.Documents.APIKey,
		c.config.Documents.Timeout, c.logger)
	signatureSvc := hsm.NewClient(
		c.config.HSM.BaseURL, c.config.HSM.APIKey, c.config.HSM.Timeout, c.logger)
	paymentGW := payment.NewClient(
		c.config.Payment.BaseURL, c.config.Payment.MerchantID,
		c.config.Payment.APIKey, c.config.Payment.Timeout, c.logger)
	notifier := notify.NewWebhookNotifier(
		c.config.Notify.WebhookURL, c.config.Notify.Timeout, c.logger)

	c.orchestrator = appwf.NewOrchestrator(appwf.Deps{
		Table:         c.table,
		Applications:  c.repositories.Applications,
		StatusHistory: c.repositories.StatusHistory,
		Verifications: c.repositories.Verifications,
		Signatures:    c.repositories.Signatures,
		Appointments:  c.repositories.Appointments,
		Payments:      c.repositories.Payments,
		Rules:         c.repositories.Rules,
		Gates:         c.gates,
		Assigner:      c.assigner,
		DocStore:      docStore,
		SignatureSvc:  signatureSvc,
		PaymentGW:     paymentGW,
		Notifier:      notifier,
		TxManager:     c.txManager,
		Dispatcher:    c.dispatcher,
		Logger:        c.logger,
	})

	c.services = &ServiceBundle{
		Applications: service.NewApplicationService(
			c.repositories.Applications,
			c.repositories.Verifications,
			c.repositories.StatusHistory,
			c.repositories.Assignments,
			c.orchestrator,
			c.txManager,
			c.logger,
		),
		Escalations: service.NewEscalationService(
			c.repositories.Assignments,
			c.repositories.Applications,
			c.repositories.Rules,
			c.orchestrator,
			c.config.Escalation.DefaultHours,
			c.logger,
		),
		Reports: service.NewReportService(
			c.repositories.Officers,
			c.repositories.Assignments,
			c.logger,
		),
	}

	c.workers = worker.NewManager(c.logger)
	c.workers.Register(worker.NewEscalationWorker(
		c.services.Escalations, c.config.Escalation.Schedule, c.logger))
	if err := c.workers.StartAll(ctx); err != nil {
		return fmt.Errorf("failed to start workers: %w", err)
	}

	c.ready.Store(true)
	c.logger.Info("Container started",
		zap.Int("transition_rules", len(rules)))
	return nil
}

func (c *Container) provideRepositories() *RepositoryBundle {
	db := c.db.DB
	return &RepositoryBundle{
		Applications:  repository.NewApplicationRepository(db, c.logger),
		Officers:      repository.NewOfficerRepository(db, c.logger),
		Assignments:   repository.NewAssignmentHistoryRepository(db, c.logger),
		Rules:         repository.NewAssignmentRuleRepository(db, c.logger),
		Verifications: repository.NewDocumentVerificationRepository(db, c.logger),
		Signatures:    repository.NewSignatureRepository(db, c.logger),
		Appointments:  repository.NewAppointmentRepository(db, c.logger),
		Payments:      repository.NewPaymentRepository(db, c.logger),
		StatusHistory: repository.NewStatusHistoryRepository(db, c.logger),
		Transitions:   repository.NewTransitionRepository(db, c.logger),
	}
}

// Services returns the application service bundle
func (c *Container) Services() *ServiceBundle {
	return c.services
}

// Repositories returns the repository bundle
func (c *Container) Repositories() *RepositoryBundle {
	return c.repositories
}

// Orchestrator returns the workflow orchestrator
func (c *Container) Orchestrator() appwf.Orchestrator {
	return c.orchestrator
}

// Dispatcher returns the event dispatcher
func (c *Container) Dispatcher() dispatcher.Dispatcher {
	return c.dispatcher
}

// Ready reports whether the container finished starting
func (c *Container) Ready() bool {
	return c.ready.Load()
}

// Close tears everything down in reverse initialization order
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return nil
	}
	c.closed.Store(true)
	c.ready.Store(false)

	if c.cancel != nil {
		c.cancel()
	}

	var errs []error
	if c.workers != nil {
		if err := c.workers.StopAll(); err != nil {
			errs = append(errs, err)
		}
	}
	if c.dispatcher != nil {
		if err := c.dispatcher.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if c.db != nil {
		if err := c.db.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("container shutdown errors: %v", errs)
	}
	c.logger.Info("Container closed")
	return nil
}
