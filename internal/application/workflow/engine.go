package workflow

import (
	"context"
	"time"

	domainwf "github.com/civicgrid/licensing-portal/internal/domain/workflow"
)

// ActionRequest describes one workflow action against an application
type ActionRequest struct {
	ApplicationID  int64           `json:"application_id"`
	Action         domainwf.Action `json:"action"`
	ActorOfficerID *int64          `json:"actor_officer_id,omitempty"`

	// Comment is mandatory for REJECT and REJECT_DOCUMENT
	Comment string `json:"comment,omitempty"`

	// ManualOfficerID and StrategyOverride tune assignment-producing actions
	ManualOfficerID  *int64 `json:"manual_officer_id,omitempty"`
	StrategyOverride string `json:"strategy_override,omitempty"`

	// AppointmentAt is required for SCHEDULE_APPOINTMENT
	AppointmentAt *time.Time `json:"appointment_at,omitempty"`

	// DocumentRef names the document for signature requests
	DocumentRef string `json:"document_ref,omitempty"`
}

// ActionResult is returned for every action, failed or not. On failure
// NewStatus holds the unchanged current status.
type ActionResult struct {
	Success    bool            `json:"success"`
	NewStatus  domainwf.Status `json:"new_status"`
	NextAction domainwf.Action `json:"next_action,omitempty"`
	Errors     []string        `json:"errors,omitempty"`
}

// Orchestrator is the façade external callers invoke: it composes the state
// machine, gate evaluators, and assignment engine to execute one workflow
// action as a single logical operation.
type Orchestrator interface {
	// ExecuteAction validates, gates, and applies one action. All writes
	// commit or roll back together; a failed action leaves the application
	// in its prior status.
	ExecuteAction(ctx context.Context, req ActionRequest) (*ActionResult, error)

	// CurrentStatus returns the application's current status
	CurrentStatus(ctx context.Context, applicationID int64) (domainwf.Status, error)

	// PermittedActions returns the actions legal in the current status
	PermittedActions(ctx context.Context, applicationID int64) ([]domainwf.Action, error)
}
