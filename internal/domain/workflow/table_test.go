package workflow

import (
	"context"
	"errors"
	"testing"
)

func TestNewTable_Validation(t *testing.T) {
	tests := []struct {
		name    string
		rules   []TransitionRule
		wantErr bool
	}{
		{
			name:    "valid rules",
			rules:   []TransitionRule{{StatusDraft, ActionSubmit, StatusSubmitted}},
			wantErr: false,
		},
		{
			name:    "unknown source status",
			rules:   []TransitionRule{{Status("NOPE"), ActionSubmit, StatusSubmitted}},
			wantErr: true,
		},
		{
			name:    "unknown target status",
			rules:   []TransitionRule{{StatusDraft, ActionSubmit, Status("NOPE")}},
			wantErr: true,
		},
		{
			name:    "unknown action",
			rules:   []TransitionRule{{StatusDraft, Action("TELEPORT"), StatusSubmitted}},
			wantErr: true,
		},
		{
			name:    "transition out of terminal status",
			rules:   []TransitionRule{{StatusCompleted, ActionSubmit, StatusDraft}},
			wantErr: true,
		},
		{
			name: "duplicate pair",
			rules: []TransitionRule{
				{StatusDraft, ActionSubmit, StatusSubmitted},
				{StatusDraft, ActionSubmit, StatusRejected},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTable(tt.rules)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewTable() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestTable_Target(t *testing.T) {
	table, err := NewTable(DefaultRules())
	if err != nil {
		t.Fatalf("NewTable() error = %v", err)
	}

	tests := []struct {
		from   Status
		action Action
		want   Status
		ok     bool
	}{
		{StatusDraft, ActionSubmit, StatusSubmitted, true},
		{StatusSubmitted, ActionAssignToRole, StatusJuniorEngineerPending, true},
		{StatusJuniorEngineerPending, ActionEscalate, StatusJuniorEngineerPending, true},
		{StatusCityEngineerApproved, ActionForwardToNextRole, StatusPaymentPending, true},
		{StatusPaymentPending, ActionRecordPayment, StatusPaymentCompleted, true},
		{StatusCertificateIssued, ActionComplete, StatusCompleted, true},
		{StatusResubmissionRequired, ActionSubmit, StatusSubmitted, true},
		{StatusDraft, ActionApprove, "", false},
		{StatusCompleted, ActionSubmit, "", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"/"+string(tt.action), func(t *testing.T) {
			got, ok := table.Target(tt.from, tt.action)
			if ok != tt.ok || got != tt.want {
				t.Errorf("Target(%s, %s) = (%s, %v), want (%s, %v)",
					tt.from, tt.action, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestDefaultRules_Compile(t *testing.T) {
	table, err := NewTable(DefaultRules())
	if err != nil {
		t.Fatalf("default rules do not compile: %v", err)
	}

	// Every rejection stop must offer both the resubmission loop and final rejection
	for _, status := range []Status{
		StatusJuniorEngineerRejected,
		StatusAssistantEngineerRejected,
		StatusExecutiveEngineerRejected,
		StatusCityEngineerRejected,
		StatusClerkRejected,
	} {
		if _, ok := table.Target(status, ActionResubmit); !ok {
			t.Errorf("no RESUBMIT transition out of %s", status)
		}
		if to, ok := table.Target(status, ActionReject); !ok || to != StatusRejected {
			t.Errorf("REJECT out of %s = (%s, %v), want (%s, true)", status, to, ok, StatusRejected)
		}
	}
}

func TestTable_Machine_Fire(t *testing.T) {
	table, err := NewTable(DefaultRules())
	if err != nil {
		t.Fatalf("NewTable() error = %v", err)
	}

	machine, err := table.Machine(StatusDraft)
	if err != nil {
		t.Fatalf("Machine() error = %v", err)
	}

	ctx := context.Background()

	if err := machine.Fire(ctx, ActionSubmit); err != nil {
		t.Fatalf("Fire(SUBMIT) error = %v", err)
	}
	if machine.Status() != StatusSubmitted {
		t.Errorf("Status() = %s, want %s", machine.Status(), StatusSubmitted)
	}

	err = machine.Fire(ctx, ActionIssueCertificate)
	if err == nil {
		t.Fatal("Fire(ISSUE_CERTIFICATE) from SUBMITTED succeeded, want error")
	}
	if !errors.Is(err, ErrIllegalTransition) {
		t.Errorf("Fire() error = %v, want ErrIllegalTransition", err)
	}

	var illegalErr *IllegalTransitionError
	if !errors.As(err, &illegalErr) {
		t.Fatalf("Fire() error = %T, want *IllegalTransitionError", err)
	}
	if illegalErr.Status != StatusSubmitted || illegalErr.Action != ActionIssueCertificate {
		t.Errorf("IllegalTransitionError = {%s %s}, want {%s %s}",
			illegalErr.Status, illegalErr.Action, StatusSubmitted, ActionIssueCertificate)
	}

	// Failed fire leaves the cursor untouched
	if machine.Status() != StatusSubmitted {
		t.Errorf("Status() after failed fire = %s, want %s", machine.Status(), StatusSubmitted)
	}
}

func TestTable_Machine_InvalidStatus(t *testing.T) {
	table, err := NewTable(DefaultRules())
	if err != nil {
		t.Fatalf("NewTable() error = %v", err)
	}

	if _, err := table.Machine(Status("BOGUS")); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("Machine(BOGUS) error = %v, want ErrInvalidStatus", err)
	}
}

func TestStateMachine_PermittedActions(t *testing.T) {
	table, err := NewTable(DefaultRules())
	if err != nil {
		t.Fatalf("NewTable() error = %v", err)
	}

	machine, err := table.Machine(StatusJuniorEngineerPending)
	if err != nil {
		t.Fatalf("Machine() error = %v", err)
	}

	permitted := make(map[Action]bool)
	for _, a := range machine.PermittedActions() {
		permitted[a] = true
	}

	for _, want := range []Action{ActionScheduleAppointment, ActionAssignToRole, ActionEscalate, ActionReject} {
		if !permitted[want] {
			t.Errorf("PermittedActions() missing %s", want)
		}
	}
	if permitted[ActionComplete] {
		t.Error("PermittedActions() contains COMPLETE, want absent")
	}

	if !machine.CanFire(ActionEscalate) {
		t.Error("CanFire(ESCALATE) = false, want true")
	}
	if machine.CanFire(ActionIssueCertificate) {
		t.Error("CanFire(ISSUE_CERTIFICATE) = true, want false")
	}
}

func TestStateMachine_GuardedTransition(t *testing.T) {
	builder := NewBuilder()
	builder.Configure(StatusPaymentPending).
		PermitIf(ActionRecordPayment, StatusPaymentCompleted, func(ctx context.Context) bool { return false })

	machine := builder.Build(StatusPaymentPending)

	err := machine.Fire(context.Background(), ActionRecordPayment)
	if !errors.Is(err, ErrGuardFailed) {
		t.Errorf("Fire() error = %v, want ErrGuardFailed", err)
	}
	if machine.Status() != StatusPaymentPending {
		t.Errorf("Status() = %s, want %s", machine.Status(), StatusPaymentPending)
	}
}
