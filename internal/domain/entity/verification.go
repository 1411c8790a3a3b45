package entity

import "time"

// DocumentVerification is a per-document side record owned by an application.
// It transitions independently; the workflow only reads its terminal status.
type DocumentVerification struct {
	ID            int64      `json:"id"`
	ApplicationID int64      `json:"application_id"`
	DocumentType  string     `json:"document_type"`
	DocumentRef   string     `json:"document_ref"`
	Status        string     `json:"status"`
	Required      bool       `json:"required"`
	Remarks       string     `json:"remarks,omitempty"`
	VerifiedBy    *int64     `json:"verified_by,omitempty"`
	VerifiedAt    *time.Time `json:"verified_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// DigitalSignature tracks the HSM signing result for one stage of an
// application. The signing protocol itself is outside this system; only the
// terminal status and verification flag gate the workflow.
type DigitalSignature struct {
	ID            int64      `json:"id"`
	ApplicationID int64      `json:"application_id"`
	RoleSlot      string     `json:"role_slot"`
	SignatureRef  string     `json:"signature_ref,omitempty"`
	DocumentRef   string     `json:"document_ref,omitempty"`
	Status        string     `json:"status"`
	IsVerified    bool       `json:"is_verified"`
	SignedBy      *int64     `json:"signed_by,omitempty"`
	RequestedAt   *time.Time `json:"requested_at,omitempty"`
	SignedAt      *time.Time `json:"signed_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Appointment is a scheduled site-visit slot. Reschedules link by id in both
// directions rather than holding object references, so no in-memory cycle
// can form.
type Appointment struct {
	ID                int64      `json:"id"`
	ApplicationID     int64      `json:"application_id"`
	OfficerID         int64      `json:"officer_id"`
	ScheduledFor      time.Time  `json:"scheduled_for"`
	Location          string     `json:"location,omitempty"`
	Status            string     `json:"status"`
	Notes             string     `json:"notes,omitempty"`
	RescheduledFromID *int64     `json:"rescheduled_from_id,omitempty"`
	RescheduledToID   *int64     `json:"rescheduled_to_id,omitempty"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// PaymentRecord mirrors the gateway's view of an application fee. The core
// never talks to the gateway redirect flow; it only inspects the latest row.
type PaymentRecord struct {
	ID             int64      `json:"id"`
	ApplicationID  int64      `json:"application_id"`
	TransactionRef string     `json:"transaction_ref"`
	Status         string     `json:"status"`
	AmountPaid     float64    `json:"amount_paid"`
	FeeAmount      float64    `json:"fee_amount"`
	PaidAt         *time.Time `json:"paid_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}
