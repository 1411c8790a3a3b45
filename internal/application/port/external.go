package port

import "context"

// SignatureRequest is the HSM's acknowledgement of a signing request
type SignatureRequest struct {
	SignatureID string `json:"signature_id"`
	Status      string `json:"status"`
}

// SignatureStatus is the HSM's view of a signature's progress
type SignatureStatus struct {
	Status     string `json:"status"`
	IsVerified bool   `json:"is_verified"`
}

// PaymentStatus is the gateway's view of an application's fee payment
type PaymentStatus struct {
	IsComplete bool    `json:"is_complete"`
	AmountPaid float64 `json:"amount_paid"`
}

// DocumentStore is the external document service. The core never reads file
// bytes; it only consumes verification statuses.
type DocumentStore interface {
	GetVerificationStatus(ctx context.Context, documentRef string) (string, error)
}

// SignatureService is the HSM boundary. Signing is an opaque asynchronous
// capability; the core only inspects the terminal status.
type SignatureService interface {
	RequestSignature(ctx context.Context, applicationID int64, roleSlot, documentRef string) (*SignatureRequest, error)
	GetSignatureStatus(ctx context.Context, signatureID string) (*SignatureStatus, error)
}

// PaymentGateway exposes payment completion state. Redirects and webhooks are
// handled elsewhere.
type PaymentGateway interface {
	GetPaymentStatus(ctx context.Context, applicationID int64) (*PaymentStatus, error)
}

// Notifier delivers fire-and-forget notifications. Failures must never roll
// back a workflow transition.
type Notifier interface {
	Notify(ctx context.Context, userID, notificationType string, payload map[string]interface{}) error
}
