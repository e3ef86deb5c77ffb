package models

// ApprovalOutcome is the normalized status of a payment or manual review.
type ApprovalOutcome string

const (
	OutcomeApproved ApprovalOutcome = "approved"
	OutcomeRejected ApprovalOutcome = "rejected"
	OutcomePending  ApprovalOutcome = "pending"
)

// ApprovalEvent is the uniform shape both entry points (payment webhook,
// manual reviewer action) are normalized into before reaching the
// confirmation engine. Ephemeral: only its payment id persists, as the
// idempotency marker on the confirmed booking.
type ApprovalEvent struct {
	PaymentID   string            `json:"payment_id"`
	SlotRef     string            `json:"slot_ref"`
	Amount      float64           `json:"amount"`
	Modality    PaymentModality   `json:"modality"`
	Outcome     ApprovalOutcome   `json:"outcome"`
	Method      string            `json:"method,omitempty"`
	Channel     BookingChannel    `json:"channel"`
	RequesterID string            `json:"requester_id,omitempty"`
	PayerName   string            `json:"payer_name,omitempty"`
	PayerEmail  string            `json:"payer_email,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// PaymentDetail flattens the event into the sub-record written onto the
// confirmed booking.
func (e *ApprovalEvent) PaymentDetail() *PaymentDetail {
	modality := e.Modality
	if modality == "" {
		modality = ModalityFull
	}
	return &PaymentDetail{
		PaymentID:  e.PaymentID,
		Amount:     e.Amount,
		Modality:   modality,
		Method:     e.Method,
		PayerName:  e.PayerName,
		PayerEmail: e.PayerEmail,
		Metadata:   e.Metadata,
	}
}
