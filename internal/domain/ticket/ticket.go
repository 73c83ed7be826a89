package ticket

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/budapestgo/ticketing/internal/domain/catalog"
)

// Ticket is an issued fare ticket. It is created once per successful
// payment and owns its own validate/expire sub-lifecycle: inactive on
// creation, active between Validate and Expire, and never mutated
// after expiry.
type Ticket struct {
	id            string
	typ           catalog.TicketType
	qrCode        string
	purchaseTime  time.Time
	transactionID string

	validationTime time.Time
	expiryTime     time.Time
	active         bool
}

// New creates a ticket for the given type, backed by the transaction
// that paid for it.
func New(typ catalog.TicketType, transactionID string) (*Ticket, error) {
	if !typ.IsValid() {
		return nil, fmt.Errorf("%w: ticket type %q", ErrInvalidArgument, typ)
	}
	if strings.TrimSpace(transactionID) == "" {
		return nil, fmt.Errorf("%w: transaction id is empty", ErrInvalidArgument)
	}

	id := uuid.New().String()
	return &Ticket{
		id:            id,
		typ:           typ,
		qrCode:        buildQRCode(id, transactionID),
		purchaseTime:  time.Now(),
		transactionID: transactionID,
	}, nil
}

// buildQRCode derives the QR payload from the ticket id prefix and the
// transaction id prefix (minus its "TX-" tag).
func buildQRCode(ticketID, transactionID string) string {
	ref := strings.TrimPrefix(transactionID, "TX-")
	if len(ref) > 8 {
		ref = ref[:8]
	}
	return fmt.Sprintf("QR-%s-%s", ticketID[:8], ref)
}

// Validate activates the ticket. The expiry time is fixed at
// validation time plus the type's validity period.
func (t *Ticket) Validate() error {
	if t.active {
		return fmt.Errorf("%w: ticket %s", ErrAlreadyActive, t.id)
	}

	t.validationTime = time.Now()
	t.expiryTime = t.validationTime.Add(t.typ.Validity())
	t.active = true
	return nil
}

// Expire deactivates the ticket. All other fields are retained for
// audit reads.
func (t *Ticket) Expire() error {
	if !t.active {
		return fmt.Errorf("%w: ticket %s", ErrNotActive, t.id)
	}
	t.active = false
	return nil
}

// IsExpired reports whether an active ticket's validity window has
// passed.
func (t *Ticket) IsExpired() bool {
	if !t.active || t.expiryTime.IsZero() {
		return false
	}
	return time.Now().After(t.expiryTime)
}

// RemainingValidity returns how long the ticket stays valid, or zero
// if it is not active.
func (t *Ticket) RemainingValidity() time.Duration {
	if !t.active || t.expiryTime.IsZero() {
		return 0
	}
	remaining := time.Until(t.expiryTime)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// ID returns the ticket's unique identifier.
func (t *Ticket) ID() string { return t.id }

// Type returns the ticket's fare type.
func (t *Ticket) Type() catalog.TicketType { return t.typ }

// QRCode returns the QR payload issued with the ticket.
func (t *Ticket) QRCode() string { return t.qrCode }

// PurchaseTime returns when the ticket was created.
func (t *Ticket) PurchaseTime() time.Time { return t.purchaseTime }

// TransactionID returns the payment transaction that produced the ticket.
func (t *Ticket) TransactionID() string { return t.transactionID }

// ValidationTime returns when the ticket was validated, zero if never.
func (t *Ticket) ValidationTime() time.Time { return t.validationTime }

// ExpiryTime returns when the ticket's validity ends, zero if never
// validated.
func (t *Ticket) ExpiryTime() time.Time { return t.expiryTime }

// IsActive reports whether the ticket is between validation and expiry.
func (t *Ticket) IsActive() bool { return t.active }

// String returns a short summary for logs.
func (t *Ticket) String() string {
	if t.active {
		return fmt.Sprintf("Ticket{id=%s, type=%s, qr=%s, active=true, remaining=%s}",
			t.id[:8], t.typ.DisplayName(), t.qrCode, t.RemainingValidity().Round(time.Second))
	}
	return fmt.Sprintf("Ticket{id=%s, type=%s, qr=%s, active=false}",
		t.id[:8], t.typ.DisplayName(), t.qrCode)
}
