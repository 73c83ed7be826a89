package catalog

// PaymentMethod identifies a supported payment method.
type PaymentMethod string

const (
	MethodCard      PaymentMethod = "card"
	MethodGooglePay PaymentMethod = "google_pay"
	MethodApplePay  PaymentMethod = "apple_pay"
)

// Methods returns all payment methods in the catalog.
func Methods() []PaymentMethod {
	return []PaymentMethod{MethodCard, MethodGooglePay, MethodApplePay}
}

// IsValid checks if the method is a catalog payment method.
func (m PaymentMethod) IsValid() bool {
	switch m {
	case MethodCard, MethodGooglePay, MethodApplePay:
		return true
	}
	return false
}

// Identifier returns the technical identifier of the payment method.
func (m PaymentMethod) Identifier() string {
	return string(m)
}

// DisplayName returns the human-readable payment method name.
func (m PaymentMethod) DisplayName() string {
	switch m {
	case MethodCard:
		return "Credit/Debit Card"
	case MethodGooglePay:
		return "Google Pay"
	case MethodApplePay:
		return "Apple Pay"
	default:
		return string(m)
	}
}

// String returns the display name.
func (m PaymentMethod) String() string {
	return m.DisplayName()
}
