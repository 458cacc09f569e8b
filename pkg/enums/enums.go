package enums

// MethodType identifies the family of a payment method.
type MethodType string

const (
	MethodTypeMpesa   MethodType = "mpesa"
	MethodTypeEmola   MethodType = "emola"
	MethodTypePaypal  MethodType = "paypal"
	MethodTypeCard    MethodType = "card"
	MethodTypeBitcoin MethodType = "bitcoin"
)

// IsValid reports whether the method type is one of the supported families.
func (m MethodType) IsValid() bool {
	switch m {
	case MethodTypeMpesa, MethodTypeEmola, MethodTypePaypal, MethodTypeCard, MethodTypeBitcoin:
		return true
	default:
		return false
	}
}

// IsMobileMoney reports whether the method collects a phone number at checkout.
func (m MethodType) IsMobileMoney() bool {
	return m == MethodTypeMpesa || m == MethodTypeEmola
}

// CheckoutState is the position of a checkout flow in its lifecycle.
type CheckoutState string

const (
	CheckoutStateMethods    CheckoutState = "methods"
	CheckoutStateDetails    CheckoutState = "details"
	CheckoutStateProcessing CheckoutState = "processing"
	CheckoutStateResult     CheckoutState = "result"
)

// IsValid reports whether the state is part of the checkout lifecycle.
func (s CheckoutState) IsValid() bool {
	switch s {
	case CheckoutStateMethods, CheckoutStateDetails, CheckoutStateProcessing, CheckoutStateResult:
		return true
	default:
		return false
	}
}

// Terminal reports whether no further automatic transition leaves the state.
func (s CheckoutState) Terminal() bool {
	return s == CheckoutStateResult
}

// PaymentStatus is the terminal outcome of a processed payment.
type PaymentStatus string

const (
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// IsValid reports whether the status is a recognized terminal outcome.
func (s PaymentStatus) IsValid() bool {
	return s == PaymentStatusCompleted || s == PaymentStatusFailed
}
